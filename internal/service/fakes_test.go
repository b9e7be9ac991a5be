package service

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/repository"
)

var errInjected = errors.New("injected storage failure")

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeQuizStore keeps quiz aggregates in memory. Writes made through WriteAggregate are
// staged and only become visible when fn returns nil, like a committed transaction.
type fakeQuizStore struct {
	mu        sync.Mutex
	quizzes   map[uuid.UUID]model.Quiz
	questions map[uuid.UUID][]model.Question
	options   map[uuid.UUID][]model.Option
	keys      map[uuid.UUID]model.AnswerKey

	// failOnWrite makes the n-th insert of the next WriteAggregate call fail (1-based).
	failOnWrite  int
	writeCalls   int
	failOptions  map[uuid.UUID]bool
	failKeys     map[uuid.UUID]bool
	failQuestion bool
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{
		quizzes:     map[uuid.UUID]model.Quiz{},
		questions:   map[uuid.UUID][]model.Question{},
		options:     map[uuid.UUID][]model.Option{},
		keys:        map[uuid.UUID]model.AnswerKey{},
		failOptions: map[uuid.UUID]bool{},
		failKeys:    map[uuid.UUID]bool{},
	}
}

type stagedWriter struct {
	store     *fakeQuizStore
	writes    int
	quizzes   []model.Quiz
	questions []model.Question
	options   map[uuid.UUID][]model.Option
	keys      map[uuid.UUID]model.AnswerKey
}

func (w *stagedWriter) step() error {
	w.writes++
	if w.store.failOnWrite > 0 && w.writes == w.store.failOnWrite {
		return errInjected
	}
	return nil
}

func (w *stagedWriter) InsertQuiz(_ context.Context, q *model.Quiz) error {
	if err := w.step(); err != nil {
		return err
	}
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	w.quizzes = append(w.quizzes, *q)
	return nil
}

func (w *stagedWriter) InsertQuestion(_ context.Context, q *model.Question) error {
	if err := w.step(); err != nil {
		return err
	}
	q.ID = uuid.New()
	w.questions = append(w.questions, *q)
	return nil
}

func (w *stagedWriter) InsertOptions(_ context.Context, questionID uuid.UUID, options []model.Option) error {
	if err := w.step(); err != nil {
		return err
	}
	w.options[questionID] = slices.Clone(options)
	return nil
}

func (w *stagedWriter) InsertAnswerKey(_ context.Context, questionID uuid.UUID, key model.AnswerKey) error {
	if err := w.step(); err != nil {
		return err
	}
	w.keys[questionID] = key
	return nil
}

func (f *fakeQuizStore) WriteAggregate(_ context.Context, fn func(w repository.AggregateWriter) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls++

	w := &stagedWriter{store: f, options: map[uuid.UUID][]model.Option{}, keys: map[uuid.UUID]model.AnswerKey{}}
	if err := fn(w); err != nil {
		return err
	}

	for _, q := range w.quizzes {
		f.quizzes[q.ID] = q
	}
	for _, q := range w.questions {
		f.questions[q.QuizID] = append(f.questions[q.QuizID], q)
	}
	for id, opts := range w.options {
		f.options[id] = opts
	}
	for id, k := range w.keys {
		f.keys[id] = k
	}
	return nil
}

func (f *fakeQuizStore) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &q, nil
}

func (f *fakeQuizStore) ListQuestions(_ context.Context, quizID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuestion {
		return nil, errInjected
	}
	qs := slices.Clone(f.questions[quizID])
	sort.Slice(qs, func(i, j int) bool { return qs[i].OrderNum < qs[j].OrderNum })
	return qs, nil
}

// question looks up a stored question for the attempt fake.
func (f *fakeQuizStore) question(id uuid.UUID) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, qs := range f.questions {
		for _, q := range qs {
			if q.ID == id {
				return &q, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQuizStore) ListOptions(_ context.Context, questionID uuid.UUID) ([]model.Option, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOptions[questionID] {
		return nil, errInjected
	}
	opts := slices.Clone(f.options[questionID])
	if opts == nil {
		opts = []model.Option{}
	}
	return opts, nil
}

func (f *fakeQuizStore) GetAnswerKey(_ context.Context, questionID uuid.UUID, _ model.QuestionType) (model.AnswerKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[questionID] {
		return model.AnswerKey{}, errInjected
	}
	k, ok := f.keys[questionID]
	if !ok {
		return model.AnswerKey{}, pgx.ErrNoRows
	}
	return k, nil
}

func (f *fakeQuizStore) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Quiz
	for _, q := range f.quizzes {
		if q.CreatorID == creatorID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuizStore) ListPublic(_ context.Context, limit, offset int) ([]model.Quiz, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Quiz
	for _, q := range f.quizzes {
		if q.IsPublic {
			all = append(all, q)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (f *fakeQuizStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.quizzes, id)
	for _, q := range f.questions[id] {
		delete(f.options, q.ID)
		delete(f.keys, q.ID)
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeQuizStore) quizCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.quizzes)
}

func (f *fakeQuizStore) questionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, qs := range f.questions {
		n += len(qs)
	}
	return n
}

// fakeAttemptStore scores completed attempts from the questions held by quizzes.
type fakeAttemptStore struct {
	mu       sync.Mutex
	quizzes  *fakeQuizStore
	users    map[uuid.UUID]string
	attempts map[uuid.UUID]*model.Attempt
	answers  map[uuid.UUID]map[uuid.UUID]model.SubmittedAnswer
	clock    time.Time

	beforeUpsert func()
}

func newFakeAttemptStore(quizzes *fakeQuizStore) *fakeAttemptStore {
	return &fakeAttemptStore{
		quizzes:  quizzes,
		users:    map[uuid.UUID]string{},
		attempts: map[uuid.UUID]*model.Attempt{},
		answers:  map[uuid.UUID]map[uuid.UUID]model.SubmittedAnswer{},
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.StartTime = f.clock
	a.IsComplete = false
	stored := *a
	f.attempts[a.ID] = &stored
	return nil
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) UpsertAnswer(_ context.Context, ans *model.SubmittedAnswer) error {
	if f.beforeUpsert != nil {
		f.beforeUpsert()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[ans.AttemptID]; !ok || a.IsComplete {
		return pgx.ErrNoRows
	}
	byQuestion, ok := f.answers[ans.AttemptID]
	if !ok {
		byQuestion = map[uuid.UUID]model.SubmittedAnswer{}
		f.answers[ans.AttemptID] = byQuestion
	}
	if prev, exists := byQuestion[ans.QuestionID]; exists {
		ans.ID = prev.ID
		ans.CreatedAt = prev.CreatedAt
	} else {
		ans.ID = uuid.New()
		ans.CreatedAt = f.clock
	}
	ans.UpdatedAt = f.clock
	byQuestion[ans.QuestionID] = *ans
	return nil
}

func (f *fakeAttemptStore) Complete(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok || a.IsComplete {
		return nil, pgx.ErrNoRows
	}

	score := 0
	for _, ans := range f.answers[id] {
		score += ans.PointsEarned
	}
	questions, _ := f.quizzes.ListQuestions(ctx, a.QuizID)
	maxScore := 0
	for _, q := range questions {
		maxScore += q.Points
	}

	end := f.clock
	a.IsComplete = true
	a.EndTime = &end
	a.Score = &score
	a.MaxScore = &maxScore
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) ListAnswers(_ context.Context, attemptID uuid.UUID) ([]model.AnswerReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AnswerReview
	for _, ans := range f.answers[attemptID] {
		q, err := f.quizzes.question(ans.QuestionID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.AnswerReview{
			SubmittedAnswer: ans,
			QuestionText:    q.Text,
			QuestionType:    q.Type,
			Points:          q.Points,
			OrderNum:        q.OrderNum,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (f *fakeAttemptStore) ListByQuiz(_ context.Context, quizID uuid.UUID) ([]model.AttemptSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AttemptSummary
	for _, a := range f.attempts {
		if a.QuizID == quizID {
			out = append(out, model.AttemptSummary{Attempt: *a, LearnerEmail: f.users[a.UserID]})
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.LearnerAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LearnerAttempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			la := model.LearnerAttempt{Attempt: *a}
			if q, err := f.quizzes.GetByID(ctx, a.QuizID); err == nil {
				la.QuizTitle = q.Title
			}
			out = append(out, la)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) ListOpenWithDeadline(ctx context.Context) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.IsComplete {
			continue
		}
		q, err := f.quizzes.GetByID(ctx, a.QuizID)
		if err != nil || q.TimeLimit == 0 {
			continue
		}
		cp := *a
		cp.ExpiresAt = cp.Deadline(q.TimeLimit)
		out = append(out, cp)
	}
	return out, nil
}

type fakeQuizCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.QuizAggregate
	sets    int
}

func newFakeQuizCache() *fakeQuizCache {
	return &fakeQuizCache{entries: map[uuid.UUID]*model.QuizAggregate{}}
}

func (c *fakeQuizCache) Get(_ context.Context, quizID uuid.UUID) (*model.QuizAggregate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[quizID], nil
}

func (c *fakeQuizCache) Set(_ context.Context, agg *model.QuizAggregate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if agg.Partial {
		return errors.New("partial aggregate")
	}
	c.sets++
	c.entries[agg.ID] = agg
	return nil
}

func (c *fakeQuizCache) Invalidate(_ context.Context, quizID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, quizID)
	return nil
}

type fakeDeadlines struct {
	mu        sync.Mutex
	deadlines map[uuid.UUID]time.Time
}

func newFakeDeadlines() *fakeDeadlines {
	return &fakeDeadlines{deadlines: map[uuid.UUID]time.Time{}}
}

func (d *fakeDeadlines) Schedule(_ context.Context, attemptID uuid.UUID, deadline time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadlines[attemptID] = deadline
	return nil
}

func (d *fakeDeadlines) Due(_ context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []uuid.UUID
	for id, at := range d.deadlines {
		if !at.After(now) && int64(len(out)) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

func (d *fakeDeadlines) Remove(_ context.Context, attemptID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.deadlines, attemptID)
	return nil
}

func (d *fakeDeadlines) has(attemptID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.deadlines[attemptID]
	return ok
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]string{}}
}

func (f *fakeSessionStore) Save(_ context.Context, userID, jti string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[userID] = jti
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jti, ok := f.sessions[userID]
	if !ok {
		return "", errors.New("no active session")
	}
	return jti, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

type fakeSubjectStore struct {
	subjects []model.Subject
}

func (f *fakeSubjectStore) Create(_ context.Context, s *model.Subject) error {
	for _, existing := range f.subjects {
		if existing.Name == s.Name {
			return repository.ErrDuplicateSubject
		}
	}
	s.ID = uuid.New()
	f.subjects = append(f.subjects, *s)
	return nil
}

func (f *fakeSubjectStore) GetAll(_ context.Context) ([]model.Subject, error) {
	return f.subjects, nil
}
