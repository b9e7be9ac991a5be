package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
)

const expiryBatchSize = 100

// DeadlineSource yields attempts whose time is up. *cache.DeadlineQueue implements it.
type DeadlineSource interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error)
}

// Expirer closes an attempt on behalf of the system. *service.AttemptService implements it.
type Expirer interface {
	Expire(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
}

// ExpiryWorker polls the attempt deadline queue and completes overdue attempts.
type ExpiryWorker struct {
	deadlines DeadlineSource
	attempts  Expirer
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(deadlines DeadlineSource, attempts Expirer, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ExpiryWorker{
		deadlines: deadlines,
		attempts:  attempts,
		interval:  interval,
		now:       time.Now,
		log:       log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the polling loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick expires every due attempt, one batch at a time. Failed attempts stay
// queued and are retried on the next tick.
func (w *ExpiryWorker) tick(ctx context.Context) int {
	expired := 0
	seen := make(map[uuid.UUID]bool)

	for ctx.Err() == nil {
		ids, err := w.deadlines.Due(ctx, w.now(), expiryBatchSize)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Failed to read due attempts")
			}
			return expired
		}

		progressed := false
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			progressed = true

			a, err := w.attempts.Expire(ctx, id)
			if err != nil {
				w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Failed to expire attempt")
				continue
			}
			expired++
			w.log.Info().Str("attempt_id", a.ID.String()).Msg("Attempt auto-submitted")
		}

		if !progressed || len(ids) < expiryBatchSize {
			break
		}
	}
	return expired
}
