package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/stemsi/quizcraft-backend/internal/response"
	"github.com/stemsi/quizcraft-backend/internal/service"
	ws "github.com/stemsi/quizcraft-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// AttemptTimer is implemented by *service.AttemptService.
type AttemptTimer interface {
	Get(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error)
	Complete(ctx context.Context, attemptID, userID uuid.UUID) (*model.Attempt, error)
	Expire(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)
}

// WSHandler streams the countdown of a running attempt.
type WSHandler struct {
	attempts     AttemptTimer
	log          zerolog.Logger
	upgrader     websocket.Upgrader
	tickInterval time.Duration
	now          func() time.Time
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts AttemptTimer, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts:     attempts,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
		tickInterval: time.Second,
		now:          time.Now,
	}
}

// AttemptTimerStream godoc
// WS /ws/v1/attempts/:id/timer?token=...
// Sends remaining-time ticks, one warning when little time is left, and completes
// the attempt when it runs out. The client may submit early or ping.
func (h *WSHandler) AttemptTimerStream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attempts.Get(c.Request.Context(), attemptID, userID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if attempt.IsComplete {
		response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Learner connected to attempt timer")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	actions := h.readActions(ctx, conn, wsLog)

	// Unlimited attempts never tick.
	var tick <-chan time.Time
	if attempt.ExpiresAt != nil {
		ticker := time.NewTicker(h.tickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	warned := false
	sendTick := func() bool {
		remaining := ws.Remaining(*attempt.ExpiresAt, h.now())
		if remaining == 0 {
			h.expire(ctx, conn, wsLog, attemptID)
			return false
		}
		if remaining <= ws.WarningThreshold && !warned {
			warned = true
			ws.WriteTyped(conn, ws.WarningEvent{
				Event:            ws.EventWarning,
				RemainingSeconds: remaining,
				Message:          "Less than 5 minutes remaining",
			})
		}
		return ws.WriteTyped(conn, ws.TickEvent{Event: ws.EventTick, RemainingSeconds: remaining}) == nil
	}

	if attempt.ExpiresAt != nil && !sendTick() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if !sendTick() {
				return
			}
		case action, open := <-actions:
			if !open {
				wsLog.Debug().Msg("Connection closed")
				return
			}
			switch action {
			case ws.ActionPing:
				ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionSubmit:
				h.submit(ctx, conn, wsLog, attemptID, userID)
				return
			default:
				wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
				ws.WriteError(conn, "unknown action: "+string(action))
			}
		}
	}
}

// readActions pumps client actions into a channel that is closed when the
// connection fails. Only the caller writes to conn.
func (h *WSHandler) readActions(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger) <-chan ws.Action {
	actions := make(chan ws.Action)
	go func() {
		defer close(actions)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			select {
			case actions <- msg.Action:
			case <-ctx.Done():
				return
			}
		}
	}()
	return actions
}

func (h *WSHandler) expire(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID) {
	attempt, err := h.attempts.Expire(ctx, attemptID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Expire attempt failed")
		ws.WriteError(conn, "failed to complete attempt")
		return
	}
	ws.WriteTyped(conn, ws.CompletedEvent{Event: ws.EventCompleted, Expired: true, Attempt: attempt})
}

func (h *WSHandler) submit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, attemptID, userID uuid.UUID) {
	attempt, err := h.attempts.Complete(ctx, attemptID, userID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptCompleted) {
			ws.WriteError(conn, "attempt already completed")
			return
		}
		wsLog.Error().Err(err).Msg("Complete attempt failed")
		ws.WriteError(conn, "failed to complete attempt")
		return
	}
	ws.WriteTyped(conn, ws.CompletedEvent{Event: ws.EventCompleted, Attempt: attempt})
}
