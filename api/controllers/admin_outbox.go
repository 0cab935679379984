package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/api/responses"
	"github.com/angelmondragon/restaurant-backend/api/validators"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/pagination"
)

// DeadLetterService is what the admin DLQ routes need from the outbox.
type DeadLetterService interface {
	List(ctx context.Context, reason string, limit int) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, limit int) (int, error)
}

type deadLetterView struct {
	EventID      uuid.UUID `json:"event_id"`
	EventType    string    `json:"event_type"`
	AggregateID  uuid.UUID `json:"aggregate_id"`
	Reason       string    `json:"reason"`
	Replayable   bool      `json:"replayable"`
	Error        *string   `json:"error,omitempty"`
	AttemptCount int       `json:"attempt_count"`
	FailedAt     time.Time `json:"failed_at"`
}

// AdminListDeadLetters lists parked outbox events, optionally by ?reason=.
func AdminListDeadLetters(svc DeadLetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), r.URL.Query().Get("reason"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]deadLetterView, 0, len(rows))
		for _, row := range rows {
			views = append(views, deadLetterView{
				EventID:      row.EventID,
				EventType:    string(row.EventType),
				AggregateID:  row.AggregateID,
				Reason:       string(row.ErrorReason),
				Replayable:   row.ErrorReason.Replayable(),
				Error:        row.ErrorMessage,
				AttemptCount: row.AttemptCount,
				FailedAt:     row.FailedAt,
			})
		}
		responses.WriteSuccess(w, views)
	}
}

// AdminReplayDeadLetters requeues exhausted events once the broker is back.
func AdminReplayDeadLetters(svc DeadLetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		n, err := svc.Replay(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"requeued": n})
	}
}
