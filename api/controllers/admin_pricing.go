package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/restaurant-backend/api/middleware"
	"github.com/angelmondragon/restaurant-backend/api/responses"
	"github.com/angelmondragon/restaurant-backend/api/validators"
	"github.com/angelmondragon/restaurant-backend/internal/pricing"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

type createOverrideRequest struct {
	ProductID  uuid.UUID                  `json:"catalog_item_id" validate:"required"`
	BranchID   *uuid.UUID                 `json:"branch_id,omitempty"`
	Kind       string                     `json:"kind" validate:"required,oneof=fixed increase decrease temporary"`
	Value      decimal.Decimal            `json:"value"`
	StartsAt   time.Time                  `json:"starts_at" validate:"required"`
	EndsAt     time.Time                  `json:"ends_at" validate:"required"`
	AutoRevert *bool                      `json:"auto_revert,omitempty"`
	Schedule   *types.ScheduleRestriction `json:"schedule,omitempty"`
	Reason     *string                    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminCreatePriceOverride stores an override. Overlapping overrides for the
// same item and branch are deactivated and their ids returned.
func AdminCreatePriceOverride(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload createOverrideRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseOverrideKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid override kind"))
			return
		}

		result, err := svc.CreateOverride(r.Context(), pricing.CreateOverrideInput{
			ProductID:  payload.ProductID,
			BranchID:   payload.BranchID,
			Kind:       kind,
			Value:      payload.Value,
			StartsAt:   payload.StartsAt,
			EndsAt:     payload.EndsAt,
			AutoRevert: payload.AutoRevert,
			Schedule:   payload.Schedule,
			Reason:     payload.Reason,
			CreatedBy:  middleware.IdentityFromContext(r.Context()).UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminSetPriceOverrideActive toggles an override. Reactivation supersedes
// overlaps the same way creation does.
func AdminSetPriceOverrideActive(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "overrideId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetActive(r.Context(), id, *payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminDeletePriceOverride(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "overrideId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteOverride(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

// AdminPriceOverrideHistory lists every override ever recorded for an item,
// newest first.
func AdminPriceOverrideHistory(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// AdminResolvePrice previews the effective price of an item, optionally for
// a branch and an instant given as RFC 3339.
func AdminResolvePrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := validators.ParseOptionalUUIDQuery(r, "branch_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		at, err := validators.ParseQueryTime(r, "at", time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolution, err := svc.Resolve(r.Context(), productID, branchID, at)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolution)
	}
}

// AdminSweepPriceOverrides runs the expiry sweep immediately instead of
// waiting for the cron worker.
func AdminSweepPriceOverrides(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		n, err := svc.SweepExpired(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"deactivated": n})
	}
}
