package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxSessionID contextKey = "session_id"
	ctxBranchID  contextKey = "branch_id"
)

// Identity is the caller resolved from a bearer token or a guest session header.
type Identity struct {
	UserID    *uuid.UUID
	SessionID string
	Role      enums.ActorRole
	BranchID  *uuid.UUID
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

func BranchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxBranchID).(string); ok {
		return v
	}
	return ""
}

// IdentityFromContext rebuilds the typed caller. Malformed ids are dropped.
func IdentityFromContext(ctx context.Context) Identity {
	id := Identity{
		SessionID: SessionIDFromContext(ctx),
		Role:      enums.ActorRole(RoleFromContext(ctx)),
	}
	if raw := UserIDFromContext(ctx); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			id.UserID = &parsed
		}
	}
	if raw := BranchIDFromContext(ctx); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			id.BranchID = &parsed
		}
	}
	return id
}

// WithIdentity injects the caller into the context for downstream handlers.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id.UserID != nil {
		ctx = context.WithValue(ctx, ctxUserID, id.UserID.String())
	}
	if id.SessionID != "" {
		ctx = context.WithValue(ctx, ctxSessionID, id.SessionID)
	}
	if id.Role != "" {
		ctx = context.WithValue(ctx, ctxRole, string(id.Role))
	}
	if id.BranchID != nil {
		ctx = context.WithValue(ctx, ctxBranchID, id.BranchID.String())
	}
	return ctx
}
