package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/restaurant-backend/api/responses"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

// RequireRole admits authenticated callers holding one of roles. Guest
// sessions never pass.
func RequireRole(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			current := enums.ActorRole(RoleFromContext(r.Context()))
			for _, role := range roles {
				if current == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}

// PinBranchQuery keeps staff tokens scoped to a branch inside it. A missing
// branch_id query is filled with the token's branch; a different one is
// refused. Admins and unscoped staff pass through untouched.
func PinBranchQuery(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity.Role != enums.ActorRoleStaff || identity.BranchID == nil {
				next.ServeHTTP(w, r)
				return
			}
			pinned := identity.BranchID.String()
			query := r.URL.Query()
			switch requested := strings.TrimSpace(query.Get("branch_id")); {
			case requested == "":
				query.Set("branch_id", pinned)
				r.URL.RawQuery = query.Encode()
			case !strings.EqualFold(requested, pinned):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch outside staff scope"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
