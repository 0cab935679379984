package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/restaurant-backend/pkg/auth"
	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "restaurant", ExpirationMinutes: 5}

func mintTestToken(t *testing.T, role enums.ActorRole, branchID *uuid.UUID) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   userID,
		Role:     role,
		BranchID: branchID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID
}

func captureIdentity(got *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingCredentials(t *testing.T) {
	var got Identity
	rec := httptest.NewRecorder()
	Auth(testJWT, nil)(captureIdentity(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthAcceptsGuestSession(t *testing.T) {
	var got Identity
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "guest-123")
	rec := httptest.NewRecorder()
	Auth(testJWT, nil)(captureIdentity(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.SessionID != "guest-123" || got.UserID != nil || got.Role != enums.ActorRoleCustomer {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestAuthPrefersBearerToken(t *testing.T) {
	branchID := uuid.New()
	token, userID := mintTestToken(t, enums.ActorRoleStaff, &branchID)

	var got Identity
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Session-Id", "ignored")
	rec := httptest.NewRecorder()
	Auth(testJWT, nil)(captureIdentity(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Fatalf("expected user %s, got %+v", userID, got)
	}
	if got.SessionID != "" || got.Role != enums.ActorRoleStaff {
		t.Fatalf("unexpected identity %+v", got)
	}
	if got.BranchID == nil || *got.BranchID != branchID {
		t.Fatalf("expected branch %s, got %+v", branchID, got.BranchID)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	var got Identity
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	req.Header.Set("X-Session-Id", "guest-123")
	rec := httptest.NewRecorder()
	Auth(testJWT, nil)(captureIdentity(&got)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	userID := uuid.New()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mw := RequireRole(nil, enums.ActorRoleStaff, enums.ActorRoleAdmin)

	cases := []struct {
		name string
		id   Identity
		want int
	}{
		{"guest", Identity{SessionID: "s", Role: enums.ActorRoleCustomer}, http.StatusUnauthorized},
		{"customer", Identity{UserID: &userID, Role: enums.ActorRoleCustomer}, http.StatusForbidden},
		{"staff", Identity{UserID: &userID, Role: enums.ActorRoleStaff}, http.StatusOK},
		{"admin", Identity{UserID: &userID, Role: enums.ActorRoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
		req = req.WithContext(WithIdentity(req.Context(), tc.id))
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}
