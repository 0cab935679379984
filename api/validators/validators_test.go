package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
)

type sampleBody struct {
	Quantity int    `json:"quantity" validate:"required,min=1,max=99"`
	Method   string `json:"payment_method" validate:"required,oneof=card cash_on_delivery"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"payment_method":"card","extra":true}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0,"payment_method":"cheque"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["payment_method"] != "must be one of card cash_on_delivery" {
		t.Fatalf("unexpected payment_method message %q", details["payment_method"])
	}
	if _, ok := details["quantity"]; !ok {
		t.Fatalf("expected quantity message, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsTrailingAndOversizedBodies(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"payment_method":"card"}{"quantity":2}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for trailing data, got %v", err)
	}

	huge := `{"quantity":1,"payment_method":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "request body too large" {
		t.Fatalf("expected too-large error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "orderId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing param, got %v", err)
	}
}

func TestParseOptionalUUIDQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?branch_id=nope", nil)
	if _, err := ParseOptionalUUIDQuery(req, "branch_id"); err == nil {
		t.Fatalf("expected error for malformed uuid")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseOptionalUUIDQuery(req, "branch_id")
	if err != nil || got != nil {
		t.Fatalf("expected nil for absent param, got %v (%v)", got, err)
	}
}

func TestSanitizeStringCapsRunesAndDropsControls(t *testing.T) {
	got := SanitizeString("  no\x00 onions\nplease  ", 0)
	if got != "no onions please" {
		t.Fatalf("unexpected sanitized value %q", got)
	}
	if got := SanitizeString("crème brûlée", 5); got != "crème" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&active=yes&at=2026-03-01T12:00:00%2B01:00", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := ParseQueryBool(req, "active"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected bool error, got %v", err)
	}
	at, err := ParseQueryTime(req, "at", time.Time{})
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	if at.Location() != time.UTC || at.Hour() != 11 {
		t.Fatalf("expected UTC instant, got %v", at)
	}

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryInt(empty, "limit", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default 20, got %d (%v)", v, err)
	}
	if v, err := ParseQueryBool(empty, "active"); err != nil || v {
		t.Fatalf("expected false, got %v (%v)", v, err)
	}
}
