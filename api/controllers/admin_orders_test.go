package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/api/middleware"
	internalorders "github.com/angelmondragon/restaurant-backend/internal/orders"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/pagination"
)

type stubOrderService struct {
	internalorders.Service

	filters    internalorders.ListFilters
	params     pagination.Params
	advancedTo enums.OrderStatus
	etaMinutes int
	actor      internalorders.Actor
	cancel     internalorders.CancelInput
	failures   []internalorders.RefundFailure
	err        error
}

func (s *stubOrderService) List(_ context.Context, filters internalorders.ListFilters, params pagination.Params) (pagination.Page[models.Order], error) {
	s.filters, s.params = filters, params
	return pagination.Page[models.Order]{Items: []models.Order{}}, s.err
}

func (s *stubOrderService) Advance(_ context.Context, id uuid.UUID, next enums.OrderStatus, actor internalorders.Actor) (*models.Order, error) {
	s.advancedTo, s.actor = next, actor
	return &models.Order{ID: id, Status: next}, s.err
}

func (s *stubOrderService) UpdateETA(_ context.Context, id uuid.UUID, minutes int, actor internalorders.Actor) (*models.Order, error) {
	s.etaMinutes, s.actor = minutes, actor
	return &models.Order{ID: id}, s.err
}

func (s *stubOrderService) CancelOrder(_ context.Context, input internalorders.CancelInput) (*internalorders.CancelResult, error) {
	s.cancel = input
	return &internalorders.CancelResult{Order: &models.Order{ID: input.OrderID}}, s.err
}

func (s *stubOrderService) Refund(_ context.Context, id uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	s.actor = actor
	return &models.Order{ID: id}, s.err
}

func (s *stubOrderService) ListRefundFailures(context.Context, int) ([]internalorders.RefundFailure, error) {
	return s.failures, s.err
}

func asStaff(req *http.Request, role enums.ActorRole, branchID *uuid.UUID) *http.Request {
	userID := uuid.New()
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: &userID, Role: role, BranchID: branchID}))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestAdminOrderListPinsStaffBranch(t *testing.T) {
	own, other := uuid.New(), uuid.New()
	svc := &stubOrderService{}
	req := asStaff(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?branch_id="+other.String()+"&status=pending&limit=10", nil), enums.ActorRoleStaff, &own)
	resp := httptest.NewRecorder()
	AdminOrderList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.filters.BranchID == nil || *svc.filters.BranchID != own {
		t.Fatalf("expected staff branch %s, got %v", own, svc.filters.BranchID)
	}
	if svc.filters.Status == nil || *svc.filters.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending filter, got %v", svc.filters.Status)
	}
	if svc.params.Limit != 10 {
		t.Fatalf("unexpected limit %d", svc.params.Limit)
	}
}

func TestAdminOrderListAdminKeepsRequestedBranch(t *testing.T) {
	requested := uuid.New()
	svc := &stubOrderService{}
	req := asStaff(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?branch_id="+requested.String(), nil), enums.ActorRoleAdmin, nil)
	resp := httptest.NewRecorder()
	AdminOrderList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.filters.BranchID == nil || *svc.filters.BranchID != requested {
		t.Fatalf("expected requested branch, got %v", svc.filters.BranchID)
	}
}

func TestAdminOrderListRejectsUnknownStatus(t *testing.T) {
	req := asStaff(httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?status=shipped", nil), enums.ActorRoleAdmin, nil)
	resp := httptest.NewRecorder()
	AdminOrderList(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderAdvance(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{}
	req := asStaff(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"processing"}`)), enums.ActorRoleStaff, nil)
	resp := httptest.NewRecorder()
	AdminOrderAdvance(svc, nil).ServeHTTP(resp, withParam(req, "orderId", orderID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.advancedTo != enums.OrderStatusProcessing || !svc.actor.IsStaff() {
		t.Fatalf("unexpected advance %s by %+v", svc.advancedTo, svc.actor)
	}
}

func TestAdminOrderAdvanceRejectsCancelledTarget(t *testing.T) {
	req := asStaff(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"cancelled"}`)), enums.ActorRoleStaff, nil)
	resp := httptest.NewRecorder()
	AdminOrderAdvance(&stubOrderService{}, nil).ServeHTTP(resp, withParam(req, "orderId", uuid.NewString()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderAdvanceSurfacesIllegalTransition(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from completed to processing")}
	req := asStaff(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"processing"}`)), enums.ActorRoleStaff, nil)
	resp := httptest.NewRecorder()
	AdminOrderAdvance(svc, nil).ServeHTTP(resp, withParam(req, "orderId", uuid.NewString()))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminOrderETABounds(t *testing.T) {
	svc := &stubOrderService{}
	for body, want := range map[string]int{
		`{"minutes":0}`:   http.StatusBadRequest,
		`{"minutes":500}`: http.StatusBadRequest,
		`{"minutes":25}`:  http.StatusOK,
	} {
		req := asStaff(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body)), enums.ActorRoleStaff, nil)
		resp := httptest.NewRecorder()
		AdminOrderETA(svc, nil).ServeHTTP(resp, withParam(req, "orderId", uuid.NewString()))
		if resp.Code != want {
			t.Fatalf("%s: expected %d got %d", body, want, resp.Code)
		}
	}
	if svc.etaMinutes != 25 {
		t.Fatalf("expected eta 25, got %d", svc.etaMinutes)
	}
}

func TestAdminOrderCancelPassesStaffActor(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{}
	req := asStaff(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"kitchen closed"}`)), enums.ActorRoleStaff, nil)
	resp := httptest.NewRecorder()
	AdminOrderCancel(svc, nil).ServeHTTP(resp, withParam(req, "orderId", orderID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cancel.OrderID != orderID || svc.cancel.Reason != "kitchen closed" || !svc.cancel.Actor.IsStaff() {
		t.Fatalf("unexpected cancel input %+v", svc.cancel)
	}
}

func TestAdminRefundFailures(t *testing.T) {
	svc := &stubOrderService{failures: []internalorders.RefundFailure{{OrderID: uuid.New(), Attempt: 2}}}
	req := asStaff(httptest.NewRequest(http.MethodGet, "/?limit=5", nil), enums.ActorRoleAdmin, nil)
	resp := httptest.NewRecorder()
	AdminRefundFailures(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []internalorders.RefundFailure `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].Attempt != 2 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestAdminOrderHandlersWithoutService(t *testing.T) {
	resp := httptest.NewRecorder()
	AdminOrderDetail(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
