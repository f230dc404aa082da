package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/printshop-orders/internal/middleware"
	"github.com/mmeshcher/printshop-orders/internal/model"
	"github.com/mmeshcher/printshop-orders/internal/repository"
	"github.com/mmeshcher/printshop-orders/internal/service"
)

type stubService struct {
	authAdmin *model.Admin
	authErr   error

	createResp  *model.Order
	createErr   error
	createInput service.OrderInput

	updateResp  *model.Order
	updateErr   error
	updatePatch model.OrderPatch

	getResp *model.Order
	getErr  error

	deleteErr error

	listResp   []model.Order
	listErr    error
	listFilter model.ListFilter
	listSort   model.ListSort

	statsResp *model.DashboardStats
	statsErr  error
}

func (s *stubService) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	return s.authAdmin, s.authErr
}

func (s *stubService) CreateOrder(ctx context.Context, input service.OrderInput) (*model.Order, error) {
	s.createInput = input
	return s.createResp, s.createErr
}

func (s *stubService) UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) (*model.Order, error) {
	s.updatePatch = patch
	return s.updateResp, s.updateErr
}

func (s *stubService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.getResp, s.getErr
}

func (s *stubService) DeleteOrder(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *stubService) ListOrders(ctx context.Context, filter model.ListFilter, sort model.ListSort) ([]model.Order, error) {
	s.listFilter = filter
	s.listSort = sort
	return s.listResp, s.listErr
}

func (s *stubService) GetStats(ctx context.Context) (*model.DashboardStats, error) {
	return s.statsResp, s.statsErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

func authedRequest(t *testing.T, h *Handler, method, target string, body *bytes.Reader) *http.Request {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	token, err := h.authMiddleware.IssueToken(1, "admin")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return req
}

func decodeMessage(t *testing.T, res *http.Response) string {
	t.Helper()

	var m struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(res.Body).Decode(&m); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return m.Message
}

func TestLogin_Success(t *testing.T) {
	svc := &stubService{
		authAdmin: &model.Admin{ID: 1, Username: "admin"},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(loginRequest{Username: "admin", Password: "admin123"})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp loginResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token in response")
	}
	if resp.Username != "admin" || resp.ID != 1 {
		t.Fatalf("response = %+v, want username admin, id 1", resp)
	}

	if _, ok := h.authMiddleware.VerifyToken(resp.Token); !ok {
		t.Fatalf("issued token does not verify")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(loginRequest{Username: "ghost", Password: "nope"})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
	if msg := decodeMessage(t, res); msg != "Invalid username or password" {
		t.Fatalf("message = %q", msg)
	}
}

func TestCreateOrder_ValidationError(t *testing.T) {
	svc := &stubService{
		createErr: &service.ValidationError{Message: "Please provide customer name, phone, and total amount"},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(map[string]any{"phone": "555-0101"})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if msg := decodeMessage(t, res); msg != "Please provide customer name, phone, and total amount" {
		t.Fatalf("message = %q", msg)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	created := &model.Order{
		ID:             "order-1",
		CustomerName:   "Ana Smith",
		Phone:          "555-0101",
		TotalCents:     10000,
		AdvanceCents:   4000,
		RemainingCents: 6000,
		PaymentStatus:  model.PaymentStatusPartial,
		OrderDate:      time.Now(),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	svc := &stubService{createResp: created}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(map[string]any{
		"customerName":  "Ana Smith",
		"phone":         "555-0101",
		"totalAmount":   100.0,
		"advanceAmount": 40.0,
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	if svc.createInput.TotalCents == nil || *svc.createInput.TotalCents != 10000 {
		t.Fatalf("total cents = %v, want 10000", svc.createInput.TotalCents)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RemainingAmount != 60 {
		t.Fatalf("remainingAmount = %v, want 60", resp.RemainingAmount)
	}
	if resp.PaymentStatus != "Partial" {
		t.Fatalf("paymentStatus = %q, want Partial", resp.PaymentStatus)
	}
}

func TestUpdateOrder_PatchOnlySuppliedFields(t *testing.T) {
	svc := &stubService{
		updateResp: &model.Order{ID: "order-1", CustomerName: "Ana", Phone: "1", OrderDate: time.Now()},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(map[string]any{"notes": "rush job"})

	req := authedRequest(t, h, http.MethodPut, "/orders/order-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	patch := svc.updatePatch
	if patch.Notes == nil || *patch.Notes != "rush job" {
		t.Fatalf("notes patch = %v, want rush job", patch.Notes)
	}
	if patch.CustomerName != nil || patch.Phone != nil || patch.TotalCents != nil || patch.AdvanceCents != nil {
		t.Fatalf("unsupplied fields present in patch: %+v", patch)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &stubService{getErr: repository.ErrOrderNotFound}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodGet, "/orders/missing", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
	if msg := decodeMessage(t, res); msg != "Order not found" {
		t.Fatalf("message = %q", msg)
	}
}

func TestDeleteOrder_NotFound(t *testing.T) {
	svc := &stubService{deleteErr: repository.ErrOrderNotFound}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodDelete, "/orders/missing", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestDeleteOrder_Success(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodDelete, "/orders/order-1", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if msg := decodeMessage(t, res); msg != "Order deleted successfully" {
		t.Fatalf("message = %q", msg)
	}
}

func TestListOrders_QueryParams(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodGet, "/orders?search=ana&paymentStatus=Paid&sortBy=totalAmount&sortOrder=asc", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	if svc.listFilter.Search != "ana" {
		t.Fatalf("search = %q, want ana", svc.listFilter.Search)
	}
	if svc.listFilter.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("paymentStatus = %q, want Paid", svc.listFilter.PaymentStatus)
	}
	if svc.listSort.Field != "totalAmount" || svc.listSort.Desc {
		t.Fatalf("sort = %+v, want totalAmount asc", svc.listSort)
	}
}

func TestListOrders_EmptyIsJSONArray(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var orders []orderResponse
	if err := json.NewDecoder(res.Body).Decode(&orders); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Fatalf("body is not an empty array: %v", orders)
	}
}

func TestGetStats_ZeroValues(t *testing.T) {
	svc := &stubService{statsResp: &model.DashboardStats{}}
	h := newTestHandler(t, svc)

	req := authedRequest(t, h, http.MethodGet, "/orders/stats", nil)
	rec := httptest.NewRecorder()

	router := h.SetupRouter()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var stats statsResponse
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.TotalOrders != 0 || stats.TotalRevenue != 0 || stats.PendingRevenue != 0 {
		t.Fatalf("stats = %+v, want all zeros", stats)
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	svc := &stubService{statsResp: &model.DashboardStats{}}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/orders"},
		{http.MethodGet, "/orders/stats"},
		{http.MethodGet, "/orders/order-1"},
		{http.MethodPost, "/orders"},
		{http.MethodPut, "/orders/order-1"},
		{http.MethodDelete, "/orders/order-1"},
	}

	for _, tt := range targets {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()
			if res.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
			}
		})
	}
}
