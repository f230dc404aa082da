// Package handler содержит HTTP-обработчики API сервиса учёта заказов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/printshop-orders/internal/middleware"
	"github.com/mmeshcher/printshop-orders/internal/model"
	"github.com/mmeshcher/printshop-orders/internal/repository"
	"github.com/mmeshcher/printshop-orders/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Authenticate(ctx context.Context, username, password string) (*model.Admin, error)
	CreateOrder(ctx context.Context, input service.OrderInput) (*model.Order, error)
	UpdateOrder(ctx context.Context, id string, patch model.OrderPatch) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, filter model.ListFilter, sort model.ListSort) ([]model.Order, error)
	GetStats(ctx context.Context) (*model.DashboardStats, error)
}

// Handler реализует HTTP-обработчики API сервиса учёта заказов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(messageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	ID       int64  `json:"id"`
}

// Login выполняет аутентификацию оператора и выдаёт bearer-токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide username and password")
		return
	}

	admin, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.logger.Error("login error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := h.authMiddleware.IssueToken(admin.ID, admin.Username)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		Username: admin.Username,
		ID:       admin.ID,
	})
}

type orderRequest struct {
	CustomerName  *string  `json:"customerName"`
	Phone         *string  `json:"phone"`
	Size          *string  `json:"size"`
	TotalAmount   *float64 `json:"totalAmount"`
	AdvanceAmount *float64 `json:"advanceAmount"`
	OrderDate     *string  `json:"orderDate"`
	DeliveryDate  *string  `json:"deliveryDate"`
	Notes         *string  `json:"notes"`
}

type orderResponse struct {
	ID              string  `json:"id"`
	CustomerName    string  `json:"customerName"`
	Phone           string  `json:"phone"`
	Size            string  `json:"size,omitempty"`
	TotalAmount     float64 `json:"totalAmount"`
	AdvanceAmount   float64 `json:"advanceAmount"`
	RemainingAmount float64 `json:"remainingAmount"`
	PaymentStatus   string  `json:"paymentStatus"`
	OrderDate       string  `json:"orderDate"`
	DeliveryDate    *string `json:"deliveryDate"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		Phone:           o.Phone,
		Size:            o.Size,
		TotalAmount:     float64(o.TotalCents) / 100,
		AdvanceAmount:   float64(o.AdvanceCents) / 100,
		RemainingAmount: float64(o.RemainingCents) / 100,
		PaymentStatus:   string(o.PaymentStatus),
		OrderDate:       o.OrderDate.Format(time.RFC3339),
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
	if o.DeliveryDate != nil {
		d := o.DeliveryDate.Format(time.RFC3339)
		resp.DeliveryDate = &d
	}
	return resp
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// parseDate принимает дату в формате RFC3339 или YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// CreateOrder создаёт новый заказ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.OrderInput{}
	if req.CustomerName != nil {
		input.CustomerName = *req.CustomerName
	}
	if req.Phone != nil {
		input.Phone = *req.Phone
	}
	if req.Size != nil {
		input.Size = *req.Size
	}
	if req.Notes != nil {
		input.Notes = *req.Notes
	}
	if req.TotalAmount != nil {
		total := toCents(*req.TotalAmount)
		input.TotalCents = &total
	}
	if req.AdvanceAmount != nil {
		advance := toCents(*req.AdvanceAmount)
		input.AdvanceCents = &advance
	}
	if req.OrderDate != nil && *req.OrderDate != "" {
		t, err := parseDate(*req.OrderDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid orderDate")
			return
		}
		input.OrderDate = &t
	}
	if req.DeliveryDate != nil && *req.DeliveryDate != "" {
		t, err := parseDate(*req.DeliveryDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid deliveryDate")
			return
		}
		input.DeliveryDate = &t
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			writeMessage(w, http.StatusBadRequest, vErr.Message)
			return
		}
		h.logger.Error("create order error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// UpdateOrder выполняет частичное обновление заказа: изменяются только
// переданные поля.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := model.OrderPatch{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Size:         req.Size,
		Notes:        req.Notes,
	}
	if req.TotalAmount != nil {
		total := toCents(*req.TotalAmount)
		patch.TotalCents = &total
	}
	if req.AdvanceAmount != nil {
		advance := toCents(*req.AdvanceAmount)
		patch.AdvanceCents = &advance
	}
	if req.OrderDate != nil && *req.OrderDate != "" {
		t, err := parseDate(*req.OrderDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid orderDate")
			return
		}
		patch.OrderDate = &t
	}
	if req.DeliveryDate != nil {
		// Пустая строка снимает дату поставки, непустая должна разобраться.
		var newDate *time.Time
		if *req.DeliveryDate != "" {
			t, err := parseDate(*req.DeliveryDate)
			if err != nil {
				writeMessage(w, http.StatusBadRequest, "invalid deliveryDate")
				return
			}
			newDate = &t
		}
		patch.DeliveryDate = &newDate
	}

	order, err := h.service.UpdateOrder(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			writeMessage(w, http.StatusBadRequest, vErr.Message)
			return
		}
		h.logger.Error("update order error", zap.Error(err), zap.String("orderID", id))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.String("orderID", id))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// DeleteOrder удаляет заказ по идентификатору.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("delete order error", zap.Error(err), zap.String("orderID", id))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeMessage(w, http.StatusOK, "Order deleted successfully")
}

// ListOrders возвращает список заказов с учётом фильтра и сортировки.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.ListFilter{
		Search:        q.Get("search"),
		PaymentStatus: model.PaymentStatus(q.Get("paymentStatus")),
	}
	sort := model.ListSort{
		Field: q.Get("sortBy"),
		Desc:  q.Get("sortOrder") != "asc",
	}

	orders, err := h.service.ListOrders(r.Context(), filter, sort)
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	TotalOrders    int64   `json:"totalOrders"`
	PendingOrders  int64   `json:"pendingOrders"`
	PartialOrders  int64   `json:"partialOrders"`
	PaidOrders     int64   `json:"paidOrders"`
	TodayOrders    int64   `json:"todayOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
	PaidRevenue    float64 `json:"paidRevenue"`
	PendingRevenue float64 `json:"pendingRevenue"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
}

// GetStats возвращает агрегированные показатели панели управления.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.logger.Error("get stats error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalOrders:    stats.TotalOrders,
		PendingOrders:  stats.PendingOrders,
		PartialOrders:  stats.PartialOrders,
		PaidOrders:     stats.PaidOrders,
		TodayOrders:    stats.TodayOrders,
		TotalRevenue:   float64(stats.TotalRevenueCents) / 100,
		PaidRevenue:    float64(stats.PaidRevenueCents) / 100,
		PendingRevenue: float64(stats.PendingRevenueCents) / 100,
		MonthlyRevenue: float64(stats.MonthlyRevenueCents) / 100,
	})
}

// Health сообщает, что API запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "printshop orders API is running"})
}
