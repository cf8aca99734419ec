package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/techcar/api/internal/database"
	"github.com/techcar/api/internal/logger"
	"github.com/techcar/api/internal/middleware"
	"github.com/techcar/api/internal/normalize"
	"github.com/techcar/api/internal/service"
)

// Websocket event names for the order feed.
const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, principal service.Principal, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateOrder(ctx context.Context, principal service.Principal, orderID string, req service.UpdateOrderRequest) (*service.OrderResult, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) (*service.OrderResult, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListServicesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Service, error)
	ListOrderItemsWithPartByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithPart, error)
}

// OrderNotifier broadcasts order events to websocket subscribers.
// Satisfied by *ws.Hub; nil disables broadcasting.
type OrderNotifier interface {
	Broadcast(event string, payload interface{})
}

// OrderHandler handles service order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	notifier OrderNotifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, notifier OrderNotifier) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Patch("/status", h.UpdateStatus)
		r.Delete("/", h.Delete)
	})
}

// --- Request / Response types ---

type orderServiceRequest struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type orderItemRequest struct {
	PartID   string `json:"part_id"`
	Quantity int32  `json:"quantity"`
}

type createOrderRequest struct {
	ClientID    string                `json:"client_id"`
	VehicleID   string                `json:"vehicle_id"`
	Description string                `json:"description"`
	Kilometers  int32                 `json:"kilometers"`
	Discount    decimal.Decimal       `json:"discount"`
	Services    []orderServiceRequest `json:"services"`
	Items       []orderItemRequest    `json:"items"`
}

type updateOrderRequest struct {
	ClientID    *string               `json:"client_id"`
	VehicleID   *string               `json:"vehicle_id"`
	Description *string               `json:"description"`
	Kilometers  *int32                `json:"kilometers"`
	Discount    *decimal.Decimal      `json:"discount"`
	Status      *string               `json:"status"`
	Services    []orderServiceRequest `json:"services"`
	Items       []orderItemRequest    `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	PartID    uuid.UUID `json:"part_id"`
	PartName  string    `json:"part_name"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
}

type orderSummaryResponse struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	VehicleID   uuid.UUID `json:"vehicle_id"`
	Description *string   `json:"description"`
	Kilometers  int32     `json:"kilometers"`
	Discount    string    `json:"discount"`
	TotalValue  string    `json:"total_value"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type orderResponse struct {
	orderSummaryResponse
	Services []orderServiceResponse `json:"services"`
	Items    []orderItemResponse    `json:"items"`
}

func toOrderSummaryResponse(o database.Order) orderSummaryResponse {
	resp := orderSummaryResponse{
		ID:         o.ID,
		ClientID:   o.ClientID,
		VehicleID:  o.VehicleID,
		Kilometers: o.Kilometers,
		Discount:   numericToString(o.Discount),
		TotalValue: numericToString(o.TotalValue),
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if o.Description.Valid {
		resp.Description = &o.Description.String
	}
	return resp
}

func toOrderResponse(order database.Order, services []database.Service, items []database.OrderItemWithPart) orderResponse {
	resp := orderResponse{
		orderSummaryResponse: toOrderSummaryResponse(order),
		Services:             make([]orderServiceResponse, len(services)),
		Items:                make([]orderItemResponse, len(items)),
	}
	for i, svc := range services {
		resp.Services[i] = orderServiceResponse{
			ID:          svc.ID,
			Description: svc.Description,
			Price:       numericToString(svc.Price),
		}
	}
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:        item.ID,
			PartID:    item.PartID,
			PartName:  item.PartName,
			Quantity:  item.Quantity,
			UnitPrice: numericToString(item.UnitPrice),
		}
	}
	return resp
}

func toServiceLines(lines []orderServiceRequest) []service.ServiceLineRequest {
	out := make([]service.ServiceLineRequest, len(lines))
	for i, line := range lines {
		out[i] = service.ServiceLineRequest{Description: normalize.Upper(line.Description), Price: line.Price}
	}
	return out
}

func toItemLines(lines []orderItemRequest) []service.ItemLineRequest {
	out := make([]service.ItemLineRequest, len(lines))
	for i, line := range lines {
		out[i] = service.ItemLineRequest{PartID: line.PartID, Quantity: line.Quantity}
	}
	return out
}

// --- Handlers ---

// List returns all orders, newest first, without their line details.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		logger.Errorf("list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderSummaryResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderSummaryResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order with its service and item lines.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		logger.Errorf("get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	services, err := h.store.ListServicesByOrder(r.Context(), id)
	if err != nil {
		logger.Errorf("list order services: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	items, err := h.store.ListOrderItemsWithPartByOrder(r.Context(), id)
	if err != nil {
		logger.Errorf("list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, services, items))
}

// Create opens a new service order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ClientID == "" || req.VehicleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id and vehicle_id are required"})
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), principal, service.CreateOrderRequest{
		ClientID:    req.ClientID,
		VehicleID:   req.VehicleID,
		Description: normalize.Upper(req.Description),
		Kilometers:  req.Kilometers,
		Discount:    req.Discount,
		Services:    toServiceLines(req.Services),
		Items:       toItemLines(req.Items),
	})
	if err != nil {
		h.writeOrderError(w, err, "create order")
		return
	}

	resp := toOrderResponse(result.Order, result.Services, result.Items)
	h.notify(EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// Update applies partial changes to an order.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.UpdateOrderRequest{
		ClientID:   req.ClientID,
		VehicleID:  req.VehicleID,
		Kilometers: req.Kilometers,
		Discount:   req.Discount,
		Status:     req.Status,
	}
	if req.Description != nil {
		description := normalize.Upper(*req.Description)
		svcReq.Description = &description
	}
	if req.Services != nil {
		svcReq.Services = toServiceLines(req.Services)
	}
	if req.Items != nil {
		svcReq.Items = toItemLines(req.Items)
	}

	result, err := h.svc.UpdateOrder(r.Context(), principal, chi.URLParam(r, "id"), svcReq)
	if err != nil {
		h.writeOrderError(w, err, "update order")
		return
	}

	resp := toOrderResponse(result.Order, result.Services, result.Items)
	h.notify(EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order through its lifecycle.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeOrderError(w, err, "update order status")
		return
	}

	resp := toOrderResponse(result.Order, result.Services, result.Items)
	h.notify(EventOrderStatusChanged, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes a non-completed order and returns its parts to stock.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		h.writeOrderError(w, err, "delete order")
		return
	}

	h.notify(EventOrderDeleted, map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func principalFromRequest(w http.ResponseWriter, r *http.Request) (service.Principal, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return service.Principal{}, false
	}
	return service.Principal{ID: claims.UserID, Role: claims.Role}, true
}

func (h *OrderHandler) notify(event string, payload interface{}) {
	if h.notifier != nil {
		h.notifier.Broadcast(event, payload)
	}
}

// writeOrderError maps service errors to HTTP status codes.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, op string) {
	var stockErr *service.InsufficientStockError
	var partErr *service.PartNotFoundError

	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     stockErr.Error(),
			"part_id":   stockErr.PartID,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.As(err, &partErr),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrVehicleNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDiscountNotAuthorized):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderFinalized),
		errors.Is(err, service.ErrOrderLocked):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case isOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		logger.Errorf("%s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isOrderValidationError(err error) bool {
	for _, target := range []error{
		service.ErrEmptyServices,
		service.ErrInvalidQuantity,
		service.ErrInvalidPrice,
		service.ErrInvalidClientID,
		service.ErrInvalidVehicleID,
		service.ErrInvalidPartID,
		service.ErrInvalidOrderID,
		service.ErrInvalidDiscount,
		service.ErrInvalidStatus,
		service.ErrVehicleClientMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func numericToString(n pgtype.Numeric) string {
	return database.NumericToDecimal(n).StringFixed(2)
}
