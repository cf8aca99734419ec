package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/techcar/api/internal/database"
	"github.com/techcar/api/internal/enum"
	"github.com/techcar/api/internal/logger"
)

const defaultLowStockThreshold = 5

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
	SumOrderTotalsByStatus(ctx context.Context, status string) (pgtype.Numeric, error)
	ListPartsBelowQuantity(ctx context.Context, threshold int32) ([]database.Part, error)
}

// ReportHandler handles workshop report endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/low-stock", h.LowStock)
}

// --- Response types ---

type orderSummaryReport struct {
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

type summaryResponse struct {
	Orders           orderSummaryReport `json:"orders"`
	CompletedRevenue string             `json:"completed_revenue"`
}

// --- Handlers ---

// Summary returns order counts per status and the revenue of completed orders.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var resp summaryResponse
	for _, entry := range []struct {
		status string
		dst    *int64
	}{
		{enum.OrderStatusInProgress, &resp.Orders.InProgress},
		{enum.OrderStatusCompleted, &resp.Orders.Completed},
		{enum.OrderStatusCancelled, &resp.Orders.Cancelled},
	} {
		count, err := h.store.CountOrdersByStatus(r.Context(), entry.status)
		if err != nil {
			logger.Errorf("count orders by status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		*entry.dst = count
	}

	revenue, err := h.store.SumOrderTotalsByStatus(r.Context(), enum.OrderStatusCompleted)
	if err != nil {
		logger.Errorf("sum completed order totals: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	resp.CompletedRevenue = numericToString(revenue)

	writeJSON(w, http.StatusOK, resp)
}

// LowStock returns parts at or below the given quantity threshold
// (?threshold=N, default 5), most depleted first.
func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := defaultLowStockThreshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid threshold"})
			return
		}
		threshold = v
	}

	parts, err := h.store.ListPartsBelowQuantity(r.Context(), int32(threshold))
	if err != nil {
		logger.Errorf("list low stock parts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]partResponse, len(parts))
	for i, p := range parts {
		resp[i] = toPartResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}
