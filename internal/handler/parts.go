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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/techcar/api/internal/database"
	"github.com/techcar/api/internal/logger"
	"github.com/techcar/api/internal/normalize"
)

// PartStore defines the database methods needed by part handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PartStore interface {
	ListParts(ctx context.Context) ([]database.Part, error)
	GetPart(ctx context.Context, id uuid.UUID) (database.Part, error)
	CreatePart(ctx context.Context, arg database.CreatePartParams) (database.Part, error)
	UpdatePart(ctx context.Context, arg database.UpdatePartParams) (database.Part, error)
	SetPartQuantity(ctx context.Context, id uuid.UUID, quantity int32) (database.Part, error)
	DeletePart(ctx context.Context, id uuid.UUID) error
	CountOrderItemsByPart(ctx context.Context, partID uuid.UUID) (int64, error)
}

// PartHandler handles inventory part endpoints.
type PartHandler struct {
	store PartStore
}

// NewPartHandler creates a new PartHandler.
func NewPartHandler(store PartStore) *PartHandler {
	return &PartHandler{store: store}
}

// RegisterRoutes registers part endpoints on the given Chi router.
func (h *PartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Patch("/stock", h.SetStock)
	})
}

// --- Request / Response types ---

type partRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int32           `json:"quantity"`
}

type setStockRequest struct {
	Quantity int32 `json:"quantity"`
}

type partResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	UnitPrice   string    `json:"unit_price"`
	Quantity    int32     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPartResponse(p database.Part) partResponse {
	resp := partResponse{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: numericToString(p.UnitPrice),
		Quantity:  p.Quantity,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Description.Valid {
		resp.Description = &p.Description.String
	}
	return resp
}

// validatePartRequest normalizes and checks a create/update payload.
func validatePartRequest(req *partRequest) string {
	req.Name = normalize.Upper(req.Name)
	req.Description = normalize.Upper(req.Description)
	if req.Name == "" {
		return "name is required"
	}
	if req.UnitPrice.IsNegative() {
		return "unit_price must be >= 0"
	}
	if req.Quantity < 0 {
		return "quantity must be >= 0"
	}
	return ""
}

// --- Handlers ---

// List returns all parts, newest first.
func (h *PartHandler) List(w http.ResponseWriter, r *http.Request) {
	parts, err := h.store.ListParts(r.Context())
	if err != nil {
		logger.Errorf("list parts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]partResponse, len(parts))
	for i, p := range parts {
		resp[i] = toPartResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single part by ID.
func (h *PartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid part ID"})
		return
	}

	part, err := h.store.GetPart(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "part not found"})
			return
		}
		logger.Errorf("get part: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPartResponse(part))
}

// Create adds a new part to the inventory.
func (h *PartHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req partRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validatePartRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	part, err := h.store.CreatePart(r.Context(), database.CreatePartParams{
		Name:        req.Name,
		Description: textOrNull(req.Description),
		UnitPrice:   database.DecimalToNumeric(req.UnitPrice.Round(2)),
		Quantity:    req.Quantity,
	})
	if err != nil {
		logger.Errorf("create part: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toPartResponse(part))
}

// Update modifies an existing part, including an absolute stock level.
func (h *PartHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid part ID"})
		return
	}

	var req partRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validatePartRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	part, err := h.store.UpdatePart(r.Context(), database.UpdatePartParams{
		ID:          id,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		UnitPrice:   database.DecimalToNumeric(req.UnitPrice.Round(2)),
		Quantity:    req.Quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "part not found"})
			return
		}
		logger.Errorf("update part: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPartResponse(part))
}

// SetStock overwrites the part's stock level with an absolute count, e.g.
// after a physical inventory recount.
func (h *PartHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid part ID"})
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be >= 0"})
		return
	}

	part, err := h.store.SetPartQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "part not found"})
			return
		}
		logger.Errorf("set part stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPartResponse(part))
}

// Delete removes a part. Parts referenced by order items are part of the
// service history and cannot be deleted.
func (h *PartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid part ID"})
		return
	}

	count, err := h.store.CountOrderItemsByPart(r.Context(), id)
	if err != nil {
		logger.Errorf("count part order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "part is used by service orders and cannot be deleted"})
		return
	}

	if err := h.store.DeletePart(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "part not found"})
			return
		}
		// An order may have consumed the part between the count and the delete.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "part is used by service orders and cannot be deleted"})
			return
		}
		logger.Errorf("delete part: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
