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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/techcar/api/internal/database"
	"github.com/techcar/api/internal/logger"
	"github.com/techcar/api/internal/normalize"
)

// VehicleStore defines the database methods needed by vehicle handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type VehicleStore interface {
	ListVehicles(ctx context.Context) ([]database.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (database.Vehicle, error)
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	CreateVehicle(ctx context.Context, arg database.CreateVehicleParams) (database.Vehicle, error)
	UpdateVehicle(ctx context.Context, arg database.UpdateVehicleParams) (database.Vehicle, error)
	DeleteVehicle(ctx context.Context, id uuid.UUID) error
	CountOrdersByVehicle(ctx context.Context, vehicleID uuid.UUID) (int64, error)
	ListOrdersByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]database.Order, error)
}

// VehicleHandler handles vehicle CRUD endpoints.
type VehicleHandler struct {
	store VehicleStore
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(store VehicleStore) *VehicleHandler {
	return &VehicleHandler{store: store}
}

// RegisterRoutes registers vehicle endpoints on the given Chi router.
func (h *VehicleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/orders", h.Orders)
	})
}

// --- Request / Response types ---

type vehicleRequest struct {
	Plate      string `json:"plate"`
	Model      string `json:"model"`
	Brand      string `json:"brand"`
	Kilometers int32  `json:"kilometers"`
	Year       *int32 `json:"year"`
	ClientID   string `json:"client_id"`
}

type vehicleResponse struct {
	ID         uuid.UUID `json:"id"`
	Plate      string    `json:"plate"`
	Model      string    `json:"model"`
	Brand      string    `json:"brand"`
	Kilometers int32     `json:"kilometers"`
	Year       *int32    `json:"year"`
	ClientID   uuid.UUID `json:"client_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toVehicleResponse(v database.Vehicle) vehicleResponse {
	resp := vehicleResponse{
		ID:         v.ID,
		Plate:      v.Plate,
		Model:      v.Model,
		Brand:      v.Brand,
		Kilometers: v.Kilometers,
		ClientID:   v.ClientID,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
	if v.Year.Valid {
		resp.Year = &v.Year.Int32
	}
	return resp
}

// validateVehicleRequest normalizes and checks a create/update payload.
// Plates are stored uppercased without separators (Brazilian plates are
// seven characters, old format or Mercosul).
func validateVehicleRequest(req *vehicleRequest) string {
	req.Plate = normalize.Plate(req.Plate)
	req.Model = normalize.Upper(req.Model)
	req.Brand = normalize.Upper(req.Brand)
	if len(req.Plate) != 7 {
		return "plate must have 7 characters"
	}
	if req.Model == "" || req.Brand == "" {
		return "model and brand are required"
	}
	if req.Kilometers < 1 {
		return "kilometers must be >= 1"
	}
	if req.ClientID == "" {
		return "client_id is required"
	}
	return ""
}

func yearOrNull(year *int32) pgtype.Int4 {
	if year == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *year, Valid: true}
}

// --- Handlers ---

// List returns all vehicles, newest first.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.store.ListVehicles(r.Context())
	if err != nil {
		logger.Errorf("list vehicles: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]vehicleResponse, len(vehicles))
	for i, v := range vehicles {
		resp[i] = toVehicleResponse(v)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single vehicle by ID.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle ID"})
		return
	}

	vehicle, err := h.store.GetVehicle(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		logger.Errorf("get vehicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toVehicleResponse(vehicle))
}

// Create registers a new vehicle for an existing client.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validateVehicleRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client_id"})
		return
	}
	if _, err := h.store.GetClient(r.Context(), clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		logger.Errorf("get client for vehicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	vehicle, err := h.store.CreateVehicle(r.Context(), database.CreateVehicleParams{
		Plate:      req.Plate,
		Model:      req.Model,
		Brand:      req.Brand,
		Kilometers: req.Kilometers,
		Year:       yearOrNull(req.Year),
		ClientID:   clientID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "plate already registered"})
			return
		}
		logger.Errorf("create vehicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toVehicleResponse(vehicle))
}

// Update modifies an existing vehicle.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle ID"})
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validateVehicleRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client_id"})
		return
	}
	if _, err := h.store.GetClient(r.Context(), clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		logger.Errorf("get client for vehicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	vehicle, err := h.store.UpdateVehicle(r.Context(), database.UpdateVehicleParams{
		ID:         id,
		Plate:      req.Plate,
		Model:      req.Model,
		Brand:      req.Brand,
		Kilometers: req.Kilometers,
		Year:       yearOrNull(req.Year),
		ClientID:   clientID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "plate already registered"})
			return
		}
		logger.Errorf("update vehicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toVehicleResponse(vehicle))
}

// Delete removes a vehicle. Vehicles referenced by service orders are kept
// for the records and cannot be deleted.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle ID"})
		return
	}

	count, err := h.store.CountOrdersByVehicle(r.Context(), id)
	if err != nil {
		logger.Errorf("count vehicle orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "vehicle has service orders and cannot be deleted"})
		return
	}

	if err := h.store.DeleteVehicle(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		// An order may have been created between the count and the delete.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "vehicle has service orders and cannot be deleted"})
			return
		}
		logger.Errorf("delete vehicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Orders returns the vehicle's service order history.
func (h *VehicleHandler) Orders(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vehicle ID"})
		return
	}

	if _, err := h.store.GetVehicle(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		logger.Errorf("get vehicle for orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOrdersByVehicle(r.Context(), id)
	if err != nil {
		logger.Errorf("list vehicle orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderSummaryResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderSummaryResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}
