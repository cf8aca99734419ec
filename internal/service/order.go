package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/techcar/api/internal/database"
	"github.com/techcar/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrEmptyServices         = errors.New("at least one service is required")
	ErrInvalidQuantity       = errors.New("quantity must be > 0")
	ErrInvalidPrice          = errors.New("price must be >= 0")
	ErrInvalidClientID       = errors.New("invalid client_id")
	ErrInvalidVehicleID      = errors.New("invalid vehicle_id")
	ErrInvalidPartID         = errors.New("invalid part_id")
	ErrInvalidOrderID        = errors.New("invalid order id")
	ErrClientNotFound        = errors.New("client not found")
	ErrVehicleNotFound       = errors.New("vehicle not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrVehicleClientMismatch = errors.New("vehicle does not belong to client")
	ErrDiscountNotAuthorized = errors.New("only admins can change the discount")
	ErrInvalidDiscount       = errors.New("discount must be >= 0 and not exceed the order total")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrOrderFinalized        = errors.New("completed or cancelled orders cannot be changed")
	ErrOrderLocked           = errors.New("completed orders cannot be deleted")
)

// PartNotFoundError reports which requested part does not exist.
type PartNotFoundError struct {
	PartID uuid.UUID
}

func (e *PartNotFoundError) Error() string {
	return fmt.Sprintf("part %s not found", e.PartID)
}

// InsufficientStockError reports which part cannot cover the requested
// quantity. Available accounts for stock the order being updated would
// return to the shelf.
type InsufficientStockError struct {
	PartID    uuid.UUID
	PartName  string
	Available int32
	Requested int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for part %q: available %d, requested %d", e.PartName, e.Available, e.Requested)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to write orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (database.Vehicle, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	LockPartsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Part, error)
	DecrementPartStock(ctx context.Context, arg database.AdjustPartStockParams) error
	IncrementPartStock(ctx context.Context, arg database.AdjustPartStockParams) error
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	CreateOrderService(ctx context.Context, arg database.CreateOrderServiceParams) (database.Service, error)
	ListServicesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Service, error)
	DeleteServicesByOrder(ctx context.Context, orderID uuid.UUID) error
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemsWithPartByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithPart, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Principal identifies the authenticated staff member acting on an order.
type Principal struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the principal may change discounts.
func (p Principal) IsAdmin() bool {
	return p.Role == enum.UserRoleAdmin
}

// ServiceLineRequest is a labor line on an order.
type ServiceLineRequest struct {
	Description string
	Price       decimal.Decimal
}

// ItemLineRequest is a part consumption line on an order.
type ItemLineRequest struct {
	PartID   string
	Quantity int32
}

// CreateOrderRequest is the validated input for opening an order.
type CreateOrderRequest struct {
	ClientID    string
	VehicleID   string
	Description string
	Kilometers  int32
	Discount    decimal.Decimal
	Services    []ServiceLineRequest
	Items       []ItemLineRequest
}

// UpdateOrderRequest carries partial changes to an open order. Nil fields
// keep their current value; a non-nil Items or Services slice replaces the
// existing lines wholesale.
type UpdateOrderRequest struct {
	ClientID    *string
	VehicleID   *string
	Description *string
	Kilometers  *int32
	Discount    *decimal.Decimal
	Status      *string
	Services    []ServiceLineRequest
	Items       []ItemLineRequest
}

// OrderResult is an order with its service and item lines hydrated.
type OrderResult struct {
	Order    database.Order
	Services []database.Service
	Items    []database.OrderItemWithPart
}

// OrderService handles order business logic: pricing, stock movements, and
// the status lifecycle, all inside a single transaction per call.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates, prices, and opens an order atomically, consuming
// part stock under row locks.
func (s *OrderService) CreateOrder(ctx context.Context, principal Principal, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Services) == 0 {
		return nil, ErrEmptyServices
	}
	for i, line := range req.Services {
		if line.Price.IsNegative() {
			return nil, fmt.Errorf("services[%d]: %w", i, ErrInvalidPrice)
		}
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	discount := req.Discount.Round(2)
	if discount.IsNegative() {
		return nil, ErrInvalidDiscount
	}
	if discount.IsPositive() && !principal.IsAdmin() {
		return nil, ErrDiscountNotAuthorized
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, ErrInvalidClientID
	}
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, ErrInvalidVehicleID
	}

	itemLines, err := parseItemLines(req.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetClient(ctx, clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	vehicle, err := store.GetVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	if vehicle.ClientID != clientID {
		return nil, ErrVehicleClientMismatch
	}

	// Lock parts and consume stock. Requested quantities are aggregated per
	// part so an order listing the same part twice checks the combined need.
	needed := aggregateQuantities(itemLines)
	parts, err := lockParts(ctx, store, needed)
	if err != nil {
		return nil, err
	}
	for _, id := range sortedPartIDs(needed) {
		part := parts[id]
		if part.Quantity < needed[id] {
			return nil, &InsufficientStockError{
				PartID:    id,
				PartName:  part.Name,
				Available: part.Quantity,
				Requested: needed[id],
			}
		}
	}

	servicesTotal := sumServicePrices(req.Services)
	partsTotal := decimal.Zero
	for _, line := range itemLines {
		unitPrice := database.NumericToDecimal(parts[line.partID].UnitPrice)
		partsTotal = partsTotal.Add(unitPrice.Mul(decimal.NewFromInt32(line.quantity)))
	}
	total := servicesTotal.Add(partsTotal).Sub(discount)
	if total.IsNegative() {
		return nil, ErrInvalidDiscount
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		ClientID:    clientID,
		VehicleID:   vehicleID,
		Description: textOrNull(req.Description),
		Kilometers:  req.Kilometers,
		Discount:    database.DecimalToNumeric(discount),
		TotalValue:  database.DecimalToNumeric(total),
		Status:      enum.OrderStatusInProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := insertServiceLines(ctx, store, order.ID, req.Services); err != nil {
		return nil, err
	}
	for _, line := range itemLines {
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			PartID:    line.partID,
			Quantity:  line.quantity,
			UnitPrice: parts[line.partID].UnitPrice,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}
	for _, id := range sortedPartIDs(needed) {
		err := store.DecrementPartStock(ctx, database.AdjustPartStockParams{ID: id, Quantity: needed[id]})
		if err != nil {
			return nil, fmt.Errorf("decrement stock for part %s: %w", id, err)
		}
	}

	result, err := hydrateOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// UpdateOrder applies partial changes to an order. Replacing the item lines
// returns the old quantities to stock and re-checks availability for the new
// ones under the same row locks. A status change goes through the same
// lifecycle rules as UpdateOrderStatus, after the other changes are applied.
func (s *OrderService) UpdateOrder(ctx context.Context, principal Principal, orderID string, req UpdateOrderRequest) (*OrderResult, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}
	if req.Status != nil && !validOrderStatus(*req.Status) {
		return nil, ErrInvalidStatus
	}
	var reqClientID, reqVehicleID uuid.UUID
	if req.ClientID != nil {
		if reqClientID, err = uuid.Parse(*req.ClientID); err != nil {
			return nil, ErrInvalidClientID
		}
	}
	if req.VehicleID != nil {
		if reqVehicleID, err = uuid.Parse(*req.VehicleID); err != nil {
			return nil, ErrInvalidVehicleID
		}
	}
	for i, line := range req.Services {
		if line.Price.IsNegative() {
			return nil, fmt.Errorf("services[%d]: %w", i, ErrInvalidPrice)
		}
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	mutates := req.ClientID != nil || req.VehicleID != nil ||
		req.Description != nil || req.Kilometers != nil || req.Discount != nil ||
		req.Services != nil || req.Items != nil
	if order.Status != enum.OrderStatusInProgress {
		// Finalized orders accept nothing but a same-status no-op.
		if mutates || (req.Status != nil && *req.Status != order.Status) {
			return nil, ErrOrderFinalized
		}
		result, err := hydrateOrder(ctx, store, order)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return result, nil
	}

	// Reassigning the client or vehicle re-runs the existence and ownership
	// checks against the effective pair, as Create does.
	clientID := order.ClientID
	if req.ClientID != nil {
		clientID = reqClientID
	}
	vehicleID := order.VehicleID
	if req.VehicleID != nil {
		vehicleID = reqVehicleID
	}
	if req.ClientID != nil {
		if _, err := store.GetClient(ctx, clientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrClientNotFound
			}
			return nil, fmt.Errorf("get client: %w", err)
		}
	}
	if req.ClientID != nil || req.VehicleID != nil {
		vehicle, err := store.GetVehicle(ctx, vehicleID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrVehicleNotFound
			}
			return nil, fmt.Errorf("get vehicle: %w", err)
		}
		if vehicle.ClientID != clientID {
			return nil, ErrVehicleClientMismatch
		}
	}

	discount := database.NumericToDecimal(order.Discount)
	if req.Discount != nil {
		newDiscount := req.Discount.Round(2)
		if newDiscount.IsNegative() {
			return nil, ErrInvalidDiscount
		}
		if !newDiscount.Equal(discount) && !principal.IsAdmin() {
			return nil, ErrDiscountNotAuthorized
		}
		discount = newDiscount
	}

	if req.Items != nil {
		if err := s.replaceItems(ctx, store, order.ID, req.Items); err != nil {
			return nil, err
		}
	}
	if req.Services != nil {
		if len(req.Services) == 0 {
			return nil, ErrEmptyServices
		}
		if err := store.DeleteServicesByOrder(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("delete services: %w", err)
		}
		if err := insertServiceLines(ctx, store, order.ID, req.Services); err != nil {
			return nil, err
		}
	}

	services, err := store.ListServicesByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	servicesTotal := decimal.Zero
	for _, svc := range services {
		servicesTotal = servicesTotal.Add(database.NumericToDecimal(svc.Price))
	}
	partsTotal := decimal.Zero
	for _, item := range items {
		unitPrice := database.NumericToDecimal(item.UnitPrice)
		partsTotal = partsTotal.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	total := servicesTotal.Add(partsTotal).Sub(discount)
	if total.IsNegative() {
		return nil, ErrInvalidDiscount
	}

	description := order.Description
	if req.Description != nil {
		description = textOrNull(*req.Description)
	}
	kilometers := order.Kilometers
	if req.Kilometers != nil {
		kilometers = *req.Kilometers
	}

	order, err = store.UpdateOrder(ctx, database.UpdateOrderParams{
		ID:          order.ID,
		ClientID:    clientID,
		VehicleID:   vehicleID,
		Description: description,
		Kilometers:  kilometers,
		Discount:    database.DecimalToNumeric(discount),
		TotalValue:  database.DecimalToNumeric(total),
		Status:      order.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if req.Status != nil && *req.Status != order.Status {
		order, err = s.transition(ctx, store, order, *req.Status)
		if err != nil {
			return nil, err
		}
	}

	result, err := hydrateOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// UpdateOrderStatus moves an order through its lifecycle. Cancelling returns
// the consumed parts to stock. Setting the current status again is a no-op.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, status string) (*OrderResult, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}
	if !validOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if status != order.Status {
		order, err = s.transition(ctx, store, order, status)
		if err != nil {
			return nil, err
		}
	}

	result, err := hydrateOrder(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// DeleteOrder removes an order together with its services and items. A
// completed order is locked and cannot be deleted; any other order returns
// its parts to stock first.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return ErrInvalidOrderID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}

	if order.Status == enum.OrderStatusCompleted {
		return ErrOrderLocked
	}

	if err := restoreStock(ctx, store, order.ID); err != nil {
		return err
	}
	if err := store.DeleteServicesByOrder(ctx, order.ID); err != nil {
		return fmt.Errorf("delete services: %w", err)
	}
	if err := store.DeleteOrderItemsByOrder(ctx, order.ID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err := store.DeleteOrder(ctx, order.ID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return tx.Commit(ctx)
}

// transition applies a status change. Only an in-progress order can move,
// and only to COMPLETED or CANCELLED.
func (s *OrderService) transition(ctx context.Context, store OrderStore, order database.Order, status string) (database.Order, error) {
	if order.Status != enum.OrderStatusInProgress {
		return database.Order{}, ErrOrderFinalized
	}
	if status == enum.OrderStatusCancelled {
		if err := restoreStock(ctx, store, order.ID); err != nil {
			return database.Order{}, err
		}
	}
	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: status})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// replaceItems swaps an order's item lines for new ones. Old and new
// quantities are netted per part under a single set of row locks, so
// availability is judged as if the old items were already back on the shelf.
func (s *OrderService) replaceItems(ctx context.Context, store OrderStore, orderID uuid.UUID, items []ItemLineRequest) error {
	newLines, err := parseItemLines(items)
	if err != nil {
		return err
	}
	newNeeded := aggregateQuantities(newLines)

	existing, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	oldNeeded := make(map[uuid.UUID]int32)
	for _, item := range existing {
		oldNeeded[item.PartID] += item.Quantity
	}

	union := make(map[uuid.UUID]int32, len(newNeeded)+len(oldNeeded))
	for id := range newNeeded {
		union[id] = 0
	}
	for id := range oldNeeded {
		union[id] = 0
	}
	parts, err := lockParts(ctx, store, union)
	if err != nil {
		// Parts referenced only by the old items may have been deleted
		// since; they only ever gain stock back, so tolerate the miss.
		var notFound *PartNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		if _, isNew := newNeeded[notFound.PartID]; isNew {
			return err
		}
		delete(union, notFound.PartID)
		delete(oldNeeded, notFound.PartID)
		parts, err = lockParts(ctx, store, union)
		if err != nil {
			return err
		}
	}

	for _, id := range sortedPartIDs(newNeeded) {
		part := parts[id]
		available := part.Quantity + oldNeeded[id]
		if available < newNeeded[id] {
			return &InsufficientStockError{
				PartID:    id,
				PartName:  part.Name,
				Available: available,
				Requested: newNeeded[id],
			}
		}
	}

	if err := store.DeleteOrderItemsByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	for _, line := range newLines {
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   orderID,
			PartID:    line.partID,
			Quantity:  line.quantity,
			UnitPrice: parts[line.partID].UnitPrice,
		})
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	for _, id := range sortedPartIDs(union) {
		delta := newNeeded[id] - oldNeeded[id]
		switch {
		case delta > 0:
			err = store.DecrementPartStock(ctx, database.AdjustPartStockParams{ID: id, Quantity: delta})
		case delta < 0:
			err = store.IncrementPartStock(ctx, database.AdjustPartStockParams{ID: id, Quantity: -delta})
		}
		if err != nil {
			return fmt.Errorf("adjust stock for part %s: %w", id, err)
		}
	}
	return nil
}

// restoreStock returns all of an order's item quantities to their parts.
func restoreStock(ctx context.Context, store OrderStore, orderID uuid.UUID) error {
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	restore := make(map[uuid.UUID]int32)
	for _, item := range items {
		restore[item.PartID] += item.Quantity
	}
	for _, id := range sortedPartIDs(restore) {
		err := store.IncrementPartStock(ctx, database.AdjustPartStockParams{ID: id, Quantity: restore[id]})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("increment stock for part %s: %w", id, err)
		}
	}
	return nil
}

// --- Helpers ---

func validOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusInProgress, enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

type itemLine struct {
	partID   uuid.UUID
	quantity int32
}

func parseItemLines(items []ItemLineRequest) ([]itemLine, error) {
	lines := make([]itemLine, 0, len(items))
	for i, item := range items {
		id, err := uuid.Parse(item.PartID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidPartID)
		}
		lines = append(lines, itemLine{partID: id, quantity: item.Quantity})
	}
	return lines, nil
}

func aggregateQuantities(lines []itemLine) map[uuid.UUID]int32 {
	needed := make(map[uuid.UUID]int32, len(lines))
	for _, line := range lines {
		needed[line.partID] += line.quantity
	}
	return needed
}

// lockParts locks the part rows for the given ids and returns them by id.
// Reports the first missing part as a PartNotFoundError.
func lockParts(ctx context.Context, store OrderStore, needed map[uuid.UUID]int32) (map[uuid.UUID]database.Part, error) {
	ids := sortedPartIDs(needed)
	if len(ids) == 0 {
		return map[uuid.UUID]database.Part{}, nil
	}
	parts, err := store.LockPartsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock parts: %w", err)
	}
	byID := make(map[uuid.UUID]database.Part, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &PartNotFoundError{PartID: id}
		}
	}
	return byID, nil
}

func sortedPartIDs(m map[uuid.UUID]int32) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

func sumServicePrices(lines []ServiceLineRequest) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Round(2))
	}
	return total
}

func insertServiceLines(ctx context.Context, store OrderStore, orderID uuid.UUID, lines []ServiceLineRequest) error {
	for _, line := range lines {
		_, err := store.CreateOrderService(ctx, database.CreateOrderServiceParams{
			OrderID:     orderID,
			Description: line.Description,
			Price:       database.DecimalToNumeric(line.Price.Round(2)),
		})
		if err != nil {
			return fmt.Errorf("create order service: %w", err)
		}
	}
	return nil
}

func hydrateOrder(ctx context.Context, store OrderStore, order database.Order) (*OrderResult, error) {
	services, err := store.ListServicesByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	items, err := store.ListOrderItemsWithPartByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{Order: order, Services: services, Items: items}, nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
