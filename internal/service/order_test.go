package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/techcar/api/internal/database"
	"github.com/techcar/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getClientFn             func(ctx context.Context, id uuid.UUID) (database.Client, error)
	getVehicleFn            func(ctx context.Context, id uuid.UUID) (database.Vehicle, error)
	getOrderFn              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	lockPartsByIDsFn        func(ctx context.Context, ids []uuid.UUID) ([]database.Part, error)
	decrementPartStockFn    func(ctx context.Context, arg database.AdjustPartStockParams) error
	incrementPartStockFn    func(ctx context.Context, arg database.AdjustPartStockParams) error
	createOrderFn           func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	updateOrderFn           func(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	updateOrderStatusFn     func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	deleteOrderFn           func(ctx context.Context, id uuid.UUID) error
	createOrderServiceFn    func(ctx context.Context, arg database.CreateOrderServiceParams) (database.Service, error)
	listServicesByOrderFn   func(ctx context.Context, orderID uuid.UUID) ([]database.Service, error)
	deleteServicesByOrderFn func(ctx context.Context, orderID uuid.UUID) error
	createOrderItemFn       func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	listOrderItemsFn        func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listOrderItemsPartFn    func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithPart, error)
	deleteOrderItemsFn      func(ctx context.Context, orderID uuid.UUID) error
}

func (m *mockOrderStore) GetClient(ctx context.Context, id uuid.UUID) (database.Client, error) {
	return m.getClientFn(ctx, id)
}
func (m *mockOrderStore) GetVehicle(ctx context.Context, id uuid.UUID) (database.Vehicle, error) {
	return m.getVehicleFn(ctx, id)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderStore) LockPartsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Part, error) {
	return m.lockPartsByIDsFn(ctx, ids)
}
func (m *mockOrderStore) DecrementPartStock(ctx context.Context, arg database.AdjustPartStockParams) error {
	return m.decrementPartStockFn(ctx, arg)
}
func (m *mockOrderStore) IncrementPartStock(ctx context.Context, arg database.AdjustPartStockParams) error {
	return m.incrementPartStockFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error) {
	return m.updateOrderFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.deleteOrderFn(ctx, id)
}
func (m *mockOrderStore) CreateOrderService(ctx context.Context, arg database.CreateOrderServiceParams) (database.Service, error) {
	return m.createOrderServiceFn(ctx, arg)
}
func (m *mockOrderStore) ListServicesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Service, error) {
	return m.listServicesByOrderFn(ctx, orderID)
}
func (m *mockOrderStore) DeleteServicesByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteServicesByOrderFn(ctx, orderID)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) ListOrderItemsWithPartByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithPart, error) {
	return m.listOrderItemsPartFn(ctx, orderID)
}
func (m *mockOrderStore) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderItemsFn(ctx, orderID)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := database.NumericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// orderFixture holds the ids shared by the default mock store.
type orderFixture struct {
	clientID   uuid.UUID
	vehicleID  uuid.UUID
	partID     uuid.UUID
	store      *mockOrderStore
	decrements []database.AdjustPartStockParams
	increments []database.AdjustPartStockParams
	created    []database.CreateOrderItemParams
}

// newFixture wires a mock store where the client and vehicle exist and
// belong together, and one part is in stock with the given quantity and
// unit price. Individual tests override the functions they care about.
func newFixture(stock int32, unitPrice string) *orderFixture {
	f := &orderFixture{
		clientID:  uuid.New(),
		vehicleID: uuid.New(),
		partID:    uuid.New(),
	}
	part := database.Part{
		ID:        f.partID,
		Name:      "Oil filter",
		UnitPrice: makeNumeric(unitPrice),
		Quantity:  stock,
	}
	f.store = &mockOrderStore{
		getClientFn: func(ctx context.Context, id uuid.UUID) (database.Client, error) {
			if id == f.clientID {
				return database.Client{ID: f.clientID, Name: "JOAO SILVA"}, nil
			}
			return database.Client{}, pgx.ErrNoRows
		},
		getVehicleFn: func(ctx context.Context, id uuid.UUID) (database.Vehicle, error) {
			if id == f.vehicleID {
				return database.Vehicle{ID: f.vehicleID, ClientID: f.clientID, Plate: "PPW1020"}, nil
			}
			return database.Vehicle{}, pgx.ErrNoRows
		},
		lockPartsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]database.Part, error) {
			var parts []database.Part
			for _, id := range ids {
				if id == f.partID {
					parts = append(parts, part)
				}
			}
			return parts, nil
		},
		decrementPartStockFn: func(ctx context.Context, arg database.AdjustPartStockParams) error {
			f.decrements = append(f.decrements, arg)
			return nil
		},
		incrementPartStockFn: func(ctx context.Context, arg database.AdjustPartStockParams) error {
			f.increments = append(f.increments, arg)
			return nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:          uuid.New(),
				ClientID:    arg.ClientID,
				VehicleID:   arg.VehicleID,
				Description: arg.Description,
				Kilometers:  arg.Kilometers,
				Discount:    arg.Discount,
				TotalValue:  arg.TotalValue,
				Status:      arg.Status,
			}, nil
		},
		createOrderServiceFn: func(ctx context.Context, arg database.CreateOrderServiceParams) (database.Service, error) {
			return database.Service{ID: uuid.New(), OrderID: arg.OrderID, Description: arg.Description, Price: arg.Price}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			f.created = append(f.created, arg)
			return database.OrderItem{ID: uuid.New(), OrderID: arg.OrderID, PartID: arg.PartID, Quantity: arg.Quantity, UnitPrice: arg.UnitPrice}, nil
		},
		listServicesByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.Service, error) {
			return nil, nil
		},
		listOrderItemsPartFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithPart, error) {
			return nil, nil
		},
		listOrderItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return nil, nil
		},
	}
	return f
}

func admin() Principal { return Principal{ID: uuid.New(), Role: enum.UserRoleAdmin} }
func staff() Principal { return Principal{ID: uuid.New(), Role: enum.UserRoleUser} }

func baseRequest(f *orderFixture) CreateOrderRequest {
	return CreateOrderRequest{
		ClientID:   f.clientID.String(),
		VehicleID:  f.vehicleID.String(),
		Kilometers: 120000,
		Services: []ServiceLineRequest{
			{Description: "Oil change", Price: decimal.NewFromInt(30)},
			{Description: "Brake inspection", Price: decimal.NewFromInt(40)},
		},
		Items: []ItemLineRequest{
			{PartID: f.partID.String(), Quantity: 2},
		},
	}
}

// --- CreateOrder ---

func TestCreateOrderComputesTotal(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, tx := newTestService(f.store)

	result, err := svc.CreateOrder(context.Background(), staff(), baseRequest(f))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// 30 + 40 + 2*50.20 = 170.40
	if !numericEquals(result.Order.TotalValue, "170.40") {
		t.Errorf("TotalValue = %v, want 170.40", database.NumericToDecimal(result.Order.TotalValue))
	}
	if result.Order.Status != enum.OrderStatusInProgress {
		t.Errorf("Status = %q, want %q", result.Order.Status, enum.OrderStatusInProgress)
	}
	if len(f.decrements) != 1 || f.decrements[0].Quantity != 2 {
		t.Errorf("decrements = %+v, want one decrement of 2", f.decrements)
	}
	if !tx.committed {
		t.Error("transaction not committed")
	}
}

func TestCreateOrderSnapshotsUnitPrice(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	if _, err := svc.CreateOrder(context.Background(), staff(), baseRequest(f)); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if len(f.created) != 1 {
		t.Fatalf("created %d items, want 1", len(f.created))
	}
	if !numericEquals(f.created[0].UnitPrice, "50.20") {
		t.Errorf("UnitPrice = %v, want 50.20", database.NumericToDecimal(f.created[0].UnitPrice))
	}
}

func TestCreateOrderDiscountRequiresAdmin(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.Discount = decimal.NewFromInt(20)

	if _, err := svc.CreateOrder(context.Background(), staff(), req); !errors.Is(err, ErrDiscountNotAuthorized) {
		t.Errorf("err = %v, want ErrDiscountNotAuthorized", err)
	}

	result, err := svc.CreateOrder(context.Background(), admin(), req)
	if err != nil {
		t.Fatalf("CreateOrder as admin: %v", err)
	}
	// 170.40 - 20 = 150.40
	if !numericEquals(result.Order.TotalValue, "150.40") {
		t.Errorf("TotalValue = %v, want 150.40", database.NumericToDecimal(result.Order.TotalValue))
	}
}

func TestCreateOrderDiscountCannotExceedTotal(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.Discount = decimal.NewFromInt(200)

	if _, err := svc.CreateOrder(context.Background(), admin(), req); !errors.Is(err, ErrInvalidDiscount) {
		t.Errorf("err = %v, want ErrInvalidDiscount", err)
	}
}

func TestCreateOrderEmptyServices(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.Services = nil

	if _, err := svc.CreateOrder(context.Background(), staff(), req); !errors.Is(err, ErrEmptyServices) {
		t.Errorf("err = %v, want ErrEmptyServices", err)
	}
}

func TestCreateOrderInvalidQuantity(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.Items[0].Quantity = 0

	if _, err := svc.CreateOrder(context.Background(), staff(), req); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("err = %v, want ErrInvalidQuantity", err)
	}
}

func TestCreateOrderVehicleClientMismatch(t *testing.T) {
	f := newFixture(10, "50.20")
	otherClient := uuid.New()
	f.store.getClientFn = func(ctx context.Context, id uuid.UUID) (database.Client, error) {
		return database.Client{ID: id}, nil
	}
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.ClientID = otherClient.String()

	if _, err := svc.CreateOrder(context.Background(), staff(), req); !errors.Is(err, ErrVehicleClientMismatch) {
		t.Errorf("err = %v, want ErrVehicleClientMismatch", err)
	}
}

func TestCreateOrderPartNotFound(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	missing := uuid.New()
	req.Items = []ItemLineRequest{{PartID: missing.String(), Quantity: 1}}

	_, err := svc.CreateOrder(context.Background(), staff(), req)
	var notFound *PartNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want PartNotFoundError", err)
	}
	if notFound.PartID != missing {
		t.Errorf("PartID = %v, want %v", notFound.PartID, missing)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(1, "50.20")
	svc, tx := newTestService(f.store)

	_, err := svc.CreateOrder(context.Background(), staff(), baseRequest(f))
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.Available != 1 || stockErr.Requested != 2 {
		t.Errorf("got available %d requested %d, want 1 and 2", stockErr.Available, stockErr.Requested)
	}
	if len(f.decrements) != 0 {
		t.Errorf("stock was decremented despite failure: %+v", f.decrements)
	}
	if tx.committed {
		t.Error("transaction committed despite failure")
	}
}

func TestCreateOrderAggregatesDuplicatePartLines(t *testing.T) {
	f := newFixture(5, "10.00")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.Items = []ItemLineRequest{
		{PartID: f.partID.String(), Quantity: 3},
		{PartID: f.partID.String(), Quantity: 3},
	}

	_, err := svc.CreateOrder(context.Background(), staff(), req)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.Requested != 6 {
		t.Errorf("Requested = %d, want aggregated 6", stockErr.Requested)
	}
}

func TestCreateOrderClientNotFound(t *testing.T) {
	f := newFixture(10, "50.20")
	svc, _ := newTestService(f.store)

	req := baseRequest(f)
	req.ClientID = uuid.New().String()

	if _, err := svc.CreateOrder(context.Background(), staff(), req); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("err = %v, want ErrClientNotFound", err)
	}
}

// --- UpdateOrderStatus ---

func statusFixture(status string, items []database.OrderItem) (*orderFixture, database.Order) {
	f := newFixture(10, "50.20")
	order := database.Order{ID: uuid.New(), Status: status}
	f.store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		if id == order.ID {
			return order, nil
		}
		return database.Order{}, pgx.ErrNoRows
	}
	f.store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return items, nil
	}
	f.store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
		updated := order
		updated.Status = arg.Status
		return updated, nil
	}
	return f, order
}

func TestUpdateOrderStatusCancelRestoresStock(t *testing.T) {
	items := []database.OrderItem{{PartID: uuid.New(), Quantity: 2}}
	f, order := statusFixture(enum.OrderStatusInProgress, items)
	svc, _ := newTestService(f.store)

	result, err := svc.UpdateOrderStatus(context.Background(), order.ID.String(), enum.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if result.Order.Status != enum.OrderStatusCancelled {
		t.Errorf("Status = %q, want CANCELLED", result.Order.Status)
	}
	if len(f.increments) != 1 || f.increments[0].Quantity != 2 {
		t.Errorf("increments = %+v, want one increment of 2", f.increments)
	}
}

func TestUpdateOrderStatusCompleteKeepsStock(t *testing.T) {
	items := []database.OrderItem{{PartID: uuid.New(), Quantity: 2}}
	f, order := statusFixture(enum.OrderStatusInProgress, items)
	svc, _ := newTestService(f.store)

	result, err := svc.UpdateOrderStatus(context.Background(), order.ID.String(), enum.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if result.Order.Status != enum.OrderStatusCompleted {
		t.Errorf("Status = %q, want COMPLETED", result.Order.Status)
	}
	if len(f.increments) != 0 {
		t.Errorf("stock restored on completion: %+v", f.increments)
	}
}

func TestUpdateOrderStatusIdempotentCancel(t *testing.T) {
	f, order := statusFixture(enum.OrderStatusCancelled, nil)
	svc, _ := newTestService(f.store)

	result, err := svc.UpdateOrderStatus(context.Background(), order.ID.String(), enum.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if result.Order.Status != enum.OrderStatusCancelled {
		t.Errorf("Status = %q, want CANCELLED", result.Order.Status)
	}
	if len(f.increments) != 0 {
		t.Errorf("stock restored twice: %+v", f.increments)
	}
}

func TestUpdateOrderStatusFinalizedCannotMove(t *testing.T) {
	f, order := statusFixture(enum.OrderStatusCompleted, nil)
	svc, _ := newTestService(f.store)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID.String(), enum.OrderStatusCancelled)
	if !errors.Is(err, ErrOrderFinalized) {
		t.Errorf("err = %v, want ErrOrderFinalized", err)
	}
}

func TestUpdateOrderStatusInvalid(t *testing.T) {
	f, order := statusFixture(enum.OrderStatusInProgress, nil)
	svc, _ := newTestService(f.store)

	if _, err := svc.UpdateOrderStatus(context.Background(), order.ID.String(), "SHIPPED"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

// --- UpdateOrder ---

func updateFixture(order database.Order) *orderFixture {
	f, _ := statusFixture(order.Status, nil)
	f.store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		if id == order.ID {
			return order, nil
		}
		return database.Order{}, pgx.ErrNoRows
	}
	f.store.updateOrderFn = func(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error) {
		return database.Order{
			ID:          arg.ID,
			ClientID:    arg.ClientID,
			VehicleID:   arg.VehicleID,
			Description: arg.Description,
			Kilometers:  arg.Kilometers,
			Discount:    arg.Discount,
			TotalValue:  arg.TotalValue,
			Status:      arg.Status,
		}, nil
	}
	f.store.deleteServicesByOrderFn = func(ctx context.Context, orderID uuid.UUID) error { return nil }
	f.store.deleteOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) error { return nil }
	return f
}

func TestUpdateOrderDiscountChangeRequiresAdmin(t *testing.T) {
	order := database.Order{
		ID:       uuid.New(),
		Status:   enum.OrderStatusInProgress,
		Discount: makeNumeric("0.00"),
	}
	f := updateFixture(order)
	f.store.listServicesByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.Service, error) {
		return []database.Service{{Price: makeNumeric("100.00")}}, nil
	}
	svc, _ := newTestService(f.store)

	discount := decimal.NewFromInt(20)
	req := UpdateOrderRequest{Discount: &discount}

	if _, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req); !errors.Is(err, ErrDiscountNotAuthorized) {
		t.Errorf("err = %v, want ErrDiscountNotAuthorized", err)
	}

	result, err := svc.UpdateOrder(context.Background(), admin(), order.ID.String(), req)
	if err != nil {
		t.Fatalf("UpdateOrder as admin: %v", err)
	}
	if !numericEquals(result.Order.TotalValue, "80.00") {
		t.Errorf("TotalValue = %v, want 80.00", database.NumericToDecimal(result.Order.TotalValue))
	}
}

func TestUpdateOrderUnchangedDiscountAllowedForStaff(t *testing.T) {
	order := database.Order{
		ID:       uuid.New(),
		Status:   enum.OrderStatusInProgress,
		Discount: makeNumeric("15.00"),
	}
	f := updateFixture(order)
	f.store.listServicesByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.Service, error) {
		return []database.Service{{Price: makeNumeric("100.00")}}, nil
	}
	svc, _ := newTestService(f.store)

	same := decimal.RequireFromString("15.00")
	desc := "realigned front axle"
	req := UpdateOrderRequest{Discount: &same, Description: &desc}

	result, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req)
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if !numericEquals(result.Order.TotalValue, "85.00") {
		t.Errorf("TotalValue = %v, want 85.00", database.NumericToDecimal(result.Order.TotalValue))
	}
}

func TestUpdateOrderReassignsClientAndVehicle(t *testing.T) {
	order := database.Order{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		VehicleID: uuid.New(),
		Status:    enum.OrderStatusInProgress,
		Discount:  makeNumeric("0.00"),
	}
	f := updateFixture(order)
	svc, _ := newTestService(f.store)

	clientID := f.clientID.String()
	vehicleID := f.vehicleID.String()
	req := UpdateOrderRequest{ClientID: &clientID, VehicleID: &vehicleID}

	result, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req)
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	if result.Order.ClientID != f.clientID {
		t.Errorf("ClientID = %s, want %s", result.Order.ClientID, f.clientID)
	}
	if result.Order.VehicleID != f.vehicleID {
		t.Errorf("VehicleID = %s, want %s", result.Order.VehicleID, f.vehicleID)
	}
}

func TestUpdateOrderVehicleOfAnotherClient(t *testing.T) {
	// The order stays with its stored client, so a vehicle belonging to a
	// different client must be refused.
	order := database.Order{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		VehicleID: uuid.New(),
		Status:    enum.OrderStatusInProgress,
		Discount:  makeNumeric("0.00"),
	}
	f := updateFixture(order)
	svc, _ := newTestService(f.store)

	vehicleID := f.vehicleID.String()
	req := UpdateOrderRequest{VehicleID: &vehicleID}

	if _, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req); !errors.Is(err, ErrVehicleClientMismatch) {
		t.Errorf("err = %v, want ErrVehicleClientMismatch", err)
	}
}

func TestUpdateOrderUnknownClient(t *testing.T) {
	order := database.Order{
		ID:       uuid.New(),
		Status:   enum.OrderStatusInProgress,
		Discount: makeNumeric("0.00"),
	}
	f := updateFixture(order)
	svc, _ := newTestService(f.store)

	clientID := uuid.NewString()
	req := UpdateOrderRequest{ClientID: &clientID}

	if _, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("err = %v, want ErrClientNotFound", err)
	}
}

func TestUpdateOrderFinalizedRejected(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusCompleted}
	f := updateFixture(order)
	svc, _ := newTestService(f.store)

	desc := "late edit"
	req := UpdateOrderRequest{Description: &desc}

	if _, err := svc.UpdateOrder(context.Background(), admin(), order.ID.String(), req); !errors.Is(err, ErrOrderFinalized) {
		t.Errorf("err = %v, want ErrOrderFinalized", err)
	}
}

func TestUpdateOrderReplaceItemsNetsStock(t *testing.T) {
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusInProgress, Discount: makeNumeric("0.00")}
	f := updateFixture(order)
	existing := []database.OrderItem{{OrderID: order.ID, PartID: f.partID, Quantity: 1, UnitPrice: makeNumeric("50.20")}}
	f.store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return existing, nil
	}
	f.store.listServicesByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.Service, error) {
		return []database.Service{{Price: makeNumeric("30.00")}}, nil
	}
	svc, _ := newTestService(f.store)

	req := UpdateOrderRequest{Items: []ItemLineRequest{{PartID: f.partID.String(), Quantity: 3}}}

	if _, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	// Old quantity 1 returns to the shelf, new quantity 3 is taken: net -2.
	if len(f.decrements) != 1 || f.decrements[0].Quantity != 2 {
		t.Errorf("decrements = %+v, want one net decrement of 2", f.decrements)
	}
	if len(f.increments) != 0 {
		t.Errorf("unexpected increments: %+v", f.increments)
	}
}

func TestUpdateOrderReplaceItemsInsufficientStock(t *testing.T) {
	// Part has 1 in stock, existing order holds 1, so 2 are reachable.
	order := database.Order{ID: uuid.New(), Status: enum.OrderStatusInProgress, Discount: makeNumeric("0.00")}
	f := updateFixture(order)
	f.store.lockPartsByIDsFn = func(ctx context.Context, ids []uuid.UUID) ([]database.Part, error) {
		return []database.Part{{ID: f.partID, Name: "Oil filter", UnitPrice: makeNumeric("50.20"), Quantity: 1}}, nil
	}
	f.store.listOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
		return []database.OrderItem{{OrderID: order.ID, PartID: f.partID, Quantity: 1}}, nil
	}
	svc, _ := newTestService(f.store)

	req := UpdateOrderRequest{Items: []ItemLineRequest{{PartID: f.partID.String(), Quantity: 3}}}

	_, err := svc.UpdateOrder(context.Background(), staff(), order.ID.String(), req)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Errorf("got available %d requested %d, want 2 and 3", stockErr.Available, stockErr.Requested)
	}
}

// --- DeleteOrder ---

func deleteFixture(status string, items []database.OrderItem) (*orderFixture, database.Order, *bool) {
	f, order := statusFixture(status, items)
	deleted := false
	f.store.deleteServicesByOrderFn = func(ctx context.Context, orderID uuid.UUID) error { return nil }
	f.store.deleteOrderItemsFn = func(ctx context.Context, orderID uuid.UUID) error { return nil }
	f.store.deleteOrderFn = func(ctx context.Context, id uuid.UUID) error {
		deleted = true
		return nil
	}
	return f, order, &deleted
}

func TestDeleteOrderInProgressRestoresStock(t *testing.T) {
	items := []database.OrderItem{{PartID: uuid.New(), Quantity: 4}}
	f, order, deleted := deleteFixture(enum.OrderStatusInProgress, items)
	svc, _ := newTestService(f.store)

	if err := svc.DeleteOrder(context.Background(), order.ID.String()); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if !*deleted {
		t.Error("order not deleted")
	}
	if len(f.increments) != 1 || f.increments[0].Quantity != 4 {
		t.Errorf("increments = %+v, want one increment of 4", f.increments)
	}
}

func TestDeleteOrderCancelledRestoresStock(t *testing.T) {
	items := []database.OrderItem{{PartID: uuid.New(), Quantity: 2}}
	f, order, deleted := deleteFixture(enum.OrderStatusCancelled, items)
	svc, _ := newTestService(f.store)

	if err := svc.DeleteOrder(context.Background(), order.ID.String()); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if !*deleted {
		t.Error("order not deleted")
	}
	if len(f.increments) != 1 || f.increments[0].Quantity != 2 {
		t.Errorf("increments = %+v, want one increment of 2", f.increments)
	}
}

func TestDeleteOrderCompletedLocked(t *testing.T) {
	f, order, deleted := deleteFixture(enum.OrderStatusCompleted, nil)
	svc, _ := newTestService(f.store)

	if err := svc.DeleteOrder(context.Background(), order.ID.String()); !errors.Is(err, ErrOrderLocked) {
		t.Fatalf("err = %v, want ErrOrderLocked", err)
	}
	if *deleted {
		t.Error("completed order must not be deleted")
	}
	if len(f.increments) != 0 {
		t.Errorf("stock restored for completed order: %+v", f.increments)
	}
}

func TestDeleteOrderNotFound(t *testing.T) {
	f, _ := statusFixture(enum.OrderStatusInProgress, nil)
	svc, _ := newTestService(f.store)

	if err := svc.DeleteOrder(context.Background(), uuid.New().String()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}
