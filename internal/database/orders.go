package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = "id, client_id, vehicle_id, description, kilometers, discount, total_value, status, created_at, updated_at"

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ClientID, &o.VehicleID, &o.Description, &o.Kilometers, &o.Discount, &o.TotalValue, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type CreateOrderParams struct {
	ClientID    uuid.UUID
	VehicleID   uuid.UUID
	Description pgtype.Text
	Kilometers  int32
	Discount    pgtype.Numeric
	TotalValue  pgtype.Numeric
	Status      string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	query, args, err := q.sb.Insert("orders").
		Columns("client_id", "vehicle_id", "description", "kilometers", "discount", "total_value", "status").
		Values(arg.ClientID, arg.VehicleID, arg.Description, arg.Kilometers, arg.Discount, arg.TotalValue, arg.Status).
		Suffix("RETURNING " + orderColumns).
		ToSql()
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	query, args, err := q.sb.Select(orderColumns).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	return q.listOrders(ctx, nil)
}

func (q *Queries) ListOrdersByClient(ctx context.Context, clientID uuid.UUID) ([]Order, error) {
	return q.listOrders(ctx, sq.Eq{"client_id": clientID})
}

func (q *Queries) ListOrdersByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]Order, error) {
	return q.listOrders(ctx, sq.Eq{"vehicle_id": vehicleID})
}

func (q *Queries) listOrders(ctx context.Context, pred any) ([]Order, error) {
	builder := q.sb.Select(orderColumns).
		From("orders").
		OrderBy("created_at DESC")
	if pred != nil {
		builder = builder.Where(pred)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderParams struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	VehicleID   uuid.UUID
	Description pgtype.Text
	Kilometers  int32
	Discount    pgtype.Numeric
	TotalValue  pgtype.Numeric
	Status      string
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	query, args, err := q.sb.Update("orders").
		Set("client_id", arg.ClientID).
		Set("vehicle_id", arg.VehicleID).
		Set("description", arg.Description).
		Set("kilometers", arg.Kilometers).
		Set("discount", arg.Discount).
		Set("total_value", arg.TotalValue).
		Set("status", arg.Status).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
		Suffix("RETURNING " + orderColumns).
		ToSql()
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, query, args...))
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	query, args, err := q.sb.Update("orders").
		Set("status", arg.Status).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
		Suffix("RETURNING " + orderColumns).
		ToSql()
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	query, args, err := q.sb.Delete("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountOrdersByStatus backs the reports summary.
func (q *Queries) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	query, args, err := q.sb.Select("count(*)").
		From("orders").
		Where(sq.Eq{"status": status}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// SumOrderTotalsByStatus backs the reports summary. Returns zero when no
// orders match.
func (q *Queries) SumOrderTotalsByStatus(ctx context.Context, status string) (pgtype.Numeric, error) {
	query, args, err := q.sb.Select("coalesce(sum(total_value), 0)").
		From("orders").
		Where(sq.Eq{"status": status}).
		ToSql()
	if err != nil {
		return pgtype.Numeric{}, err
	}
	var sum pgtype.Numeric
	err = q.db.QueryRow(ctx, query, args...).Scan(&sum)
	return sum, err
}

type CreateOrderServiceParams struct {
	OrderID     uuid.UUID
	Description string
	Price       pgtype.Numeric
}

func (q *Queries) CreateOrderService(ctx context.Context, arg CreateOrderServiceParams) (Service, error) {
	query, args, err := q.sb.Insert("services").
		Columns("order_id", "description", "price").
		Values(arg.OrderID, arg.Description, arg.Price).
		Suffix("RETURNING id, order_id, description, price, created_at").
		ToSql()
	if err != nil {
		return Service{}, err
	}
	var s Service
	err = q.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.OrderID, &s.Description, &s.Price, &s.CreatedAt)
	return s, err
}

func (q *Queries) ListServicesByOrder(ctx context.Context, orderID uuid.UUID) ([]Service, error) {
	query, args, err := q.sb.Select("id, order_id, description, price, created_at").
		From("services").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.OrderID, &s.Description, &s.Price, &s.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (q *Queries) DeleteServicesByOrder(ctx context.Context, orderID uuid.UUID) error {
	query, args, err := q.sb.Delete("services").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, query, args...)
	return err
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	PartID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	query, args, err := q.sb.Insert("order_items").
		Columns("order_id", "part_id", "quantity", "unit_price").
		Values(arg.OrderID, arg.PartID, arg.Quantity, arg.UnitPrice).
		Suffix("RETURNING id, order_id, part_id, quantity, unit_price, created_at").
		ToSql()
	if err != nil {
		return OrderItem{}, err
	}
	var it OrderItem
	err = q.db.QueryRow(ctx, query, args...).Scan(&it.ID, &it.OrderID, &it.PartID, &it.Quantity, &it.UnitPrice, &it.CreatedAt)
	return it, err
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query, args, err := q.sb.Select("id, order_id, part_id, quantity, unit_price, created_at").
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PartID, &it.Quantity, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrderItemsWithPartByOrder joins the part name in for order responses.
func (q *Queries) ListOrderItemsWithPartByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemWithPart, error) {
	query, args, err := q.sb.Select("oi.id, oi.order_id, oi.part_id, oi.quantity, oi.unit_price, oi.created_at, p.name").
		From("order_items oi").
		Join("parts p ON p.id = oi.part_id").
		Where(sq.Eq{"oi.order_id": orderID}).
		OrderBy("oi.created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItemWithPart
	for rows.Next() {
		var it OrderItemWithPart
		if err := rows.Scan(&it.ID, &it.OrderID, &it.PartID, &it.Quantity, &it.UnitPrice, &it.CreatedAt, &it.PartName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	query, args, err := q.sb.Delete("order_items").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, query, args...)
	return err
}
