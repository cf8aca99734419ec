package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const partColumns = "id, name, description, unit_price, quantity, created_at, updated_at"

func scanPart(row pgx.Row) (Part, error) {
	var p Part
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.UnitPrice, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreatePartParams struct {
	Name        string
	Description pgtype.Text
	UnitPrice   pgtype.Numeric
	Quantity    int32
}

func (q *Queries) CreatePart(ctx context.Context, arg CreatePartParams) (Part, error) {
	query, args, err := q.sb.Insert("parts").
		Columns("name", "description", "unit_price", "quantity").
		Values(arg.Name, arg.Description, arg.UnitPrice, arg.Quantity).
		Suffix("RETURNING " + partColumns).
		ToSql()
	if err != nil {
		return Part{}, err
	}
	return scanPart(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetPart(ctx context.Context, id uuid.UUID) (Part, error) {
	query, args, err := q.sb.Select(partColumns).
		From("parts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Part{}, err
	}
	return scanPart(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) ListParts(ctx context.Context) ([]Part, error) {
	query, args, err := q.sb.Select(partColumns).
		From("parts").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return q.queryParts(ctx, query, args)
}

// ListPartsBelowQuantity returns parts whose stock is at or below the given
// threshold, most depleted first. Used by the low stock report.
func (q *Queries) ListPartsBelowQuantity(ctx context.Context, threshold int32) ([]Part, error) {
	query, args, err := q.sb.Select(partColumns).
		From("parts").
		Where(sq.LtOrEq{"quantity": threshold}).
		OrderBy("quantity ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return q.queryParts(ctx, query, args)
}

// LockPartsByIDs selects the given part rows FOR UPDATE in ascending id
// order. Consistent lock ordering keeps concurrent order writes from
// deadlocking each other.
func (q *Queries) LockPartsByIDs(ctx context.Context, ids []uuid.UUID) ([]Part, error) {
	query, args, err := q.sb.Select(partColumns).
		From("parts").
		Where(sq.Eq{"id": ids}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}
	return q.queryParts(ctx, query, args)
}

func (q *Queries) queryParts(ctx context.Context, query string, args []any) ([]Part, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

type UpdatePartParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	UnitPrice   pgtype.Numeric
	Quantity    int32
}

func (q *Queries) UpdatePart(ctx context.Context, arg UpdatePartParams) (Part, error) {
	query, args, err := q.sb.Update("parts").
		Set("name", arg.Name).
		Set("description", arg.Description).
		Set("unit_price", arg.UnitPrice).
		Set("quantity", arg.Quantity).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
		Suffix("RETURNING " + partColumns).
		ToSql()
	if err != nil {
		return Part{}, err
	}
	return scanPart(q.db.QueryRow(ctx, query, args...))
}

// SetPartQuantity overwrites the stock level with an absolute value.
func (q *Queries) SetPartQuantity(ctx context.Context, id uuid.UUID, quantity int32) (Part, error) {
	query, args, err := q.sb.Update("parts").
		Set("quantity", quantity).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + partColumns).
		ToSql()
	if err != nil {
		return Part{}, err
	}
	return scanPart(q.db.QueryRow(ctx, query, args...))
}

type AdjustPartStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementPartStock consumes stock. The quantity guard in the WHERE clause
// is the last line of defense against going negative; callers are expected
// to have checked availability under a row lock first. Returns pgx.ErrNoRows
// when the guard rejects the update.
func (q *Queries) DecrementPartStock(ctx context.Context, arg AdjustPartStockParams) error {
	query, args, err := q.sb.Update("parts").
		Set("quantity", sq.Expr("quantity - ?", arg.Quantity)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.And{
			sq.Eq{"id": arg.ID},
			sq.GtOrEq{"quantity": arg.Quantity},
		}).
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

// IncrementPartStock restores stock, e.g. when an order is cancelled or its
// items are rewritten.
func (q *Queries) IncrementPartStock(ctx context.Context, arg AdjustPartStockParams) error {
	query, args, err := q.sb.Update("parts").
		Set("quantity", sq.Expr("quantity + ?", arg.Quantity)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
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

func (q *Queries) DeletePart(ctx context.Context, id uuid.UUID) error {
	query, args, err := q.sb.Delete("parts").
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

// CountOrderItemsByPart backs the delete guard: a part referenced by order
// items cannot be removed.
func (q *Queries) CountOrderItemsByPart(ctx context.Context, partID uuid.UUID) (int64, error) {
	query, args, err := q.sb.Select("count(*)").
		From("order_items").
		Where(sq.Eq{"part_id": partID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}
