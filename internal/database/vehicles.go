package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const vehicleColumns = "id, plate, model, brand, kilometers, year, client_id, created_at, updated_at"

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.Plate, &v.Model, &v.Brand, &v.Kilometers, &v.Year, &v.ClientID, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

type CreateVehicleParams struct {
	Plate      string
	Model      string
	Brand      string
	Kilometers int32
	Year       pgtype.Int4
	ClientID   uuid.UUID
}

func (q *Queries) CreateVehicle(ctx context.Context, arg CreateVehicleParams) (Vehicle, error) {
	query, args, err := q.sb.Insert("vehicles").
		Columns("plate", "model", "brand", "kilometers", "year", "client_id").
		Values(arg.Plate, arg.Model, arg.Brand, arg.Kilometers, arg.Year, arg.ClientID).
		Suffix("RETURNING " + vehicleColumns).
		ToSql()
	if err != nil {
		return Vehicle{}, err
	}
	return scanVehicle(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetVehicle(ctx context.Context, id uuid.UUID) (Vehicle, error) {
	query, args, err := q.sb.Select(vehicleColumns).
		From("vehicles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Vehicle{}, err
	}
	return scanVehicle(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetVehicleByPlate(ctx context.Context, plate string) (Vehicle, error) {
	query, args, err := q.sb.Select(vehicleColumns).
		From("vehicles").
		Where(sq.Eq{"plate": plate}).
		ToSql()
	if err != nil {
		return Vehicle{}, err
	}
	return scanVehicle(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	return q.listVehicles(ctx, nil)
}

func (q *Queries) ListVehiclesByClient(ctx context.Context, clientID uuid.UUID) ([]Vehicle, error) {
	return q.listVehicles(ctx, sq.Eq{"client_id": clientID})
}

func (q *Queries) listVehicles(ctx context.Context, pred any) ([]Vehicle, error) {
	builder := q.sb.Select(vehicleColumns).
		From("vehicles").
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

	var vehicles []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

type UpdateVehicleParams struct {
	ID         uuid.UUID
	Plate      string
	Model      string
	Brand      string
	Kilometers int32
	Year       pgtype.Int4
	ClientID   uuid.UUID
}

func (q *Queries) UpdateVehicle(ctx context.Context, arg UpdateVehicleParams) (Vehicle, error) {
	query, args, err := q.sb.Update("vehicles").
		Set("plate", arg.Plate).
		Set("model", arg.Model).
		Set("brand", arg.Brand).
		Set("kilometers", arg.Kilometers).
		Set("year", arg.Year).
		Set("client_id", arg.ClientID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
		Suffix("RETURNING " + vehicleColumns).
		ToSql()
	if err != nil {
		return Vehicle{}, err
	}
	return scanVehicle(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	query, args, err := q.sb.Delete("vehicles").
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

// CountOrdersByVehicle backs the delete guard: a vehicle referenced by
// orders cannot be removed.
func (q *Queries) CountOrdersByVehicle(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	query, args, err := q.sb.Select("count(*)").
		From("orders").
		Where(sq.Eq{"vehicle_id": vehicleID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}
