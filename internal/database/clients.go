package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const clientColumns = "id, name, cpf_cnpj, phone, email, address, created_at, updated_at"

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.CpfCnpj, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateClientParams struct {
	Name    string
	CpfCnpj string
	Phone   pgtype.Text
	Email   pgtype.Text
	Address pgtype.Text
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	query, args, err := q.sb.Insert("clients").
		Columns("name", "cpf_cnpj", "phone", "email", "address").
		Values(arg.Name, arg.CpfCnpj, arg.Phone, arg.Email, arg.Address).
		Suffix("RETURNING " + clientColumns).
		ToSql()
	if err != nil {
		return Client{}, err
	}
	return scanClient(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetClient(ctx context.Context, id uuid.UUID) (Client, error) {
	query, args, err := q.sb.Select(clientColumns).
		From("clients").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Client{}, err
	}
	return scanClient(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetClientByCpfCnpj(ctx context.Context, cpfCnpj string) (Client, error) {
	query, args, err := q.sb.Select(clientColumns).
		From("clients").
		Where(sq.Eq{"cpf_cnpj": cpfCnpj}).
		ToSql()
	if err != nil {
		return Client{}, err
	}
	return scanClient(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) ListClients(ctx context.Context) ([]Client, error) {
	query, args, err := q.sb.Select(clientColumns).
		From("clients").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

type UpdateClientParams struct {
	ID      uuid.UUID
	Name    string
	CpfCnpj string
	Phone   pgtype.Text
	Email   pgtype.Text
	Address pgtype.Text
}

func (q *Queries) UpdateClient(ctx context.Context, arg UpdateClientParams) (Client, error) {
	query, args, err := q.sb.Update("clients").
		Set("name", arg.Name).
		Set("cpf_cnpj", arg.CpfCnpj).
		Set("phone", arg.Phone).
		Set("email", arg.Email).
		Set("address", arg.Address).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
		Suffix("RETURNING " + clientColumns).
		ToSql()
	if err != nil {
		return Client{}, err
	}
	return scanClient(q.db.QueryRow(ctx, query, args...))
}

// DeleteClient removes a client and their vehicles in one statement, so
// the child delete is explicit rather than left to the FK cascade.
func (q *Queries) DeleteClient(ctx context.Context, id uuid.UUID) error {
	query, args, err := q.sb.Delete("clients").
		Prefix("WITH removed_vehicles AS (DELETE FROM vehicles WHERE client_id = ?)", id).
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

// CountOrdersByClient backs the delete guard: a client with orders on
// record cannot be removed.
func (q *Queries) CountOrdersByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	query, args, err := q.sb.Select("count(*)").
		From("orders").
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}
