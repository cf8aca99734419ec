package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = "id, email, hashed_password, name, role, created_at, updated_at"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	Email          string
	HashedPassword string
	Name           string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	query, args, err := q.sb.Insert("users").
		Columns("email", "hashed_password", "name", "role").
		Values(arg.Email, arg.HashedPassword, arg.Name, arg.Role).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return User{}, err
	}
	return scanUser(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	query, args, err := q.sb.Select(userColumns).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return User{}, err
	}
	return scanUser(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query, args, err := q.sb.Select(userColumns).
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return User{}, err
	}
	return scanUser(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	query, args, err := q.sb.Select(userColumns).
		From("users").
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

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserParams struct {
	ID             uuid.UUID
	Email          string
	Name           string
	Role           string
	HashedPassword string // empty means keep current
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	builder := q.sb.Update("users").
		Set("email", arg.Email).
		Set("name", arg.Name).
		Set("role", arg.Role).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": arg.ID}).
		Suffix("RETURNING " + userColumns)
	if arg.HashedPassword != "" {
		builder = builder.Set("hashed_password", arg.HashedPassword)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return User{}, err
	}
	return scanUser(q.db.QueryRow(ctx, query, args...))
}

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	query, args, err := q.sb.Delete("users").
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
