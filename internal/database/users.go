package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, full_name, role, phone, address,
	status, position, department, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role,
		&u.Phone, &u.Address, &u.Status, &u.Position, &u.Department,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const getUserByEmail = `SELECT ` + userColumns + `
FROM users WHERE email = $1 AND is_active = TRUE`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + `
FROM users WHERE id = $1 AND is_active = TRUE`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

type CreateUserParams struct {
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Phone          pgtype.Text
	Address        pgtype.Text
	Status         pgtype.Text
	Position       pgtype.Text
	Department     pgtype.Text
}

const createUser = `INSERT INTO users (email, hashed_password, full_name, role,
	phone, address, status, position, department)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.Email, arg.HashedPassword, arg.FullName, arg.Role,
		arg.Phone, arg.Address, arg.Status, arg.Position, arg.Department,
	))
}

type UpdateUserParams struct {
	ID         uuid.UUID
	Email      string
	FullName   string
	Role       string
	Phone      pgtype.Text
	Address    pgtype.Text
	Status     pgtype.Text
	Position   pgtype.Text
	Department pgtype.Text
}

const updateUser = `UPDATE users
SET email = $2, full_name = $3, role = $4, phone = $5, address = $6,
	status = $7, position = $8, department = $9, updated_at = now()
WHERE id = $1 AND is_active = TRUE
RETURNING ` + userColumns

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.ID, arg.Email, arg.FullName, arg.Role,
		arg.Phone, arg.Address, arg.Status, arg.Position, arg.Department,
	))
}

const softDeleteUser = `UPDATE users
SET is_active = FALSE, updated_at = now()
WHERE id = $1 AND is_active = TRUE
RETURNING id`

func (q *Queries) SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteUser, id).Scan(&deleted)
	return deleted, err
}

const listUsers = `SELECT ` + userColumns + `
FROM users WHERE is_active = TRUE
ORDER BY created_at DESC`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
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

const listStaffUsers = `SELECT ` + userColumns + `
FROM users WHERE role IN ('admin', 'personnel') AND is_active = TRUE
ORDER BY created_at`

// ListStaffUsers returns the full staff roster (admin + personnel).
// The dispatcher fans order notifications out to everyone in it.
func (q *Queries) ListStaffUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listStaffUsers)
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
