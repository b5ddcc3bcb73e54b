package store

import (
	"context"
	"database/sql"
	"time"
)

const adminUserColumns = `id, username, email, display_name, role, password_hash, active, last_login_at, created_at, updated_at`

func scanAdminUser(row rowScanner) (AdminUser, error) {
	var i AdminUser
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.DisplayName,
		&i.Role,
		&i.PasswordHash,
		&i.Active,
		&i.LastLoginAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countActiveAdminUsers = `-- name: CountActiveAdminUsers :one
SELECT COUNT(*) FROM admin_users WHERE active = 1
`

func (q *Queries) CountActiveAdminUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActiveAdminUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAdminUser = `-- name: CreateAdminUser :one
INSERT INTO admin_users (username, email, display_name, role, password_hash, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + adminUserColumns

type CreateAdminUserParams struct {
	Username     string         `json:"username"`
	Email        sql.NullString `json:"email"`
	DisplayName  string         `json:"display_name"`
	Role         string         `json:"role"`
	PasswordHash string         `json:"password_hash"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (q *Queries) CreateAdminUser(ctx context.Context, arg CreateAdminUserParams) (AdminUser, error) {
	row := q.db.QueryRowContext(ctx, createAdminUser,
		arg.Username,
		arg.Email,
		arg.DisplayName,
		arg.Role,
		arg.PasswordHash,
		arg.Active,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanAdminUser(row)
}

const insertAdminUserIfAbsent = `-- name: InsertAdminUserIfAbsent :execrows
INSERT INTO admin_users (username, email, display_name, role, password_hash, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING
`

// InsertAdminUserIfAbsent inserts the user unless the username or email is
// already taken and returns the number of rows inserted.
func (q *Queries) InsertAdminUserIfAbsent(ctx context.Context, arg CreateAdminUserParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertAdminUserIfAbsent,
		arg.Username,
		arg.Email,
		arg.DisplayName,
		arg.Role,
		arg.PasswordHash,
		arg.Active,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getActiveAdminUserByIdentifier = `-- name: GetActiveAdminUserByIdentifier :one
SELECT ` + adminUserColumns + ` FROM admin_users
WHERE active = 1 AND (lower(username) = ? OR lower(email) = ?)
ORDER BY id
LIMIT 1
`

// GetActiveAdminUserByIdentifier expects an already normalised identifier.
func (q *Queries) GetActiveAdminUserByIdentifier(ctx context.Context, identifier string) (AdminUser, error) {
	row := q.db.QueryRowContext(ctx, getActiveAdminUserByIdentifier, identifier, identifier)
	return scanAdminUser(row)
}

const getAdminUserByID = `-- name: GetAdminUserByID :one
SELECT ` + adminUserColumns + ` FROM admin_users WHERE id = ?
`

func (q *Queries) GetAdminUserByID(ctx context.Context, id int64) (AdminUser, error) {
	row := q.db.QueryRowContext(ctx, getAdminUserByID, id)
	return scanAdminUser(row)
}

const listAdminUsers = `-- name: ListAdminUsers :many
SELECT ` + adminUserColumns + ` FROM admin_users ORDER BY id
`

func (q *Queries) ListAdminUsers(ctx context.Context) ([]AdminUser, error) {
	rows, err := q.db.QueryContext(ctx, listAdminUsers)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []AdminUser{}
	for rows.Next() {
		i, err := scanAdminUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateAdminUserLastLogin = `-- name: UpdateAdminUserLastLogin :exec
UPDATE admin_users SET last_login_at = ?, updated_at = ? WHERE id = ?
`

type UpdateAdminUserLastLoginParams struct {
	LastLoginAt sql.NullTime `json:"last_login_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ID          int64        `json:"id"`
}

func (q *Queries) UpdateAdminUserLastLogin(ctx context.Context, arg UpdateAdminUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateAdminUserLastLogin, arg.LastLoginAt, arg.UpdatedAt, arg.ID)
	return err
}

const updateAdminUserPassword = `-- name: UpdateAdminUserPassword :exec
UPDATE admin_users SET password_hash = ?, updated_at = ? WHERE id = ?
`

type UpdateAdminUserPasswordParams struct {
	PasswordHash string    `json:"password_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           int64     `json:"id"`
}

func (q *Queries) UpdateAdminUserPassword(ctx context.Context, arg UpdateAdminUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateAdminUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}
