package store

import (
	"context"
	"time"
)

const createLead = `-- name: CreateLead :one
INSERT INTO leads (name, email, company, phone, message, source, ip_address, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, email, company, phone, message, source, ip_address, created_at
`

type CreateLeadParams struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	IpAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateLead(ctx context.Context, arg CreateLeadParams) (Lead, error) {
	row := q.db.QueryRowContext(ctx, createLead,
		arg.Name,
		arg.Email,
		arg.Company,
		arg.Phone,
		arg.Message,
		arg.Source,
		arg.IpAddress,
		arg.CreatedAt,
	)
	var i Lead
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Company,
		&i.Phone,
		&i.Message,
		&i.Source,
		&i.IpAddress,
		&i.CreatedAt,
	)
	return i, err
}

const listLeads = `-- name: ListLeads :many
SELECT id, name, email, company, phone, message, source, ip_address, created_at
FROM leads
ORDER BY id DESC
LIMIT ? OFFSET ?
`

type ListLeadsParams struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func (q *Queries) ListLeads(ctx context.Context, arg ListLeadsParams) ([]Lead, error) {
	rows, err := q.db.QueryContext(ctx, listLeads, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []Lead{}
	for rows.Next() {
		var i Lead
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Email,
			&i.Company,
			&i.Phone,
			&i.Message,
			&i.Source,
			&i.IpAddress,
			&i.CreatedAt,
		); err != nil {
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

const countLeadsSince = `-- name: CountLeadsSince :one
SELECT COUNT(*) FROM leads WHERE created_at >= ?
`

func (q *Queries) CountLeadsSince(ctx context.Context, since time.Time) (int64, error) {
	row := q.db.QueryRowContext(ctx, countLeadsSince, since)
	var count int64
	err := row.Scan(&count)
	return count, err
}
