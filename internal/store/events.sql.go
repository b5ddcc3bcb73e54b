package store

import (
	"context"
	"database/sql"
	"time"
)

const createEvent = `-- name: CreateEvent :one
INSERT INTO events (level, category, message, user_id, metadata, ip_address, request_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, metadata, ip_address, request_url, created_at
`

type CreateEventParams struct {
	Level      string        `json:"level"`
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	UserID     sql.NullInt64 `json:"user_id"`
	Metadata   string        `json:"metadata"`
	IpAddress  string        `json:"ip_address"`
	RequestUrl string        `json:"request_url"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.UserID,
		arg.Metadata,
		arg.IpAddress,
		arg.RequestUrl,
		arg.CreatedAt,
	)
	var i Event
	err := row.Scan(
		&i.ID,
		&i.Level,
		&i.Category,
		&i.Message,
		&i.UserID,
		&i.Metadata,
		&i.IpAddress,
		&i.RequestUrl,
		&i.CreatedAt,
	)
	return i, err
}

const listEvents = `-- name: ListEvents :many
SELECT id, level, category, message, user_id, metadata, ip_address, request_url, created_at
FROM events
WHERE (? = '' OR category = ?)
ORDER BY id DESC
LIMIT ?
`

type ListEventsParams struct {
	Category string `json:"category"`
	Limit    int64  `json:"limit"`
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Category, arg.Category, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []Event{}
	for rows.Next() {
		var i Event
		if err := rows.Scan(
			&i.ID,
			&i.Level,
			&i.Category,
			&i.Message,
			&i.UserID,
			&i.Metadata,
			&i.IpAddress,
			&i.RequestUrl,
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

const deleteOldEvents = `-- name: DeleteOldEvents :exec
DELETE FROM events WHERE created_at < ?
`

func (q *Queries) DeleteOldEvents(ctx context.Context, createdAt time.Time) error {
	_, err := q.db.ExecContext(ctx, deleteOldEvents, createdAt)
	return err
}
