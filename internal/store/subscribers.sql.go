package store

import (
	"context"
	"time"
)

const subscriberColumns = `id, email, name, status, unsubscribe_token, created_at, updated_at`

func scanSubscriber(row rowScanner) (Subscriber, error) {
	var i Subscriber
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.Status,
		&i.UnsubscribeToken,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertSubscriber = `-- name: UpsertSubscriber :one
INSERT INTO subscribers (email, name, status, unsubscribe_token, created_at, updated_at)
VALUES (?, ?, 'active', ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET
    status = 'active',
    name = CASE WHEN excluded.name != '' THEN excluded.name ELSE subscribers.name END,
    updated_at = excluded.updated_at
RETURNING ` + subscriberColumns

type UpsertSubscriberParams struct {
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	UnsubscribeToken string    `json:"unsubscribe_token"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UpsertSubscriber reactivates an existing address and keeps its original token.
func (q *Queries) UpsertSubscriber(ctx context.Context, arg UpsertSubscriberParams) (Subscriber, error) {
	row := q.db.QueryRowContext(ctx, upsertSubscriber,
		arg.Email,
		arg.Name,
		arg.UnsubscribeToken,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanSubscriber(row)
}

const unsubscribeByToken = `-- name: UnsubscribeByToken :execrows
UPDATE subscribers SET status = 'unsubscribed', updated_at = ? WHERE unsubscribe_token = ?
`

type UnsubscribeByTokenParams struct {
	UpdatedAt        time.Time `json:"updated_at"`
	UnsubscribeToken string    `json:"unsubscribe_token"`
}

func (q *Queries) UnsubscribeByToken(ctx context.Context, arg UnsubscribeByTokenParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, unsubscribeByToken, arg.UpdatedAt, arg.UnsubscribeToken)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listSubscribers = `-- name: ListSubscribers :many
SELECT ` + subscriberColumns + ` FROM subscribers
WHERE (? = '' OR status = ?)
ORDER BY id
`

func (q *Queries) ListSubscribers(ctx context.Context, status string) ([]Subscriber, error) {
	rows, err := q.db.QueryContext(ctx, listSubscribers, status, status)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []Subscriber{}
	for rows.Next() {
		i, err := scanSubscriber(rows)
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

const countActiveSubscribers = `-- name: CountActiveSubscribers :one
SELECT COUNT(*) FROM subscribers WHERE status = 'active'
`

func (q *Queries) CountActiveSubscribers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActiveSubscribers)
	var count int64
	err := row.Scan(&count)
	return count, err
}
