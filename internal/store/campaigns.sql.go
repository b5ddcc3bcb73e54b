package store

import (
	"context"
	"database/sql"
	"time"
)

const campaignColumns = `id, subject, body_markdown, status, created_by_id, recipients, delivered, failed, sent_at, created_at, updated_at`

func scanCampaign(row rowScanner) (Campaign, error) {
	var i Campaign
	err := row.Scan(
		&i.ID,
		&i.Subject,
		&i.BodyMarkdown,
		&i.Status,
		&i.CreatedByID,
		&i.Recipients,
		&i.Delivered,
		&i.Failed,
		&i.SentAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCampaign = `-- name: CreateCampaign :one
INSERT INTO campaigns (subject, body_markdown, status, created_by_id, created_at, updated_at)
VALUES (?, ?, 'draft', ?, ?, ?)
RETURNING ` + campaignColumns

type CreateCampaignParams struct {
	Subject      string        `json:"subject"`
	BodyMarkdown string        `json:"body_markdown"`
	CreatedByID  sql.NullInt64 `json:"created_by_id"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (q *Queries) CreateCampaign(ctx context.Context, arg CreateCampaignParams) (Campaign, error) {
	row := q.db.QueryRowContext(ctx, createCampaign,
		arg.Subject,
		arg.BodyMarkdown,
		arg.CreatedByID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanCampaign(row)
}

const getCampaign = `-- name: GetCampaign :one
SELECT ` + campaignColumns + ` FROM campaigns WHERE id = ?
`

func (q *Queries) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	row := q.db.QueryRowContext(ctx, getCampaign, id)
	return scanCampaign(row)
}

const listCampaigns = `-- name: ListCampaigns :many
SELECT ` + campaignColumns + ` FROM campaigns ORDER BY id DESC LIMIT ?
`

func (q *Queries) ListCampaigns(ctx context.Context, limit int64) ([]Campaign, error) {
	rows, err := q.db.QueryContext(ctx, listCampaigns, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []Campaign{}
	for rows.Next() {
		i, err := scanCampaign(rows)
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

const claimCampaignForSending = `-- name: ClaimCampaignForSending :one
UPDATE campaigns SET status = 'sending', updated_at = ?
WHERE id = ? AND status IN ('draft', 'failed')
RETURNING ` + campaignColumns

type ClaimCampaignForSendingParams struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        int64     `json:"id"`
}

// ClaimCampaignForSending moves a draft or failed campaign to sending and
// returns it. It returns sql.ErrNoRows when the campaign is missing or
// another request already claimed it.
func (q *Queries) ClaimCampaignForSending(ctx context.Context, arg ClaimCampaignForSendingParams) (Campaign, error) {
	row := q.db.QueryRowContext(ctx, claimCampaignForSending, arg.UpdatedAt, arg.ID)
	return scanCampaign(row)
}

const completeCampaign = `-- name: CompleteCampaign :one
UPDATE campaigns
SET status = ?, recipients = ?, delivered = ?, failed = ?, sent_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + campaignColumns

type CompleteCampaignParams struct {
	Status     string       `json:"status"`
	Recipients int64        `json:"recipients"`
	Delivered  int64        `json:"delivered"`
	Failed     int64        `json:"failed"`
	SentAt     sql.NullTime `json:"sent_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	ID         int64        `json:"id"`
}

func (q *Queries) CompleteCampaign(ctx context.Context, arg CompleteCampaignParams) (Campaign, error) {
	row := q.db.QueryRowContext(ctx, completeCampaign,
		arg.Status,
		arg.Recipients,
		arg.Delivered,
		arg.Failed,
		arg.SentAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanCampaign(row)
}
