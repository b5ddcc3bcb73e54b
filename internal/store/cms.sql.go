package store

import (
	"context"
	"database/sql"
	"time"
)

const getSnapshot = `-- name: GetSnapshot :one
SELECT id, data, updated_at FROM cms_snapshots WHERE id = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, id string) (CmsSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getSnapshot, id)
	var i CmsSnapshot
	err := row.Scan(&i.ID, &i.Data, &i.UpdatedAt)
	return i, err
}

const upsertSnapshot = `-- name: UpsertSnapshot :exec
INSERT INTO cms_snapshots (id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
`

type UpsertSnapshotParams struct {
	ID        string    `json:"id"`
	Data      string    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.ID, arg.Data, arg.UpdatedAt)
	return err
}

const insertSnapshotIfAbsent = `-- name: InsertSnapshotIfAbsent :execrows
INSERT INTO cms_snapshots (id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO NOTHING
`

func (q *Queries) InsertSnapshotIfAbsent(ctx context.Context, arg UpsertSnapshotParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertSnapshotIfAbsent, arg.ID, arg.Data, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const cmsSnapshotVersionColumns = `id, snapshot_id, section, data, created_by_id, created_by_username, note, created_at`

func scanCmsSnapshotVersion(row rowScanner) (CmsSnapshotVersion, error) {
	var i CmsSnapshotVersion
	err := row.Scan(
		&i.ID,
		&i.SnapshotID,
		&i.Section,
		&i.Data,
		&i.CreatedByID,
		&i.CreatedByUsername,
		&i.Note,
		&i.CreatedAt,
	)
	return i, err
}

const createSnapshotVersion = `-- name: CreateSnapshotVersion :one
INSERT INTO cms_snapshot_versions (snapshot_id, section, data, created_by_id, created_by_username, note, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + cmsSnapshotVersionColumns

type CreateSnapshotVersionParams struct {
	SnapshotID        string        `json:"snapshot_id"`
	Section           string        `json:"section"`
	Data              string        `json:"data"`
	CreatedByID       sql.NullInt64 `json:"created_by_id"`
	CreatedByUsername string        `json:"created_by_username"`
	Note              string        `json:"note"`
	CreatedAt         time.Time     `json:"created_at"`
}

func (q *Queries) CreateSnapshotVersion(ctx context.Context, arg CreateSnapshotVersionParams) (CmsSnapshotVersion, error) {
	row := q.db.QueryRowContext(ctx, createSnapshotVersion,
		arg.SnapshotID,
		arg.Section,
		arg.Data,
		arg.CreatedByID,
		arg.CreatedByUsername,
		arg.Note,
		arg.CreatedAt,
	)
	return scanCmsSnapshotVersion(row)
}

const getSnapshotVersion = `-- name: GetSnapshotVersion :one
SELECT ` + cmsSnapshotVersionColumns + ` FROM cms_snapshot_versions WHERE id = ?
`

func (q *Queries) GetSnapshotVersion(ctx context.Context, id int64) (CmsSnapshotVersion, error) {
	row := q.db.QueryRowContext(ctx, getSnapshotVersion, id)
	return scanCmsSnapshotVersion(row)
}

const listSnapshotVersions = `-- name: ListSnapshotVersions :many
SELECT ` + cmsSnapshotVersionColumns + ` FROM cms_snapshot_versions
WHERE snapshot_id = ? AND (? = '' OR section = ?)
ORDER BY id DESC
LIMIT ?
`

type ListSnapshotVersionsParams struct {
	SnapshotID string `json:"snapshot_id"`
	Section    string `json:"section"`
	Limit      int64  `json:"limit"`
}

func (q *Queries) ListSnapshotVersions(ctx context.Context, arg ListSnapshotVersionsParams) ([]CmsSnapshotVersion, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotVersions, arg.SnapshotID, arg.Section, arg.Section, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []CmsSnapshotVersion{}
	for rows.Next() {
		i, err := scanCmsSnapshotVersion(rows)
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

const countSnapshotVersions = `-- name: CountSnapshotVersions :one
SELECT COUNT(*) FROM cms_snapshot_versions WHERE snapshot_id = ?
`

func (q *Queries) CountSnapshotVersions(ctx context.Context, snapshotID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSnapshotVersions, snapshotID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
