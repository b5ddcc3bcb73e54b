package store

import (
	"context"
	"database/sql"
	"time"
)

const adminAuditLogColumns = `id, actor_user_id, actor_username, actor_role, action, resource, resource_id, section, metadata, created_at`

func scanAdminAuditLog(row rowScanner) (AdminAuditLog, error) {
	var i AdminAuditLog
	err := row.Scan(
		&i.ID,
		&i.ActorUserID,
		&i.ActorUsername,
		&i.ActorRole,
		&i.Action,
		&i.Resource,
		&i.ResourceID,
		&i.Section,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const createAuditLog = `-- name: CreateAuditLog :one
INSERT INTO admin_audit_log (actor_user_id, actor_username, actor_role, action, resource, resource_id, section, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + adminAuditLogColumns

type CreateAuditLogParams struct {
	ActorUserID   sql.NullInt64  `json:"actor_user_id"`
	ActorUsername string         `json:"actor_username"`
	ActorRole     string         `json:"actor_role"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	ResourceID    string         `json:"resource_id"`
	Section       sql.NullString `json:"section"`
	Metadata      string         `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (AdminAuditLog, error) {
	row := q.db.QueryRowContext(ctx, createAuditLog,
		arg.ActorUserID,
		arg.ActorUsername,
		arg.ActorRole,
		arg.Action,
		arg.Resource,
		arg.ResourceID,
		arg.Section,
		arg.Metadata,
		arg.CreatedAt,
	)
	return scanAdminAuditLog(row)
}

const listAuditLogs = `-- name: ListAuditLogs :many
SELECT ` + adminAuditLogColumns + ` FROM admin_audit_log
WHERE resource = ? AND resource_id = ?
ORDER BY id DESC
LIMIT ?
`

type ListAuditLogsParams struct {
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
	Limit      int64  `json:"limit"`
}

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AdminAuditLog, error) {
	rows, err := q.db.QueryContext(ctx, listAuditLogs, arg.Resource, arg.ResourceID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []AdminAuditLog{}
	for rows.Next() {
		i, err := scanAdminAuditLog(rows)
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

const countAuditLogs = `-- name: CountAuditLogs :one
SELECT COUNT(*) FROM admin_audit_log WHERE resource = ? AND resource_id = ?
`

type CountAuditLogsParams struct {
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
}

func (q *Queries) CountAuditLogs(ctx context.Context, arg CountAuditLogsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAuditLogs, arg.Resource, arg.ResourceID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
