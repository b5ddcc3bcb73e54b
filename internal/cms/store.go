// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// Snapshot store errors.
var (
	ErrVersionNotFound = errors.New("version not found")
	ErrInvalidSection  = errors.New("invalid section")
	ErrNotVersioned    = errors.New("document is not versioned")
)

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Kind describes one snapshot document: its row id, the top-level keys that
// are diffed on write, and the pure sanitizer applied on every read and write.
type Kind[T any] struct {
	ID       string
	Sections []string
	// Versioned kinds append a pre-image row per changed section and support rollback.
	Versioned   bool
	Sanitize    func(raw []byte) T
	AuditAction string
}

// HasSection reports whether name is one of the kind's sections.
func (k Kind[T]) HasSection(name string) bool {
	return slices.Contains(k.Sections, name)
}

// Main is the versioned site content document.
var Main = Kind[Document]{
	ID:          "main",
	Sections:    Sections,
	Versioned:   true,
	Sanitize:    SanitizeDocument,
	AuditAction: model.AuditCMSUpdate,
}

// Actor identifies the admin performing a write.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

// Snapshot is a sanitized document and the time it was last written.
type Snapshot[T any] struct {
	Data      T
	UpdatedAt time.Time
}

// WriteResult reports the outcome of Store.Write.
type WriteResult[T any] struct {
	Data      T
	Changed   []string
	UpdatedAt time.Time
}

// RollbackResult reports the outcome of Store.Rollback.
type RollbackResult[T any] struct {
	Data      T
	Section   string
	VersionID int64
	UpdatedAt time.Time
}

// History holds the newest version and audit rows of a document.
type History struct {
	Versions []store.CmsSnapshotVersion
	Audit    []store.AdminAuditLog
}

// Store reads and writes one snapshot kind. Concurrent writes are
// last-writer-wins on the document body; every writer's version and audit
// rows are kept.
type Store[T any] struct {
	db      *sql.DB
	queries *store.Queries
	kind    Kind[T]
	now     func() time.Time
}

// NewStore creates a Store for kind.
func NewStore[T any](db *sql.DB, kind Kind[T]) *Store[T] {
	return &Store[T]{
		db:      db,
		queries: store.New(db),
		kind:    kind,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Kind returns the document kind the store serves.
func (s *Store[T]) Kind() Kind[T] {
	return s.kind
}

// Read returns the sanitized document, persisting the default on first read.
func (s *Store[T]) Read(ctx context.Context) (Snapshot[T], error) {
	row, err := s.queries.GetSnapshot(ctx, s.kind.ID)
	if errors.Is(err, sql.ErrNoRows) {
		row, err = s.createDefault(ctx)
	}
	if err != nil {
		return Snapshot[T]{}, fmt.Errorf("reading snapshot %s: %w", s.kind.ID, err)
	}
	return Snapshot[T]{Data: s.kind.Sanitize([]byte(row.Data)), UpdatedAt: row.UpdatedAt}, nil
}

func (s *Store[T]) createDefault(ctx context.Context) (store.CmsSnapshot, error) {
	data, err := json.Marshal(s.kind.Sanitize(nil))
	if err != nil {
		return store.CmsSnapshot{}, err
	}
	// A concurrent first read may win the insert; either way the row exists after.
	if _, err := s.queries.InsertSnapshotIfAbsent(ctx, store.UpsertSnapshotParams{
		ID:        s.kind.ID,
		Data:      string(data),
		UpdatedAt: s.now(),
	}); err != nil {
		return store.CmsSnapshot{}, err
	}
	return s.queries.GetSnapshot(ctx, s.kind.ID)
}

// current loads the stored document as sanitized JSON, or the default when
// the row does not exist yet.
func (s *Store[T]) current(ctx context.Context, q *store.Queries) ([]byte, error) {
	row, err := q.GetSnapshot(ctx, s.kind.ID)
	var raw []byte
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		raw = []byte(row.Data)
	}
	return json.Marshal(s.kind.Sanitize(raw))
}

// Write sanitizes raw and stores it. Sections whose serialized form changed
// are returned; for versioned kinds each gets a row holding its previous
// value. One audit row summarises a write that changed anything.
func (s *Store[T]) Write(ctx context.Context, raw []byte, actor Actor, note string) (WriteResult[T], error) {
	next := s.kind.Sanitize(raw)
	nextJSON, err := json.Marshal(next)
	if err != nil {
		return WriteResult[T]{}, fmt.Errorf("encoding snapshot %s: %w", s.kind.ID, err)
	}

	now := s.now()
	var changed []string
	err = store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		curJSON, err := s.current(ctx, q)
		if err != nil {
			return fmt.Errorf("loading current snapshot: %w", err)
		}
		changed = diffSections(curJSON, nextJSON, s.kind.Sections)

		if err := q.UpsertSnapshot(ctx, store.UpsertSnapshotParams{
			ID:        s.kind.ID,
			Data:      string(nextJSON),
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("upserting snapshot: %w", err)
		}
		if len(changed) == 0 {
			return nil
		}

		if s.kind.Versioned {
			for _, section := range changed {
				if err := s.appendVersion(ctx, q, section, gjson.GetBytes(curJSON, section).Raw, actor, note, now); err != nil {
					return err
				}
			}
		}

		meta, _ := sjson.Set(`{}`, "sections", changed)
		if note != "" {
			meta, _ = sjson.Set(meta, "note", note)
		}
		section := ""
		if len(changed) == 1 {
			section = changed[0]
		}
		return s.appendAudit(ctx, q, s.kind.AuditAction, section, meta, actor, now)
	})
	if err != nil {
		return WriteResult[T]{}, fmt.Errorf("writing snapshot %s: %w", s.kind.ID, err)
	}

	return WriteResult[T]{Data: next, Changed: nonNil(changed), UpdatedAt: now}, nil
}

// Rollback restores one section to the value stored in version versionID.
// The value being replaced is itself recorded as a new version, so a
// rollback can be rolled back.
func (s *Store[T]) Rollback(ctx context.Context, versionID int64, actor Actor) (RollbackResult[T], error) {
	if !s.kind.Versioned {
		return RollbackResult[T]{}, ErrNotVersioned
	}

	now := s.now()
	var (
		next    T
		section string
	)
	err := store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		version, err := q.GetSnapshotVersion(ctx, versionID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && version.SnapshotID != s.kind.ID) {
			return ErrVersionNotFound
		}
		if err != nil {
			return fmt.Errorf("loading version: %w", err)
		}
		if !s.kind.HasSection(version.Section) {
			return ErrInvalidSection
		}
		section = version.Section

		curJSON, err := s.current(ctx, q)
		if err != nil {
			return fmt.Errorf("loading current snapshot: %w", err)
		}
		patched, err := sjson.SetRawBytes(curJSON, section, []byte(version.Data))
		if err != nil {
			return fmt.Errorf("patching section %s: %w", section, err)
		}
		next = s.kind.Sanitize(patched)
		nextJSON, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}

		if err := q.UpsertSnapshot(ctx, store.UpsertSnapshotParams{
			ID:        s.kind.ID,
			Data:      string(nextJSON),
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("upserting snapshot: %w", err)
		}

		note := "Rollback of version #" + strconv.FormatInt(versionID, 10)
		if err := s.appendVersion(ctx, q, section, gjson.GetBytes(curJSON, section).Raw, actor, note, now); err != nil {
			return err
		}

		meta, _ := sjson.Set(`{}`, "versionId", versionID)
		return s.appendAudit(ctx, q, model.AuditCMSRollback, section, meta, actor, now)
	})
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) || errors.Is(err, ErrInvalidSection) {
			return RollbackResult[T]{}, err
		}
		return RollbackResult[T]{}, fmt.Errorf("rolling back snapshot %s: %w", s.kind.ID, err)
	}

	return RollbackResult[T]{Data: next, Section: section, VersionID: versionID, UpdatedAt: now}, nil
}

// History returns the newest version rows, optionally for one section, and
// the newest audit rows of the document. limit is clamped to MaxHistoryLimit.
func (s *Store[T]) History(ctx context.Context, section string, limit int) (History, error) {
	if section != "" && !s.kind.HasSection(section) {
		return History{}, ErrInvalidSection
	}
	limit = util.ClampInt(limit, DefaultHistoryLimit, 1, MaxHistoryLimit)

	versions, err := s.queries.ListSnapshotVersions(ctx, store.ListSnapshotVersionsParams{
		SnapshotID: s.kind.ID,
		Section:    section,
		Limit:      int64(limit),
	})
	if err != nil {
		return History{}, fmt.Errorf("listing versions: %w", err)
	}

	audit, err := s.queries.ListAuditLogs(ctx, store.ListAuditLogsParams{
		Resource:   model.ResourceCMSSnapshot,
		ResourceID: s.kind.ID,
		Limit:      int64(limit),
	})
	if err != nil {
		return History{}, fmt.Errorf("listing audit log: %w", err)
	}

	return History{Versions: versions, Audit: audit}, nil
}

func (s *Store[T]) appendVersion(ctx context.Context, q *store.Queries, section, data string, actor Actor, note string, now time.Time) error {
	if data == "" {
		data = "null"
	}
	if _, err := q.CreateSnapshotVersion(ctx, store.CreateSnapshotVersionParams{
		SnapshotID:        s.kind.ID,
		Section:           section,
		Data:              data,
		CreatedByID:       util.NullInt64FromID(actor.UserID),
		CreatedByUsername: actor.Username,
		Note:              note,
		CreatedAt:         now,
	}); err != nil {
		return fmt.Errorf("appending %s version: %w", section, err)
	}
	return nil
}

func (s *Store[T]) appendAudit(ctx context.Context, q *store.Queries, action, section, meta string, actor Actor, now time.Time) error {
	if _, err := q.CreateAuditLog(ctx, store.CreateAuditLogParams{
		ActorUserID:   util.NullInt64FromID(actor.UserID),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		Resource:      model.ResourceCMSSnapshot,
		ResourceID:    s.kind.ID,
		Section:       util.NullStringFromValue(section),
		Metadata:      meta,
		CreatedAt:     now,
	}); err != nil {
		return fmt.Errorf("appending audit row: %w", err)
	}
	return nil
}

// diffSections returns the sections whose serialized values differ.
func diffSections(cur, next []byte, sections []string) []string {
	var changed []string
	for _, section := range sections {
		if gjson.GetBytes(cur, section).Raw != gjson.GetBytes(next, section).Raw {
			changed = append(changed, section)
		}
	}
	return changed
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
