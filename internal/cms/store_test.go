// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/testutil"
)

func newMainStore(t *testing.T) (*Store[Document], Actor, *store.Queries) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	user := testutil.CreateAdmin(t, db, "editor", model.RoleEditor, "password1")
	actor := Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
	return NewStore(db, Main), actor, store.New(db)
}

// docWith returns the default document with path set to value.
func docWith(t *testing.T, pairs ...string) []byte {
	t.Helper()
	doc := `{}`
	for i := 0; i+1 < len(pairs); i += 2 {
		var err error
		doc, err = sjson.Set(doc, pairs[i], pairs[i+1])
		require.NoError(t, err)
	}
	return []byte(doc)
}

func TestStoreRead_PersistsDefault(t *testing.T) {
	s, _, q := newMainStore(t)
	ctx := context.Background()

	_, err := q.GetSnapshot(ctx, Main.ID)
	require.Error(t, err, "row should not exist before first read")

	snap, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultDocument(), snap.Data)

	row, err := q.GetSnapshot(ctx, Main.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultDocument().Hero.Title, gjson.Get(row.Data, "hero.title").String())

	count, err := q.CountSnapshotVersions(ctx, Main.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreWrite_IdempotentSecondWrite(t *testing.T) {
	s, actor, q := newMainStore(t)
	ctx := context.Background()
	body := docWith(t, "hero.title", "First title")

	first, err := s.Write(ctx, body, actor, "")
	require.NoError(t, err)
	assert.Equal(t, []string{SectionHero}, first.Changed)

	second, err := s.Write(ctx, body, actor, "")
	require.NoError(t, err)
	assert.Empty(t, second.Changed)
	assert.NotNil(t, second.Changed)

	versions, err := q.CountSnapshotVersions(ctx, Main.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), versions)

	audit, err := q.CountAuditLogs(ctx, store.CountAuditLogsParams{Resource: model.ResourceCMSSnapshot, ResourceID: Main.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), audit)
}

func TestStoreWrite_StoredOutputRoundTripsUnchanged(t *testing.T) {
	s, actor, _ := newMainStore(t)
	ctx := context.Background()

	body := []byte(`{
		"hero": {"title": "<b>Bold</b> &amp; brave", "highlights": ["Fast", "", "Fast"]},
		"services": {"items": [{"title": "Design"}, {"title": "Design"}, {"summary": "no title"}]},
		"products": {"items": [{"name": "Kit", "description": "<p onclick=\"x()\">Hi</p><script>alert(1)</script>"}]},
		"design": {"primaryColor": "#ABC", "radius": 99, "theme": "neon"},
		"homePage": {"sectionOrder": ["products", "hero", "products", "bogus"]}
	}`)
	first, err := s.Write(ctx, body, actor, "")
	require.NoError(t, err)

	snap, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Data, snap.Data)

	stored, err := json.Marshal(snap.Data)
	require.NoError(t, err)
	again, err := s.Write(ctx, stored, actor, "")
	require.NoError(t, err)
	assert.Empty(t, again.Changed, "sanitized output must be a fixed point")
}

func TestStoreWrite_NestedEntitiesSettleOnFirstWrite(t *testing.T) {
	s, actor, q := newMainStore(t)
	ctx := context.Background()
	body := []byte(`{"hero":{"title":"&amp;amp;amp;amp;lt;b&amp;amp;amp;amp;gt;x"}}`)

	first, err := s.Write(ctx, body, actor, "")
	require.NoError(t, err)
	assert.Equal(t, []string{SectionHero}, first.Changed)
	assert.Equal(t, "x", first.Data.Hero.Title)

	second, err := s.Write(ctx, body, actor, "")
	require.NoError(t, err)
	assert.Empty(t, second.Changed)

	versions, err := q.CountSnapshotVersions(ctx, Main.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), versions)
}

func TestStoreWrite_SectionOnlyDiffing(t *testing.T) {
	s, actor, q := newMainStore(t)
	ctx := context.Background()

	_, err := s.Read(ctx)
	require.NoError(t, err)

	res, err := s.Write(ctx, docWith(t, "services.heading", "What we do"), actor, "copy edit")
	require.NoError(t, err)
	assert.Equal(t, []string{SectionServices}, res.Changed)

	versions, err := q.ListSnapshotVersions(ctx, store.ListSnapshotVersionsParams{SnapshotID: Main.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, SectionServices, versions[0].Section)
	assert.Equal(t, "Services", gjson.Get(versions[0].Data, "heading").String(), "version must hold the pre-image")
	assert.Equal(t, "copy edit", versions[0].Note)
	assert.Equal(t, actor.Username, versions[0].CreatedByUsername)

	audit, err := q.ListAuditLogs(ctx, store.ListAuditLogsParams{Resource: model.ResourceCMSSnapshot, ResourceID: Main.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, model.AuditCMSUpdate, audit[0].Action)
	assert.Equal(t, SectionServices, audit[0].Section.String)
	assert.Equal(t, `["services"]`, gjson.Get(audit[0].Metadata, "sections").Raw)
}

func TestStoreRollback_RoundTrip(t *testing.T) {
	s, actor, q := newMainStore(t)
	ctx := context.Background()

	_, err := s.Write(ctx, docWith(t, "hero.title", "A"), actor, "")
	require.NoError(t, err)
	_, err = s.Write(ctx, docWith(t, "hero.title", "B"), actor, "")
	require.NoError(t, err)

	versions, err := q.ListSnapshotVersions(ctx, store.ListSnapshotVersionsParams{SnapshotID: Main.ID, Section: SectionHero, Limit: 10})
	require.NoError(t, err)
	require.Len(t, versions, 2)
	capturedA := versions[0]
	require.Equal(t, "A", gjson.Get(capturedA.Data, "title").String())

	res, err := s.Rollback(ctx, capturedA.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, SectionHero, res.Section)
	assert.Equal(t, capturedA.ID, res.VersionID)
	assert.Equal(t, "A", res.Data.Hero.Title)

	snap, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", snap.Data.Hero.Title)

	versions, err = q.ListSnapshotVersions(ctx, store.ListSnapshotVersionsParams{SnapshotID: Main.ID, Section: SectionHero, Limit: 10})
	require.NoError(t, err)
	require.Len(t, versions, 3)
	capturedB := versions[0]
	assert.Equal(t, "B", gjson.Get(capturedB.Data, "title").String())
	assert.Contains(t, capturedB.Note, "#")

	_, err = s.Rollback(ctx, capturedB.ID, actor)
	require.NoError(t, err)
	snap, err = s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", snap.Data.Hero.Title)

	audit, err := q.ListAuditLogs(ctx, store.ListAuditLogsParams{Resource: model.ResourceCMSSnapshot, ResourceID: Main.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, audit, 4)
	assert.Equal(t, model.AuditCMSRollback, audit[0].Action)
	assert.Equal(t, capturedB.ID, gjson.Get(audit[0].Metadata, "versionId").Int())
}

func TestStoreRollback_Errors(t *testing.T) {
	s, actor, q := newMainStore(t)
	ctx := context.Background()

	_, err := s.Rollback(ctx, 9999, actor)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	landings := NewStore(s.db, LandingsKind)
	_, err = landings.Write(ctx, []byte(`{"pages":[{"title":"Spring sale"}]}`), actor, "")
	require.NoError(t, err)
	_, err = landings.Rollback(ctx, 1, actor)
	assert.ErrorIs(t, err, ErrNotVersioned)

	// A version that belongs to another document is not found.
	_, err = q.CreateSnapshotVersion(ctx, store.CreateSnapshotVersionParams{
		SnapshotID: LandingsKind.ID,
		Section:    "pages",
		Data:       `[]`,
		CreatedAt:  s.now(),
	})
	require.NoError(t, err)
	versions, err := q.ListSnapshotVersions(ctx, store.ListSnapshotVersionsParams{SnapshotID: LandingsKind.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	_, err = s.Rollback(ctx, versions[0].ID, actor)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	// A version of an unknown section cannot be applied.
	_, err = s.Read(ctx)
	require.NoError(t, err)
	bogus, err := q.CreateSnapshotVersion(ctx, store.CreateSnapshotVersionParams{
		SnapshotID: Main.ID,
		Section:    "footer",
		Data:       `{}`,
		CreatedAt:  s.now(),
	})
	require.NoError(t, err)
	_, err = s.Rollback(ctx, bogus.ID, actor)
	assert.True(t, errors.Is(err, ErrInvalidSection), "got %v", err)
}

func TestStoreHistory(t *testing.T) {
	s, actor, _ := newMainStore(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.Write(ctx, docWith(t, "hero.title", title, "site.name", title), actor, "")
		require.NoError(t, err)
	}

	all, err := s.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all.Versions, 6)
	assert.Len(t, all.Audit, 3)
	for i := 1; i < len(all.Versions); i++ {
		assert.Greater(t, all.Versions[i-1].ID, all.Versions[i].ID, "versions must be newest first")
	}

	hero, err := s.History(ctx, SectionHero, 2)
	require.NoError(t, err)
	require.Len(t, hero.Versions, 2)
	assert.Equal(t, "two", gjson.Get(hero.Versions[0].Data, "title").String())

	_, err = s.History(ctx, "footer", 10)
	assert.ErrorIs(t, err, ErrInvalidSection)
}

func TestLandingsStore_AuditsWithoutVersions(t *testing.T) {
	s, actor, q := newMainStore(t)
	ctx := context.Background()
	landings := NewStore(s.db, LandingsKind)

	res, err := landings.Write(ctx, []byte(`{"pages":[{"title":"Spring Sale","published":true}]}`), actor, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pages"}, res.Changed)
	require.Len(t, res.Data.Pages, 1)
	assert.Equal(t, "spring-sale", res.Data.Pages[0].Slug)

	count, err := q.CountSnapshotVersions(ctx, LandingsKind.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	audit, err := q.ListAuditLogs(ctx, store.ListAuditLogsParams{Resource: model.ResourceCMSSnapshot, ResourceID: LandingsKind.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, model.AuditLandingsUpdate, audit[0].Action)
}
