package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam-portal/internal/model"
)

func TestAdminStore_EmailIsCaseInsensitive(t *testing.T) {
	store := NewAdminStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, model.Admin{ID: "a1", Email: "Ada@Example.com"}))

	found, err := store.FindByEmail(ctx, "ada@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "a1", found.ID)

	err = store.Create(ctx, model.Admin{ID: "a2", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, model.ErrDuplicateAccount)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAdminStore_CountCreatedBy(t *testing.T) {
	store := NewAdminStore()
	ctx := context.Background()
	root := "root"

	require.NoError(t, store.Create(ctx, model.Admin{ID: root, Email: "root@example.com"}))
	require.NoError(t, store.Create(ctx, model.Admin{ID: "a1", Email: "a1@example.com", CreatedBy: &root}))
	require.NoError(t, store.Create(ctx, model.Admin{ID: "a2", Email: "a2@example.com", CreatedBy: &root}))

	n, err := store.CountCreatedBy(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	live := model.RefreshToken{ID: "s1", Token: "t1", AdminID: "a1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	other := model.RefreshToken{ID: "s2", Token: "t2", AdminID: "a1", ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(time.Second)}
	expired := model.RefreshToken{ID: "s3", Token: "t3", AdminID: "a1", ExpiresAt: now.Add(-time.Minute), CreatedAt: now}
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, other))
	require.NoError(t, store.Create(ctx, expired))
	assert.Error(t, store.Create(ctx, live))

	active, err := store.ListActiveForAdmin(ctx, "a1", now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "s2", active[0].ID)

	revoked, err := store.Revoke(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.Revoke(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.Revoke(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.ErrorIs(t, store.RevokeByID(ctx, "someone-else", "s2"), model.ErrTokenNotFound)

	n, err := store.RevokeAllForAdmin(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	deleted, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 2, store.Len())

	_, err = store.FindByToken(ctx, "t3")
	assert.ErrorIs(t, err, model.ErrTokenNotFound)
}

func TestAuditStore_QueryFiltersAndPages(t *testing.T) {
	store := NewAuditStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Log(ctx, model.AuditEntry{
			Action:     "admin.login",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
			Actor:      model.AuditActor{ID: "a1"},
			Status:     "success",
		}))
	}
	require.NoError(t, store.Log(ctx, model.AuditEntry{
		Action:     "user.login_failed",
		OccurredAt: base,
		Status:     "failure",
	}))

	items, total, err := store.Query(ctx, model.AuditQuery{Action: "ADMIN.LOGIN", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.True(t, items[0].OccurredAt.After(items[1].OccurredAt))

	items, total, err = store.Query(ctx, model.AuditQuery{Status: "failure", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "user.login_failed", items[0].Action)

	_, total, err = store.Query(ctx, model.AuditQuery{From: base.Add(3 * time.Minute), Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, _, err = store.Query(ctx, model.AuditQuery{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}
