//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"exam-portal/internal/database"
	"exam-portal/internal/model"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("exam_portal_test"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, database.Options{URL: url, MaxConns: 4, ConnectAttempts: 5})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func newAdmin(email string, createdBy *string) model.Admin {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.Admin{
		ID:           uuid.NewString(),
		FullName:     "Admin " + email,
		Email:        email,
		PasswordHash: "$2a$12$hash",
		IsActive:     true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRepositories_Postgres(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admins := NewAdminRepository(db.Pool)
	users := NewUserRepository(db.Pool)
	sessions := NewTokenRepository(db.Pool)
	audit := NewAuditRepository(db.Pool)

	t.Run("admins", func(t *testing.T) {
		root := newAdmin("Root@Example.com", nil)
		root.IsSuperAdmin = true
		require.NoError(t, admins.Create(ctx, root))

		child := newAdmin("child@example.com", &root.ID)
		require.NoError(t, admins.Create(ctx, child))

		err := admins.Create(ctx, newAdmin("ROOT@example.com", nil))
		assert.ErrorIs(t, err, model.ErrDuplicateAccount)

		found, err := admins.FindByEmail(ctx, "root@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, root.ID, found.ID)
		assert.True(t, found.IsSuperAdmin)

		_, err = admins.FindByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = admins.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, model.ErrNotFound)

		count, err := admins.CountCreatedBy(ctx, root.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		child.IsActive = false
		require.NoError(t, admins.Update(ctx, child))
		found, err = admins.FindByID(ctx, child.ID)
		require.NoError(t, err)
		assert.False(t, found.IsActive)
		require.NotNil(t, found.CreatedBy)
		assert.Equal(t, root.ID, *found.CreatedBy)

		require.NoError(t, admins.Delete(ctx, child.ID))
		assert.ErrorIs(t, admins.Delete(ctx, child.ID), model.ErrNotFound)

		list, err := admins.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("users", func(t *testing.T) {
		now := time.Now().UTC()
		u := model.User{
			ID: uuid.NewString(), Name: "Sam", Email: "sam@example.com", PasswordHash: "h",
			Role: model.RoleUser, IsActive: true, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, users.Create(ctx, u))
		assert.ErrorIs(t, users.Create(ctx, u), model.ErrDuplicateAccount)

		found, err := users.FindByEmail(ctx, "SAM@example.com")
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, found.Role)

		found.IsActive = false
		require.NoError(t, users.Update(ctx, found))
		found, err = users.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, found.IsActive)

		require.NoError(t, users.Delete(ctx, u.ID))
		assert.ErrorIs(t, users.Delete(ctx, u.ID), model.ErrNotFound)
		assert.ErrorIs(t, users.Delete(ctx, "not-a-uuid"), model.ErrNotFound)
		_, err = users.FindByEmail(ctx, "sam@example.com")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		owner := newAdmin("sessions@example.com", nil)
		require.NoError(t, admins.Create(ctx, owner))

		now := time.Now().UTC()
		live := model.RefreshToken{ID: uuid.NewString(), Token: "live-token", AdminID: owner.ID,
			ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}
		old := model.RefreshToken{ID: uuid.NewString(), Token: "old-token", AdminID: owner.ID,
			ExpiresAt: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now}
		require.NoError(t, sessions.Create(ctx, live))
		require.NoError(t, sessions.Create(ctx, old))

		active, err := sessions.ListActiveForAdmin(ctx, owner.ID, now)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, live.ID, active[0].ID)

		assert.ErrorIs(t, sessions.RevokeByID(ctx, uuid.NewString(), live.ID), model.ErrTokenNotFound)
		require.NoError(t, sessions.RevokeByID(ctx, owner.ID, live.ID))
		require.NoError(t, sessions.RevokeByID(ctx, owner.ID, live.ID))

		revoked, err := sessions.Revoke(ctx, "live-token")
		require.NoError(t, err)
		assert.False(t, revoked)

		found, err := sessions.FindByToken(ctx, "live-token")
		require.NoError(t, err)
		assert.True(t, found.IsRevoked)

		_, err = sessions.FindByToken(ctx, "nope")
		assert.ErrorIs(t, err, model.ErrTokenNotFound)

		deleted, err := sessions.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("audit", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, action := range []string{"admin.login", "admin.login_failed", "admin.login"} {
			require.NoError(t, audit.Log(ctx, model.AuditEntry{
				ID:         uuid.NewString(),
				Action:     action,
				OccurredAt: base.Add(time.Duration(i) * time.Minute),
				Actor:      model.AuditActor{ID: "a-1", Email: "ada@example.com", Role: model.RoleAdmin, IP: "10.0.0.1"},
				Status:     "success",
				Resource:   "admins/a-1",
				Details:    map[string]any{"n": i},
			}))
		}

		items, total, err := audit.Query(ctx, model.AuditQuery{Action: "ADMIN.LOGIN", Page: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 1)
		assert.Equal(t, base.Add(2*time.Minute), items[0].OccurredAt)
		assert.Equal(t, model.RoleAdmin, items[0].Actor.Role)
		assert.EqualValues(t, 2, items[0].Details["n"])

		items, total, err = audit.Query(ctx, model.AuditQuery{From: base.Add(30 * time.Second), Resource: "admins"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, items, 2)
	})
}
