package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"exam-portal/internal/model"
	"exam-portal/internal/repository/memstore"
)

type authFixture struct {
	store  *memstore.Store
	tokens *TokenService
	auth   *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := memstore.New()
	tokens := newTestTokenService(t)
	auth := NewAuthService(tokens, store.Admins, store.Users, store.Sessions)

	return &authFixture{store: store, tokens: tokens, auth: auth}
}

func (f *authFixture) seedAdmin(t *testing.T, email string, password string, mutate func(a *model.Admin)) model.Admin {
	t.Helper()

	hash, err := f.tokens.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	admin := model.Admin{
		ID:           uuid.NewString(),
		FullName:     "Admin " + email,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(&admin)
	}

	require.NoError(t, f.store.Admins.Create(context.Background(), admin))
	return admin
}

func (f *authFixture) seedUser(t *testing.T, email string, password string, active bool) model.User {
	t.Helper()

	hash, err := f.tokens.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         "User " + email,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	require.NoError(t, f.store.Users.Create(context.Background(), user))
	return user
}

func (f *authFixture) setActive(t *testing.T, adminID string, active bool) {
	t.Helper()

	ctx := context.Background()
	admin, err := f.store.Admins.FindByID(ctx, adminID)
	require.NoError(t, err)
	admin.IsActive = active
	require.NoError(t, f.store.Admins.Update(ctx, admin))
}

type stubThrottle struct {
	locked   bool
	failures int
	resets   int
	err      error
}

func (s *stubThrottle) Locked(context.Context, string) (bool, error) {
	return s.locked, s.err
}

func (s *stubThrottle) RegisterFailure(context.Context, string) (bool, error) {
	s.failures++
	return false, s.err
}

func (s *stubThrottle) Reset(context.Context, string) error {
	s.resets++
	return s.err
}
