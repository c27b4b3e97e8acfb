package service

import (
	"context"
	"time"

	"exam-portal/internal/model"
)

// AdminStore lookups return model.ErrNotFound for missing rows and
// Create returns model.ErrDuplicateAccount on an email collision.
type AdminStore interface {
	FindByID(ctx context.Context, id string) (model.Admin, error)
	FindByEmail(ctx context.Context, email string) (model.Admin, error)
	Create(ctx context.Context, admin model.Admin) error
	Update(ctx context.Context, admin model.Admin) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Admin, error)
	Count(ctx context.Context) (int, error)
	CountCreatedBy(ctx context.Context, creatorID string) (int, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) error
	Update(ctx context.Context, user model.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.User, error)
}

// SessionStore persists admin refresh tokens. Lookups by token or id return
// model.ErrTokenNotFound when nothing matches.
type SessionStore interface {
	Create(ctx context.Context, session model.RefreshToken) error
	FindByToken(ctx context.Context, token string) (model.RefreshToken, error)
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeByID(ctx context.Context, adminID string, id string) error
	RevokeAllForAdmin(ctx context.Context, adminID string) (int64, error)
	ListActiveForAdmin(ctx context.Context, adminID string, now time.Time) ([]model.RefreshToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error)
}

type LoginThrottle interface {
	Locked(ctx context.Context, key string) (bool, error)
	RegisterFailure(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
