package event

import (
	"time"

	"github.com/google/uuid"

	"exam-portal/internal/model"
)

type Type string

const (
	TypeAdminLogin         Type = "admin.login"
	TypeAdminLoginFailed   Type = "admin.login_failed"
	TypeUserLogin          Type = "user.login"
	TypeUserLoginFailed    Type = "user.login_failed"
	TypeUserRegistered     Type = "user.registered"
	TypeUserStatusChanged  Type = "user.status_changed"
	TypeSessionRefreshed   Type = "session.refreshed"
	TypeSessionRevoked     Type = "session.revoked"
	TypeSessionsRevoked    Type = "sessions.revoked_all"
	TypeSessionsSwept      Type = "sessions.swept"
	TypeAdminInvited       Type = "admin.invited"
	TypeAdminStatusChanged Type = "admin.status_changed"
	TypeAdminRoleChanged   Type = "admin.super_admin_changed"
	TypeAdminDeleted       Type = "admin.deleted"
	TypePasswordChanged    Type = "admin.password_changed"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Event struct {
	ID        string           `json:"id"`
	Type      Type             `json:"type"`
	Status    string           `json:"status"`
	Actor     model.AuditActor `json:"actor"`
	Resource  string           `json:"resource,omitempty"`
	Details   map[string]any   `json:"details,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func New(typ Type, status string, actor model.AuditActor, resource string, details map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Status:    status,
		Actor:     actor,
		Resource:  resource,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
