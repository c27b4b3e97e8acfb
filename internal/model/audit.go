package model

import "time"

type AuditActor struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
	IP    string `json:"ip,omitempty"`
}

type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	OccurredAt time.Time      `json:"occurredAt"`
	Actor      AuditActor     `json:"actor"`
	Status     string         `json:"status"`
	Resource   string         `json:"resource,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// AuditQuery filters audit entries. Zero values mean "no filter".
type AuditQuery struct {
	Action   string
	ActorID  string
	Status   string
	Resource string
	From     time.Time
	To       time.Time
	Page     int
	Limit    int
}

func (q AuditQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
