// Package memstore keeps accounts, sessions and audit entries in process memory.
// It backs unit tests and STORE_DRIVER=memory local runs.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"exam-portal/internal/model"
)

// Store groups the in-memory stores behind one value.
type Store struct {
	Admins   *AdminStore
	Users    *UserStore
	Sessions *SessionStore
	Audit    *AuditStore
}

func New() *Store {
	return &Store{
		Admins:   NewAdminStore(),
		Users:    NewUserStore(),
		Sessions: NewSessionStore(),
		Audit:    NewAuditStore(),
	}
}

type AdminStore struct {
	mu   sync.RWMutex
	byID map[string]model.Admin
}

func NewAdminStore() *AdminStore {
	return &AdminStore{byID: map[string]model.Admin{}}
}

func (s *AdminStore) FindByID(_ context.Context, id string) (model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.byID[id]
	if !ok {
		return model.Admin{}, model.ErrNotFound
	}
	return admin, nil
}

func (s *AdminStore) FindByEmail(_ context.Context, email string) (model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = model.NormalizeEmail(email)
	for _, admin := range s.byID {
		if model.NormalizeEmail(admin.Email) == email {
			return admin, nil
		}
	}
	return model.Admin{}, model.ErrNotFound
}

func (s *AdminStore) Create(_ context.Context, admin model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := model.NormalizeEmail(admin.Email)
	for _, existing := range s.byID {
		if existing.ID == admin.ID || model.NormalizeEmail(existing.Email) == email {
			return model.ErrDuplicateAccount
		}
	}

	s.byID[admin.ID] = admin
	return nil
}

func (s *AdminStore) Update(_ context.Context, admin model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[admin.ID]; !ok {
		return model.ErrNotFound
	}
	s.byID[admin.ID] = admin
	return nil
}

func (s *AdminStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *AdminStore) List(_ context.Context) ([]model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Admin, 0, len(s.byID))
	for _, admin := range s.byID {
		out = append(out, admin)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *AdminStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *AdminStore) CountCreatedBy(_ context.Context, creatorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, admin := range s.byID {
		if admin.CreatedBy != nil && *admin.CreatedBy == creatorID {
			n++
		}
	}
	return n, nil
}

type UserStore struct {
	mu   sync.RWMutex
	byID map[string]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{byID: map[string]model.User{}}
}

func (s *UserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return user, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = model.NormalizeEmail(email)
	for _, user := range s.byID {
		if model.NormalizeEmail(user.Email) == email {
			return user, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *UserStore) Create(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := model.NormalizeEmail(user.Email)
	for _, existing := range s.byID {
		if existing.ID == user.ID || model.NormalizeEmail(existing.Email) == email {
			return model.ErrDuplicateAccount
		}
	}

	s.byID[user.ID] = user
	return nil
}

func (s *UserStore) Update(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[user.ID]; !ok {
		return model.ErrNotFound
	}
	s.byID[user.ID] = user
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.byID))
	for _, user := range s.byID {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type SessionStore struct {
	mu      sync.RWMutex
	byToken map[string]model.RefreshToken
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byToken: map[string]model.RefreshToken{}}
}

func (s *SessionStore) Create(_ context.Context, session model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byToken[session.Token]; exists {
		return errors.New("session token already exists")
	}
	s.byToken[session.Token] = session
	return nil
}

func (s *SessionStore) FindByToken(_ context.Context, token string) (model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.byToken[token]
	if !ok {
		return model.RefreshToken{}, model.ErrTokenNotFound
	}
	return session, nil
}

func (s *SessionStore) Revoke(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byToken[token]
	if !ok || session.IsRevoked {
		return false, nil
	}
	session.IsRevoked = true
	session.UpdatedAt = time.Now().UTC()
	s.byToken[token] = session
	return true, nil
}

func (s *SessionStore) RevokeByID(_ context.Context, adminID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.byToken {
		if session.ID != id || session.AdminID != adminID {
			continue
		}
		if !session.IsRevoked {
			session.IsRevoked = true
			session.UpdatedAt = time.Now().UTC()
			s.byToken[token] = session
		}
		return nil
	}
	return model.ErrTokenNotFound
}

func (s *SessionStore) RevokeAllForAdmin(_ context.Context, adminID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for token, session := range s.byToken {
		if session.AdminID != adminID || session.IsRevoked {
			continue
		}
		session.IsRevoked = true
		session.UpdatedAt = now
		s.byToken[token] = session
		n++
	}
	return n, nil
}

func (s *SessionStore) ListActiveForAdmin(_ context.Context, adminID string, now time.Time) ([]model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RefreshToken, 0)
	for _, session := range s.byToken {
		if session.AdminID == adminID && !session.IsRevoked && !session.Expired(now) {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, session := range s.byToken {
		if session.ExpiresAt.Before(now) {
			delete(s.byToken, token)
			n++
		}
	}
	return n, nil
}

// Len reports how many session rows exist, revoked ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}

type AuditStore struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Log(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action := strings.ToLower(strings.TrimSpace(query.Action))
	status := strings.ToLower(strings.TrimSpace(query.Status))
	actorID := strings.TrimSpace(query.ActorID)
	resource := strings.ToLower(strings.TrimSpace(query.Resource))

	items := make([]model.AuditEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if action != "" && strings.ToLower(entry.Action) != action {
			continue
		}
		if status != "" && strings.ToLower(entry.Status) != status {
			continue
		}
		if actorID != "" && entry.Actor.ID != actorID {
			continue
		}
		if resource != "" && !strings.Contains(strings.ToLower(entry.Resource), resource) {
			continue
		}
		if !query.From.IsZero() && entry.OccurredAt.Before(query.From) {
			continue
		}
		if !query.To.IsZero() && entry.OccurredAt.After(query.To) {
			continue
		}
		items = append(items, entry)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].OccurredAt.After(items[j].OccurredAt) })

	total := len(items)
	if query.Limit <= 0 {
		return items, total, nil
	}

	start := query.Offset()
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	return items[start:end], total, nil
}
