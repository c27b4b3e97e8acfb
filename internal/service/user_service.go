package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exam-portal/internal/event"
	"exam-portal/internal/model"
)

type UserService struct {
	users UserStore
	bus   event.Bus
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) SetEventBus(bus event.Bus) {
	s.bus = bus
}

func (s *UserService) List(ctx context.Context) ([]model.UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	views := make([]model.UserView, 0, len(users))
	for _, user := range users {
		views = append(views, user.View())
	}
	return views, nil
}

// SetActive toggles a student account. Users hold no sessions, so the change
// takes effect on their next request through ResolvePrincipal.
func (s *UserService) SetActive(ctx context.Context, actor model.Principal, id string, active bool) (model.UserView, error) {
	if !actor.IsAdmin() {
		return model.UserView{}, forbidden("only admins can change user status")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.UserView{}, notFound("user", id)
		}
		return model.UserView{}, fmt.Errorf("find user: %w", err)
	}

	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return model.UserView{}, fmt.Errorf("update user: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(event.New(event.TypeUserStatusChanged, event.StatusSuccess,
			identify(ctx, actor.ID, actor.Email, actor.Role), "user:"+user.ID, map[string]any{"isActive": active}))
	}

	return user.View(), nil
}
