package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"exam-portal/internal/event"
	"exam-portal/internal/mailer"
	"exam-portal/internal/model"
	"exam-portal/pkg/apierror"
)

const (
	minPasswordLength     = 8
	temporaryPasswordSize = 16
	passwordAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%*-_"
)

type InviteMailer interface {
	SendInvite(ctx context.Context, invite mailer.Invite) error
}

// AdminService manages admin accounts. Every admin is created through an
// invitation that emails a generated temporary password.
type AdminService struct {
	admins AdminStore
	auth   *AuthService
	mailer InviteMailer
	bus    event.Bus
}

func NewAdminService(admins AdminStore, auth *AuthService, mail InviteMailer) *AdminService {
	return &AdminService{admins: admins, auth: auth, mailer: mail}
}

func (s *AdminService) SetEventBus(bus event.Bus) {
	s.bus = bus
}

func (s *AdminService) List(ctx context.Context) ([]model.AdminView, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	views := make([]model.AdminView, 0, len(admins))
	for _, admin := range admins {
		views = append(views, admin.View())
	}
	return views, nil
}

func (s *AdminService) Get(ctx context.Context, id string) (model.AdminView, error) {
	admin, err := s.load(ctx, id)
	if err != nil {
		return model.AdminView{}, err
	}
	return admin.View(), nil
}

func (s *AdminService) Invite(ctx context.Context, actor model.Principal, req model.InviteAdminRequest) (model.AdminView, error) {
	if !actor.SuperAdmin() {
		return model.AdminView{}, forbidden("only a super admin can invite admins")
	}

	name := strings.TrimSpace(req.FullName)
	email := model.NormalizeEmail(req.Email)
	if name == "" || email == "" {
		return model.AdminView{}, badRequest("fullName and email are required", "")
	}
	if !strings.Contains(email, "@") {
		return model.AdminView{}, badRequest("invalid email address", email)
	}

	if err := s.auth.ensureEmailAvailable(ctx, email); err != nil {
		return model.AdminView{}, err
	}

	temporary, err := GenerateTemporaryPassword()
	if err != nil {
		return model.AdminView{}, err
	}

	hash, err := s.auth.tokens.HashPassword(temporary)
	if err != nil {
		return model.AdminView{}, err
	}

	now := s.auth.tokens.now()
	creator := actor.ID
	admin := model.Admin{
		ID:           uuid.NewString(),
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedBy:    &creator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, model.ErrDuplicateAccount) {
			return model.AdminView{}, errDuplicateAccount
		}
		return model.AdminView{}, fmt.Errorf("create admin: %w", err)
	}
	if err := s.auth.claimAdminEmail(ctx, admin); err != nil {
		return model.AdminView{}, err
	}

	if s.mailer != nil {
		err := s.mailer.SendInvite(ctx, mailer.Invite{
			To:                admin.Email,
			Name:              admin.FullName,
			TemporaryPassword: temporary,
			InvitedBy:         actor.Name,
		})
		if err != nil {
			slog.Error("invite email failed, rolling back admin", "admin_id", admin.ID, "error", err)
			if delErr := s.admins.Delete(ctx, admin.ID); delErr != nil {
				slog.Error("rollback of invited admin failed", "admin_id", admin.ID, "error", delErr)
			}
			return model.AdminView{}, apierror.Wrap(err, "MAIL_FAILED", "could not deliver the invitation email", http.StatusBadGateway)
		}
	}

	s.publish(ctx, actor, event.TypeAdminInvited, "admin:"+admin.ID, map[string]any{"email": admin.Email})
	return admin.View(), nil
}

// SetActive activates or deactivates an admin. Deactivation revokes every
// session the admin holds.
func (s *AdminService) SetActive(ctx context.Context, actor model.Principal, id string, active bool) (model.AdminView, error) {
	target, err := s.load(ctx, id)
	if err != nil {
		return model.AdminView{}, err
	}

	if err := CanDeactivate(actor, target); err != nil {
		return model.AdminView{}, err
	}

	target.IsActive = active
	target.UpdatedAt = s.auth.tokens.now()
	if err := s.admins.Update(ctx, target); err != nil {
		return model.AdminView{}, fmt.Errorf("update admin: %w", err)
	}

	if !active {
		if _, err := s.auth.LogoutAll(ctx, target.ID); err != nil {
			return model.AdminView{}, err
		}
	}

	s.publish(ctx, actor, event.TypeAdminStatusChanged, "admin:"+target.ID, map[string]any{"isActive": active})
	return target.View(), nil
}

func (s *AdminService) SetSuperAdmin(ctx context.Context, actor model.Principal, id string, superAdmin bool) (model.AdminView, error) {
	target, err := s.load(ctx, id)
	if err != nil {
		return model.AdminView{}, err
	}

	if err := CanToggleSuperAdmin(actor, target); err != nil {
		return model.AdminView{}, err
	}

	target.IsSuperAdmin = superAdmin
	target.UpdatedAt = s.auth.tokens.now()
	if err := s.admins.Update(ctx, target); err != nil {
		return model.AdminView{}, fmt.Errorf("update admin: %w", err)
	}

	s.publish(ctx, actor, event.TypeAdminRoleChanged, "admin:"+target.ID, map[string]any{"isSuperAdmin": superAdmin})
	return target.View(), nil
}

func (s *AdminService) Delete(ctx context.Context, actor model.Principal, id string) error {
	target, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	created, err := s.admins.CountCreatedBy(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("count created admins: %w", err)
	}

	if err := CanDelete(actor, target, created); err != nil {
		return err
	}

	if _, err := s.auth.LogoutAll(ctx, target.ID); err != nil {
		return err
	}

	if err := s.admins.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return notFound("admin", id)
		}
		return fmt.Errorf("delete admin: %w", err)
	}

	s.publish(ctx, actor, event.TypeAdminDeleted, "admin:"+target.ID, map[string]any{"email": target.Email})
	return nil
}

// ChangePassword replaces the caller's password and signs out all of their sessions.
func (s *AdminService) ChangePassword(ctx context.Context, actor model.Principal, current string, next string) error {
	if !actor.IsAdmin() {
		return forbidden("only admins can change an admin password")
	}
	if len(next) < minPasswordLength {
		return badRequest(fmt.Sprintf("new password must be at least %d characters", minPasswordLength), "newPassword")
	}

	admin, err := s.load(ctx, actor.ID)
	if err != nil {
		return err
	}

	if !s.auth.tokens.VerifyPassword(admin.PasswordHash, current) {
		return errInvalidCredentials
	}

	hash, err := s.auth.tokens.HashPassword(next)
	if err != nil {
		return err
	}

	admin.PasswordHash = hash
	admin.UpdatedAt = s.auth.tokens.now()
	if err := s.admins.Update(ctx, admin); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}

	if _, err := s.auth.LogoutAll(ctx, admin.ID); err != nil {
		return err
	}

	s.publish(ctx, actor, event.TypePasswordChanged, "admin:"+admin.ID, nil)
	return nil
}

// EnsureBootstrapSuperAdmin creates the first super admin when the admin
// table is empty. It reports whether an account was created.
func (s *AdminService) EnsureBootstrapSuperAdmin(ctx context.Context, email string, password string, name string) (bool, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := s.auth.tokens.HashPassword(password)
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(name) == "" {
		name = "Super Admin"
	}

	now := s.auth.tokens.now()
	admin := model.Admin{
		ID:           uuid.NewString(),
		FullName:     strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperAdmin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}

	slog.Info("bootstrap super admin created", "email", email)
	return true, nil
}

func (s *AdminService) load(ctx context.Context, id string) (model.Admin, error) {
	admin, err := s.admins.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Admin{}, notFound("admin", id)
		}
		return model.Admin{}, fmt.Errorf("find admin: %w", err)
	}
	return admin, nil
}

func (s *AdminService) publish(ctx context.Context, actor model.Principal, typ event.Type, resource string, details map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(typ, event.StatusSuccess, identify(ctx, actor.ID, actor.Email, actor.Role), resource, details))
}

// GenerateTemporaryPassword returns a random password drawn from an alphabet
// without look-alike characters.
func GenerateTemporaryPassword() (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	buf := make([]byte, temporaryPasswordSize)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate temporary password: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
