package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"exam-portal/internal/event"
	"exam-portal/internal/metrics"
	"exam-portal/internal/model"
)

type AuthService struct {
	tokens   *TokenService
	admins   AdminStore
	users    UserStore
	sessions SessionStore
	throttle LoginThrottle
	bus      event.Bus
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(tokens *TokenService, admins AdminStore, users UserStore, sessions SessionStore) *AuthService {
	return &AuthService{
		tokens:   tokens,
		admins:   admins,
		users:    users,
		sessions: sessions,
		tracer:   otel.Tracer("exam-portal/service/auth"),
	}
}

func (s *AuthService) SetThrottle(throttle LoginThrottle) {
	s.throttle = throttle
}

func (s *AuthService) SetEventBus(bus event.Bus) {
	s.bus = bus
}

func (s *AuthService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// AuthenticateAdmin checks admin credentials, issues an access/refresh pair
// and persists the refresh token as a new session.
func (s *AuthService) AuthenticateAdmin(ctx context.Context, email string, password string) (model.AdminLoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.AuthenticateAdmin")
	defer span.End()

	email = model.NormalizeEmail(email)
	throttleKey := "admin:" + email

	if err := s.checkThrottle(ctx, throttleKey); err != nil {
		s.loginFailed(ctx, model.PrincipalAdmin, email, "throttled")
		return model.AdminLoginResult{}, traced(span, err)
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return model.AdminLoginResult{}, traced(span, fmt.Errorf("find admin: %w", err))
		}
		s.equalizeTiming(password)
		s.registerFailure(ctx, throttleKey)
		s.loginFailed(ctx, model.PrincipalAdmin, email, "invalid_credentials")
		return model.AdminLoginResult{}, traced(span, errInvalidCredentials)
	}

	// Deactivated accounts are rejected whatever the password.
	passwordOK := s.tokens.VerifyPassword(admin.PasswordHash, password)
	if !admin.IsActive {
		s.loginFailed(ctx, model.PrincipalAdmin, email, "deactivated")
		return model.AdminLoginResult{}, traced(span, errAccountDeactivated)
	}

	if !passwordOK {
		s.registerFailure(ctx, throttleKey)
		s.loginFailed(ctx, model.PrincipalAdmin, email, "invalid_credentials")
		return model.AdminLoginResult{}, traced(span, errInvalidCredentials)
	}

	pair, err := s.tokens.IssueTokenPair(model.AdminPayload(admin))
	if err != nil {
		return model.AdminLoginResult{}, traced(span, err)
	}

	now := s.tokens.now()
	session := model.RefreshToken{
		ID:        uuid.NewString(),
		Token:     pair.RefreshToken,
		AdminID:   admin.ID,
		ExpiresAt: s.tokens.ComputeRefreshExpiry(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return model.AdminLoginResult{}, traced(span, fmt.Errorf("persist session: %w", err))
	}

	s.resetThrottle(ctx, throttleKey)
	s.metrics.RecordLogin(string(model.PrincipalAdmin), "success")
	s.publish(ctx, identify(ctx, admin.ID, admin.Email, admin.Role()), event.TypeAdminLogin, event.StatusSuccess, "admin:"+admin.ID, map[string]any{
		"sessionId": session.ID,
	})
	span.SetAttributes(attribute.String("admin.id", admin.ID))

	return model.AdminLoginResult{Admin: admin.View(), Tokens: pair}, nil
}

// AuthenticateUser is the student login. Users get an access token only.
func (s *AuthService) AuthenticateUser(ctx context.Context, email string, password string) (model.UserAuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.AuthenticateUser")
	defer span.End()

	email = model.NormalizeEmail(email)
	throttleKey := "user:" + email

	if err := s.checkThrottle(ctx, throttleKey); err != nil {
		s.loginFailed(ctx, model.PrincipalUser, email, "throttled")
		return model.UserAuthResult{}, traced(span, err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return model.UserAuthResult{}, traced(span, fmt.Errorf("find user: %w", err))
		}
		s.equalizeTiming(password)
		s.registerFailure(ctx, throttleKey)
		s.loginFailed(ctx, model.PrincipalUser, email, "invalid_credentials")
		return model.UserAuthResult{}, traced(span, errInvalidCredentials)
	}

	passwordOK := s.tokens.VerifyPassword(user.PasswordHash, password)
	if !user.IsActive {
		s.loginFailed(ctx, model.PrincipalUser, email, "deactivated")
		return model.UserAuthResult{}, traced(span, errAccountDeactivated)
	}

	if !passwordOK {
		s.registerFailure(ctx, throttleKey)
		s.loginFailed(ctx, model.PrincipalUser, email, "invalid_credentials")
		return model.UserAuthResult{}, traced(span, errInvalidCredentials)
	}

	access, err := s.tokens.IssueAccessToken(model.UserPayload(user))
	if err != nil {
		return model.UserAuthResult{}, traced(span, err)
	}

	s.resetThrottle(ctx, throttleKey)
	s.metrics.RecordLogin(string(model.PrincipalUser), "success")
	s.publish(ctx, identify(ctx, user.ID, user.Email, user.Role), event.TypeUserLogin, event.StatusSuccess, "user:"+user.ID, nil)

	return model.UserAuthResult{
		User:   user.View(),
		Tokens: model.AccessGrant{AccessToken: access, AccessExpiresIn: s.tokens.AccessExpiresIn()},
	}, nil
}

// RegisterUser creates a student account. The email must be free in both the
// user and the admin namespace.
func (s *AuthService) RegisterUser(ctx context.Context, name string, email string, password string) (model.UserAuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.RegisterUser")
	defer span.End()

	name = strings.TrimSpace(name)
	email = model.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return model.UserAuthResult{}, badRequest("name, email and password are required", "")
	}
	if !strings.Contains(email, "@") {
		return model.UserAuthResult{}, badRequest("invalid email address", email)
	}

	if err := s.ensureEmailAvailable(ctx, email); err != nil {
		return model.UserAuthResult{}, traced(span, err)
	}

	hash, err := s.tokens.HashPassword(password)
	if err != nil {
		return model.UserAuthResult{}, traced(span, err)
	}

	now := s.tokens.now()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicateAccount) {
			return model.UserAuthResult{}, traced(span, errDuplicateAccount)
		}
		return model.UserAuthResult{}, traced(span, fmt.Errorf("create user: %w", err))
	}
	if err := s.claimUserEmail(ctx, user); err != nil {
		return model.UserAuthResult{}, traced(span, err)
	}

	access, err := s.tokens.IssueAccessToken(model.UserPayload(user))
	if err != nil {
		return model.UserAuthResult{}, traced(span, err)
	}

	s.publish(ctx, identify(ctx, user.ID, user.Email, user.Role), event.TypeUserRegistered, event.StatusSuccess, "user:"+user.ID, nil)

	return model.UserAuthResult{
		User:   user.View(),
		Tokens: model.AccessGrant{AccessToken: access, AccessExpiresIn: s.tokens.AccessExpiresIn()},
	}, nil
}

// RefreshAccessToken issues a new access token for a live admin session.
// The refresh token itself is not rotated.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (model.AccessGrant, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.RefreshAccessToken")
	defer span.End()

	grant, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordRefresh(outcomeOf(err))
		return model.AccessGrant{}, traced(span, err)
	}

	s.metrics.RecordRefresh("success")
	return grant, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (model.AccessGrant, error) {
	payload, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return model.AccessGrant{}, err
	}

	session, err := s.sessions.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return model.AccessGrant{}, errInvalidToken
		}
		return model.AccessGrant{}, fmt.Errorf("find session: %w", err)
	}

	if session.AdminID != payload.SubjectID {
		return model.AccessGrant{}, errInvalidToken
	}

	// Deactivation revokes every session, so a revoked token of an inactive
	// admin reports the deactivation rather than the revocation.
	admin, err := s.activeSessionOwner(ctx, session.AdminID)
	if session.IsRevoked {
		if errors.Is(err, model.ErrAccountDeactivated) {
			return model.AccessGrant{}, err
		}
		return model.AccessGrant{}, errTokenRevoked
	}
	if session.Expired(s.tokens.now()) {
		return model.AccessGrant{}, errTokenExpired
	}
	if err != nil {
		return model.AccessGrant{}, err
	}

	access, err := s.tokens.IssueAccessToken(model.AdminPayload(admin))
	if err != nil {
		return model.AccessGrant{}, err
	}

	s.publish(ctx, identify(ctx, admin.ID, admin.Email, admin.Role()), event.TypeSessionRefreshed, event.StatusSuccess, "session:"+session.ID, nil)

	return model.AccessGrant{AccessToken: access, AccessExpiresIn: s.tokens.AccessExpiresIn()}, nil
}

func (s *AuthService) activeSessionOwner(ctx context.Context, adminID string) (model.Admin, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Admin{}, errAccountDeactivated
		}
		return model.Admin{}, fmt.Errorf("find admin: %w", err)
	}
	if !admin.IsActive {
		return model.Admin{}, errAccountDeactivated
	}
	return admin, nil
}

// Logout revokes the session holding refreshToken. Unknown or already revoked
// tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	revoked, err := s.sessions.Revoke(ctx, refreshToken)
	if err != nil {
		return traced(span, fmt.Errorf("revoke session: %w", err))
	}

	if revoked {
		s.metrics.RecordSessionsRevoked("logout", 1)
		s.publish(ctx, event.ActorFromContext(ctx), event.TypeSessionRevoked, event.StatusSuccess, "session", map[string]any{"reason": "logout"})
	}

	return nil
}

// LogoutAll revokes every live session of an admin and returns how many were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, adminID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.LogoutAll", trace.WithAttributes(attribute.String("admin.id", adminID)))
	defer span.End()

	n, err := s.sessions.RevokeAllForAdmin(ctx, adminID)
	if err != nil {
		return 0, traced(span, fmt.Errorf("revoke sessions: %w", err))
	}

	s.metrics.RecordSessionsRevoked("logout_all", n)
	s.publish(ctx, event.ActorFromContext(ctx), event.TypeSessionsRevoked, event.StatusSuccess, "admin:"+adminID, map[string]any{"count": n})

	return n, nil
}

// ResolvePrincipal verifies an access token and reloads the account it names,
// so deactivation and role changes apply to already issued tokens.
func (s *AuthService) ResolvePrincipal(ctx context.Context, accessToken string) (model.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResolvePrincipal")
	defer span.End()

	payload, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return model.Principal{}, traced(span, err)
	}

	switch payload.Kind {
	case model.PrincipalAdmin:
		admin, err := s.admins.FindByID(ctx, payload.SubjectID)
		if err != nil {
			return model.Principal{}, traced(span, lookupFailure(err))
		}
		if !admin.IsActive {
			return model.Principal{}, traced(span, errAccountDeactivated)
		}
		return admin.Principal(), nil
	case model.PrincipalUser:
		user, err := s.users.FindByID(ctx, payload.SubjectID)
		if err != nil {
			return model.Principal{}, traced(span, lookupFailure(err))
		}
		if !user.IsActive {
			return model.Principal{}, traced(span, errAccountDeactivated)
		}
		return user.Principal(), nil
	default:
		return model.Principal{}, traced(span, errInvalidToken)
	}
}

func (s *AuthService) ListSessions(ctx context.Context, adminID string) ([]model.RefreshToken, error) {
	sessions, err := s.sessions.ListActiveForAdmin(ctx, adminID, s.tokens.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession revokes one session owned by adminID.
func (s *AuthService) RevokeSession(ctx context.Context, adminID string, sessionID string) error {
	if err := s.sessions.RevokeByID(ctx, adminID, sessionID); err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return notFound("session", sessionID)
		}
		return fmt.Errorf("revoke session: %w", err)
	}

	s.metrics.RecordSessionsRevoked("revoke", 1)
	s.publish(ctx, event.ActorFromContext(ctx), event.TypeSessionRevoked, event.StatusSuccess, "session:"+sessionID, map[string]any{"reason": "revoke"})
	return nil
}

// admins and users carry separate unique indexes, so a register racing an
// invite for the same address can pass ensureEmailAvailable on both sides.
// Each side re-checks the other table after its insert and backs out on a
// clash; at least one of them sees the other's row.
func (s *AuthService) claimUserEmail(ctx context.Context, user model.User) error {
	_, err := s.admins.FindByEmail(ctx, user.Email)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err == nil {
		err = errDuplicateAccount
	} else {
		err = fmt.Errorf("check admin email: %w", err)
	}

	if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
		slog.Error("failed to roll back user after email clash", "user_id", user.ID, "error", delErr)
	}
	return err
}

func (s *AuthService) claimAdminEmail(ctx context.Context, admin model.Admin) error {
	_, err := s.users.FindByEmail(ctx, admin.Email)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err == nil {
		err = errDuplicateAccount
	} else {
		err = fmt.Errorf("check user email: %w", err)
	}

	if delErr := s.admins.Delete(ctx, admin.ID); delErr != nil {
		slog.Error("failed to roll back admin after email clash", "admin_id", admin.ID, "error", delErr)
	}
	return err
}

func (s *AuthService) ensureEmailAvailable(ctx context.Context, email string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return errDuplicateAccount
	} else if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("check user email: %w", err)
	}

	if _, err := s.admins.FindByEmail(ctx, email); err == nil {
		return errDuplicateAccount
	} else if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("check admin email: %w", err)
	}

	return nil
}

func (s *AuthService) checkThrottle(ctx context.Context, key string) error {
	if s.throttle == nil {
		return nil
	}

	locked, err := s.throttle.Locked(ctx, key)
	if err != nil {
		slog.Warn("login throttle unavailable", "error", err)
		return nil
	}
	if locked {
		return errTooManyAttempts
	}
	return nil
}

func (s *AuthService) registerFailure(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	locked, err := s.throttle.RegisterFailure(ctx, key)
	if err != nil {
		slog.Warn("login throttle unavailable", "error", err)
		return
	}
	if locked {
		slog.Warn("login locked after repeated failures", "key", key)
	}
}

func (s *AuthService) resetThrottle(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, key); err != nil {
		slog.Warn("login throttle unavailable", "error", err)
	}
}

// equalizeTiming burns one hash comparison so unknown emails cost the same as wrong passwords.
func (s *AuthService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.tokens.HashPassword(uuid.NewString())
		if err != nil {
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.tokens.VerifyPassword(s.dummyHash, password)
	}
}

func (s *AuthService) loginFailed(ctx context.Context, kind model.PrincipalKind, email string, reason string) {
	s.metrics.RecordLogin(string(kind), reason)

	typ := event.TypeAdminLoginFailed
	if kind == model.PrincipalUser {
		typ = event.TypeUserLoginFailed
	}

	actor := event.ActorFromContext(ctx)
	actor.Email = email
	s.publish(ctx, actor, typ, event.StatusFailure, string(kind), map[string]any{"reason": reason})
}

func (s *AuthService) publish(_ context.Context, actor model.AuditActor, typ event.Type, status string, resource string, details map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(typ, status, actor, resource, details))
}

func identify(ctx context.Context, id string, email string, role model.Role) model.AuditActor {
	actor := event.ActorFromContext(ctx)
	actor.ID = id
	actor.Email = email
	actor.Role = role
	return actor
}

func lookupFailure(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return errAccountGone
	}
	return fmt.Errorf("load principal: %w", err)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, model.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, model.ErrTokenExpired):
		return "expired"
	case errors.Is(err, model.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, model.ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}

func traced(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
