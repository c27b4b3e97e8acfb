package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"exam-portal/internal/model"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     string
	RefreshTTL    string
	Issuer        string
	Audience      string
}

// TokenService signs and verifies access and refresh JWTs and owns password hashing.
type TokenService struct {
	cfg    TokenConfig
	hasher PasswordHasher
	now    func() time.Time
}

type tokenClaims struct {
	Kind         model.PrincipalKind `json:"kind"`
	Email        string              `json:"email"`
	Name         string              `json:"name"`
	Role         model.Role          `json:"role"`
	Type         model.TokenType     `json:"typ"`
	IsActive     bool                `json:"active"`
	IsSuperAdmin bool                `json:"superAdmin,omitempty"`
	jwt.RegisteredClaims
}

func NewTokenService(cfg TokenConfig, hasher PasswordHasher) *TokenService {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if ParseTTL(cfg.AccessTTL, 0) == 0 {
		cfg.AccessTTL = "15m"
	}
	if ParseTTL(cfg.RefreshTTL, 0) == 0 {
		cfg.RefreshTTL = "7d"
	}

	return &TokenService{
		cfg:    cfg,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TokenService) AccessExpiresIn() string {
	return s.cfg.AccessTTL
}

func (s *TokenService) RefreshExpiresIn() string {
	return s.cfg.RefreshTTL
}

func (s *TokenService) IssueAccessToken(payload model.TokenPayload) (string, error) {
	if s.cfg.AccessSecret == "" {
		return "", errConfiguration
	}

	ttl := ParseTTL(s.cfg.AccessTTL, defaultAccessTTL)
	return s.sign(payload, model.TokenTypeAccess, ttl, s.cfg.AccessSecret)
}

func (s *TokenService) IssueRefreshToken(payload model.TokenPayload) (string, error) {
	if s.cfg.RefreshSecret == "" {
		return "", errConfiguration
	}
	if payload.Kind != model.PrincipalAdmin {
		return "", fmt.Errorf("refresh tokens are only issued to admins, got %q", payload.Kind)
	}

	ttl := ParseTTL(s.cfg.RefreshTTL, defaultRefreshTTL)
	return s.sign(payload, model.TokenTypeRefresh, ttl, s.cfg.RefreshSecret)
}

func (s *TokenService) IssueTokenPair(payload model.TokenPayload) (model.TokenPair, error) {
	access, err := s.IssueAccessToken(payload)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, err := s.IssueRefreshToken(payload)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  s.cfg.AccessTTL,
		RefreshExpiresIn: s.cfg.RefreshTTL,
	}, nil
}

func (s *TokenService) VerifyAccessToken(token string) (model.TokenPayload, error) {
	if s.cfg.AccessSecret == "" {
		return model.TokenPayload{}, errConfiguration
	}
	return s.verify(token, model.TokenTypeAccess, s.cfg.AccessSecret)
}

func (s *TokenService) VerifyRefreshToken(token string) (model.TokenPayload, error) {
	if s.cfg.RefreshSecret == "" {
		return model.TokenPayload{}, errConfiguration
	}
	return s.verify(token, model.TokenTypeRefresh, s.cfg.RefreshSecret)
}

// ComputeRefreshExpiry returns the absolute expiry for a refresh token issued now.
func (s *TokenService) ComputeRefreshExpiry() time.Time {
	return s.now().Add(ParseTTL(s.cfg.RefreshTTL, defaultRefreshTTL))
}

func (s *TokenService) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

func (s *TokenService) VerifyPassword(hash string, password string) bool {
	return s.hasher.Compare(hash, password)
}

func (s *TokenService) sign(payload model.TokenPayload, typ model.TokenType, ttl time.Duration, secret string) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Kind:         payload.Kind,
		Email:        payload.Email,
		Name:         payload.DisplayName,
		Role:         payload.Role,
		Type:         typ,
		IsActive:     payload.IsActive,
		IsSuperAdmin: payload.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   payload.SubjectID,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *TokenService) verify(raw string, expected model.TokenType, secret string) (model.TokenPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.TokenPayload{}, errInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.TokenPayload{}, errTokenExpired
		}
		return model.TokenPayload{}, errInvalidToken
	}

	if claims.Type != expected || claims.Subject == "" {
		return model.TokenPayload{}, errInvalidToken
	}

	switch claims.Kind {
	case model.PrincipalAdmin, model.PrincipalUser:
	default:
		return model.TokenPayload{}, errInvalidToken
	}

	return model.TokenPayload{
		Kind:         claims.Kind,
		SubjectID:    claims.Subject,
		Email:        claims.Email,
		DisplayName:  claims.Name,
		Role:         claims.Role,
		Type:         claims.Type,
		IsActive:     claims.IsActive,
		IsSuperAdmin: claims.IsSuperAdmin,
	}, nil
}

// ParseTTL reads durations such as "15m", "12h" or "7d". Anything else yields fallback.
func ParseTTL(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if len(raw) < 2 {
		return fallback
	}

	n, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || n <= 0 {
		return fallback
	}

	switch raw[len(raw)-1] {
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'h':
		return time.Duration(n) * time.Hour
	case 'm':
		return time.Duration(n) * time.Minute
	default:
		return fallback
	}
}
