package model

import "time"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPayload is the claim set carried inside every signed token.
type TokenPayload struct {
	Kind         PrincipalKind `json:"kind"`
	SubjectID    string        `json:"sub"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"name"`
	Role         Role          `json:"role"`
	Type         TokenType     `json:"typ"`
	IsActive     bool          `json:"active"`
	IsSuperAdmin bool          `json:"superAdmin,omitempty"`
}

func AdminPayload(a Admin) TokenPayload {
	return TokenPayload{
		Kind:         PrincipalAdmin,
		SubjectID:    a.ID,
		Email:        a.Email,
		DisplayName:  a.FullName,
		Role:         a.Role(),
		IsActive:     a.IsActive,
		IsSuperAdmin: a.IsSuperAdmin,
	}
}

func UserPayload(u User) TokenPayload {
	return TokenPayload{
		Kind:        PrincipalUser,
		SubjectID:   u.ID,
		Email:       u.Email,
		DisplayName: u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
	}
}

type TokenPair struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	AccessExpiresIn  string `json:"accessExpiresIn"`
	RefreshExpiresIn string `json:"refreshExpiresIn"`
}

// AccessGrant is the access-only credential issued to users and on refresh.
type AccessGrant struct {
	AccessToken     string `json:"accessToken"`
	AccessExpiresIn string `json:"accessExpiresIn"`
}

// RefreshToken is one admin session.
type RefreshToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	AdminID   string    `json:"adminId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `json:"isRevoked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type AdminLoginResult struct {
	Admin  AdminView `json:"admin"`
	Tokens TokenPair `json:"tokens"`
}

type UserAuthResult struct {
	User   UserView    `json:"user"`
	Tokens AccessGrant `json:"tokens"`
}
