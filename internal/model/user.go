package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// PrincipalKind tags which account table a token subject lives in.
type PrincipalKind string

const (
	PrincipalAdmin PrincipalKind = "admin"
	PrincipalUser  PrincipalKind = "user"
)

type Admin struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	CreatedBy    *string   `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Role derives the authorization tier from the super-admin flag.
func (a Admin) Role() Role {
	if a.IsSuperAdmin {
		return RoleSuperAdmin
	}
	return RoleAdmin
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AdminView is the sanitized admin returned to clients.
type AdminView struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	CreatedBy    *string   `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a Admin) View() AdminView {
	return AdminView{
		ID:           a.ID,
		FullName:     a.FullName,
		Email:        a.Email,
		Role:         a.Role(),
		IsActive:     a.IsActive,
		IsSuperAdmin: a.IsSuperAdmin,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) View() UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Principal is the resolved caller attached to an authenticated request.
type Principal struct {
	Type         PrincipalKind `json:"type"`
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Role         Role          `json:"role"`
	IsActive     bool          `json:"isActive"`
	IsSuperAdmin *bool         `json:"isSuperAdmin,omitempty"`
}

func (p Principal) IsAdmin() bool {
	return p.Type == PrincipalAdmin
}

func (p Principal) SuperAdmin() bool {
	return p.IsSuperAdmin != nil && *p.IsSuperAdmin
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a Admin) Principal() Principal {
	superAdmin := a.IsSuperAdmin
	return Principal{
		Type:         PrincipalAdmin,
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.FullName,
		Role:         a.Role(),
		IsActive:     a.IsActive,
		IsSuperAdmin: &superAdmin,
	}
}

func (u User) Principal() Principal {
	return Principal{
		Type:     PrincipalUser,
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}
