package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type InviteAdminRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

type UpdateSuperAdminRequest struct {
	IsSuperAdmin *bool `json:"isSuperAdmin"`
}
