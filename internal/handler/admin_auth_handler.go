package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"exam-portal/internal/model"
	"exam-portal/internal/service"
)

// AdminAuthHandler serves /api/v1/admin/auth. Admins get a refresh cookie
// scoped to this path and an access cookie for the whole API.
type AdminAuthHandler struct {
	auth    *service.AuthService
	admins  *service.AdminService
	cookies CookieConfig
}

func NewAdminAuthHandler(auth *service.AuthService, admins *service.AdminService, cookies CookieConfig) *AdminAuthHandler {
	return &AdminAuthHandler{auth: auth, admins: admins, cookies: cookies}
}

type adminLoginResponse struct {
	Admin  model.AdminView  `json:"admin"`
	Tokens *model.TokenPair `json:"tokens,omitempty"`
}

type refreshResponse struct {
	AccessToken     string `json:"accessToken,omitempty"`
	AccessExpiresIn string `json:"accessExpiresIn"`
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.AuthenticateAdmin(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setAccess(w, result.Tokens.AccessToken)
	h.cookies.setRefresh(w, result.Tokens.RefreshToken)

	resp := adminLoginResponse{Admin: result.Admin}
	if h.cookies.includeTokens(r) {
		resp.Tokens = &result.Tokens
	}
	writeMessage(w, http.StatusOK, "login successful", resp)
}

func (h *AdminAuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(w, r)
	if token == "" {
		writeError(w, errMissingRefreshToken)
		return
	}

	grant, err := h.auth.RefreshAccessToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setAccess(w, grant.AccessToken)

	resp := refreshResponse{AccessExpiresIn: grant.AccessExpiresIn}
	if h.cookies.includeTokens(r) {
		resp.AccessToken = grant.AccessToken
	}
	writeMessage(w, http.StatusOK, "token refreshed", resp)
}

// Logout always clears the cookies, even when revocation fails.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(w, r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		slog.Warn("logout revocation failed", "error", err)
	}

	h.cookies.clearAll(w)
	writeMessage(w, http.StatusOK, "logged out", nil)
}

func (h *AdminAuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	revoked, err := h.auth.LogoutAll(r.Context(), principal.ID)
	h.cookies.clearAll(w)
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "all sessions revoked", map[string]int64{"revoked": revoked})
}

func (h *AdminAuthHandler) Me(w http.ResponseWriter, _ *http.Request, principal model.Principal) {
	writeSuccess(w, http.StatusOK, principal, nil)
}

func (h *AdminAuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	var payload model.ChangePasswordRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	if err := h.admins.ChangePassword(r.Context(), principal, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	h.cookies.clearAll(w)
	writeMessage(w, http.StatusOK, "password changed; sign in again", nil)
}

func (h *AdminAuthHandler) Sessions(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	sessions, err := h.auth.ListSessions(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.SessionList{Sessions: sessions}, nil)
}

func (h *AdminAuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	if err := h.auth.RevokeSession(r.Context(), principal.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "session revoked", nil)
}

// refreshTokenFrom prefers the cookie and falls back to a JSON body.
func (h *AdminAuthHandler) refreshTokenFrom(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}

	var payload model.RefreshRequest
	if err := decodeJSON(w, r, &payload, true); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.RefreshToken)
}
