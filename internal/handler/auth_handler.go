package handler

import (
	"net/http"

	"exam-portal/internal/middleware"
	"exam-portal/internal/model"
	"exam-portal/internal/service"
)

// AuthHandler serves student authentication under /api/v1/auth. Students
// hold an access token only.
type AuthHandler struct {
	auth    *service.AuthService
	cookies CookieConfig
}

func NewAuthHandler(auth *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

type userAuthResponse struct {
	User   model.UserView     `json:"user"`
	Tokens *model.AccessGrant `json:"tokens,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.RegisterUser(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, r, http.StatusCreated, "registration successful", result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, r, http.StatusOK, "login successful", result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.cookies.clear(w, middleware.AccessTokenCookie, "/")
	writeMessage(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, _ *http.Request, principal model.Principal) {
	writeSuccess(w, http.StatusOK, principal, nil)
}

// Session reports who the caller is without requiring authentication.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	status := model.SessionStatus{}
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		status.Authenticated = true
		status.Principal = &principal
	}

	writeSuccess(w, http.StatusOK, status, nil)
}

func (h *AuthHandler) respond(w http.ResponseWriter, r *http.Request, status int, message string, result model.UserAuthResult) {
	h.cookies.setAccess(w, result.Tokens.AccessToken)

	resp := userAuthResponse{User: result.User}
	if h.cookies.includeTokens(r) {
		resp.Tokens = &result.Tokens
	}
	writeMessage(w, status, message, resp)
}
