package handler

import (
	"net/http"
	"time"

	"exam-portal/internal/middleware"
)

const (
	refreshTokenCookie = "refreshToken"
	// RefreshCookiePath limits the refresh cookie to the admin auth routes.
	RefreshCookiePath = "/api/v1/admin/auth"
)

// CookieConfig shapes the HttpOnly auth cookies.
type CookieConfig struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// ExposeTokens echoes tokens in response bodies. Clients may also opt in
	// per request with ?includeTokens=true.
	ExposeTokens bool
}

func (c CookieConfig) cookie(name string, value string, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, token, "/", c.AccessTTL))
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(refreshTokenCookie, token, RefreshCookiePath, c.RefreshTTL))
}

func (c CookieConfig) clear(w http.ResponseWriter, name string, path string) {
	cookie := c.cookie(name, "", path, 0)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (c CookieConfig) clearAll(w http.ResponseWriter) {
	c.clear(w, middleware.AccessTokenCookie, "/")
	c.clear(w, refreshTokenCookie, RefreshCookiePath)
}

func (c CookieConfig) includeTokens(r *http.Request) bool {
	return c.ExposeTokens || r.URL.Query().Get("includeTokens") == "true"
}
