package middleware

import (
	"net"
	"net/http"
	"strings"

	"exam-portal/internal/event"
	"exam-portal/internal/model"
)

// Actor stamps every request context with the caller's IP so services can
// attribute audit events raised before authentication, such as failed logins.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := event.WithActor(r.Context(), model.AuditActor{IP: ClientIP(r)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP prefers proxy headers and falls back to the connection address.
func ClientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}
