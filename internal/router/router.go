package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"exam-portal/internal/config"
	"exam-portal/internal/handler"
	"exam-portal/internal/metrics"
	"exam-portal/internal/middleware"
	"exam-portal/internal/websocket"
)

type Handlers struct {
	Health    *handler.HealthHandler
	AdminAuth *handler.AdminAuthHandler
	Auth      *handler.AuthHandler
	Admins    *handler.AdminHandler
	Users     *handler.UserHandler
	Audit     *handler.AuditHandler
	Docs      *handler.DocsHandler

	AuditStream *websocket.Hub
}

func New(cfg *config.Config, m *metrics.Metrics, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	principal := middleware.WithPrincipal

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.Actor)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/docs", h.Docs.SwaggerUI)
	r.With(authMiddleware.RequireSuperAdmin).Get("/ws/audit", h.AuditStream.ServeHTTP)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(rateLimitMiddleware.Handler)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/admin/auth", func(auth chi.Router) {
			auth.Post("/login", h.AdminAuth.Login)
			auth.Post("/refresh", h.AdminAuth.Refresh)
			auth.Post("/logout", h.AdminAuth.Logout)

			auth.Group(func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAdmin)
				admin.Post("/logout-all", principal(h.AdminAuth.LogoutAll))
				admin.Get("/me", principal(h.AdminAuth.Me))
				admin.Put("/password", principal(h.AdminAuth.ChangePassword))
				admin.Get("/sessions", principal(h.AdminAuth.Sessions))
				admin.Delete("/sessions/{id}", principal(h.AdminAuth.RevokeSession))
			})
		})

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireUser).Get("/me", principal(h.Auth.Me))
			auth.With(authMiddleware.Optional).Get("/session", h.Auth.Session)
		})

		api.Route("/admins", func(admins chi.Router) {
			admins.Use(authMiddleware.RequireAdmin)
			admins.Get("/", h.Admins.List)
			admins.Get("/{id}", h.Admins.Get)
			admins.With(authMiddleware.RequireSuperAdmin).Post("/invite", principal(h.Admins.Invite))
			admins.Patch("/{id}/status", principal(h.Admins.UpdateStatus))
			admins.With(authMiddleware.RequireSuperAdmin).Patch("/{id}/super-admin", principal(h.Admins.UpdateSuperAdmin))
			admins.Delete("/{id}", principal(h.Admins.Delete))
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAdmin)
			users.Get("/", h.Users.List)
			users.Patch("/{id}/status", principal(h.Users.UpdateStatus))
		})

		api.With(authMiddleware.RequireSuperAdmin).Get("/audit", h.Audit.List)
	})

	return otelhttp.NewHandler(r, "exam-portal",
		otelhttp.WithFilter(func(req *http.Request) bool { return req.URL.Path != "/health" && req.URL.Path != "/metrics" }),
	)
}
