package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"exam-portal/internal/config"
	"exam-portal/internal/database"
	"exam-portal/internal/event"
	"exam-portal/internal/handler"
	"exam-portal/internal/mailer"
	"exam-portal/internal/metrics"
	"exam-portal/internal/middleware"
	"exam-portal/internal/repository"
	"exam-portal/internal/repository/memstore"
	"exam-portal/internal/router"
	"exam-portal/internal/service"
	"exam-portal/internal/throttle"
	"exam-portal/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived component: the HTTP server, the session
// cleanup scheduler, the audit consumer and the connections they use.
type App struct {
	server  *http.Server
	cleaner *service.SessionCleaner
	audit   *service.AuditService
	hub     *websocket.Hub

	cleanupFuncs []func()
}

type stores struct {
	admins   service.AdminStore
	users    service.UserStore
	sessions service.SessionStore
	audit    service.AuditStore
	health   interface{ Health(context.Context) error }
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	bus := event.NewBus()

	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
	}, service.NewBcryptHasher(service.DefaultBcryptCost))

	authService := service.NewAuthService(tokens, st.admins, st.users, st.sessions)
	authService.SetEventBus(bus)
	authService.SetMetrics(m)
	authService.SetThrottle(a.openThrottle(ctx, cfg))

	adminService := service.NewAdminService(st.admins, authService, mailer.New(mailer.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromName:  cfg.SMTPFromName,
		PortalURL: cfg.PortalURL,
	}))
	adminService.SetEventBus(bus)

	userService := service.NewUserService(st.users)
	userService.SetEventBus(bus)

	a.audit = service.NewAuditService(st.audit, bus)
	a.hub = websocket.NewHub(bus, cfg.CORSOrigins)

	a.cleaner = service.NewSessionCleaner(st.sessions, cfg.SessionCleanupSchedule)
	a.cleaner.SetMetrics(m)
	a.cleaner.SetEventBus(bus)

	created, err := adminService.EnsureBootstrapSuperAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, cfg.BootstrapAdminName)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to bootstrap super admin: %w", err)
	}
	if created {
		slog.Info("bootstrap super admin created", "email", cfg.BootstrapAdminEmail)
	}

	cookies := handler.CookieConfig{
		Domain:       cfg.CookieDomain,
		Secure:       cfg.CookieSecure,
		AccessTTL:    service.ParseTTL(cfg.AccessTokenTTL, 15*time.Minute),
		RefreshTTL:   service.ParseTTL(cfg.RefreshTokenTTL, 7*24*time.Hour),
		ExposeTokens: !cfg.IsProduction(),
	}

	appRouter := router.New(cfg, m, middleware.NewAuthMiddleware(authService), router.Handlers{
		Health:    handler.NewHealthHandler(st.health, a.cleaner),
		AdminAuth: handler.NewAdminAuthHandler(authService, adminService, cookies),
		Auth:      handler.NewAuthHandler(authService, cookies),
		Admins:    handler.NewAdminHandler(adminService),
		Users:     handler.NewUserHandler(userService),
		Audit:     handler.NewAuditHandler(a.audit),
		Docs:      handler.NewDocsHandler(),

		AuditStream: a.hub,
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		mem := memstore.New()
		return stores{admins: mem.Admins, users: mem.Users, sessions: mem.Sessions, audit: mem.Audit}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ConnectAttempts: 5,
	})
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		return stores{}, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	slog.Info("database ready")
	return stores{
		admins:   repository.NewAdminRepository(pool),
		users:    repository.NewUserRepository(pool),
		sessions: repository.NewTokenRepository(pool),
		audit:    repository.NewAuditRepository(pool),
		health:   db,
	}, nil
}

// openThrottle returns a Redis-backed login throttle, or a no-op one when
// REDIS_URL is unset. An unreachable Redis is tolerated; the throttle fails open.
func (a *App) openThrottle(ctx context.Context, cfg *config.Config) service.LoginThrottle {
	if cfg.RedisURL == "" {
		return throttle.Noop{}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL; login throttling disabled", "error", err)
		return throttle.Noop{}
	}

	client := redis.NewClient(opts)
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable; login throttle will fail open until it recovers", "error", err)
	}

	return throttle.NewLoginThrottle(client, cfg.LoginMaxAttempts, cfg.LoginLockout)
}

// Run serves until SIGINT/SIGTERM or a fatal server error, then shuts down
// the server, closes audit streams, stops the scheduler, drains the audit
// consumer and closes connections.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	if err := a.cleaner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session cleanup: %w", err)
	}

	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		a.audit.Run(auditCtx)
	}()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := a.server.Shutdown(shutdownCtx)
		stopHub()
		a.cleaner.Stop()
		stopAudit()
		<-auditDone

		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) close() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
