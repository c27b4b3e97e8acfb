package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"exam-portal/internal/event"
	"exam-portal/internal/metrics"
	"exam-portal/internal/model"
)

const DefaultCleanupSchedule = "@every 24h"

type CleanerStatus struct {
	IsRunning   bool       `json:"isRunning"`
	Schedule    string     `json:"schedule"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastDeleted int64      `json:"lastDeleted"`
}

// SessionCleaner periodically deletes refresh tokens whose expiry has passed.
type SessionCleaner struct {
	sessions SessionStore
	schedule string
	now      func() time.Time
	metrics  *metrics.Metrics
	bus      event.Bus

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool

	statsMu     sync.RWMutex
	lastRunAt   time.Time
	lastDeleted int64
}

func NewSessionCleaner(sessions SessionStore, schedule string) *SessionCleaner {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	return &SessionCleaner{
		sessions: sessions,
		schedule: schedule,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *SessionCleaner) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

func (c *SessionCleaner) SetEventBus(bus event.Bus) {
	c.bus = bus
}

// Start sweeps once right away and then on the configured schedule.
// Calling Start on a running cleaner does nothing.
func (c *SessionCleaner) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := scheduler.AddFunc(c.schedule, func() { c.Sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule session cleanup %q: %w", c.schedule, err)
	}

	c.Sweep(runCtx)
	scheduler.Start()

	c.cron = scheduler
	c.cancel = cancel
	c.running = true

	slog.Info("session cleanup scheduler started", "schedule", c.schedule)
	return nil
}

// Stop cancels the schedule and waits for an in-flight sweep. Safe when not running.
func (c *SessionCleaner) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.cancel()
	<-c.cron.Stop().Done()

	c.cron = nil
	c.cancel = nil
	c.running = false

	slog.Info("session cleanup scheduler stopped")
}

func (c *SessionCleaner) Status() CleanerStatus {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	status := CleanerStatus{
		IsRunning:   running,
		Schedule:    c.schedule,
		LastDeleted: c.lastDeleted,
	}
	if !c.lastRunAt.IsZero() {
		at := c.lastRunAt
		status.LastRunAt = &at
	}
	return status
}

// Sweep deletes expired sessions once. Store errors are logged, never returned.
func (c *SessionCleaner) Sweep(ctx context.Context) int64 {
	now := c.now()
	deleted, err := c.sessions.DeleteExpired(ctx, now)
	c.metrics.RecordSweep(deleted, err)

	c.statsMu.Lock()
	c.lastRunAt = now
	if err == nil {
		c.lastDeleted = deleted
	}
	c.statsMu.Unlock()

	if err != nil {
		slog.Error("session cleanup failed", "error", err)
		return 0
	}

	if deleted > 0 {
		slog.Info("expired sessions deleted", "count", deleted)
		if c.bus != nil {
			c.bus.Publish(event.New(event.TypeSessionsSwept, event.StatusSuccess,
				model.AuditActor{ID: "system"}, "refresh_tokens", map[string]any{"count": deleted}))
		}
	}

	return deleted
}
