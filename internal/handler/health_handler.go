package handler

import (
	"context"
	"net/http"
	"time"

	"exam-portal/internal/service"
)

type pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db      pinger
	cleaner *service.SessionCleaner
}

// NewHealthHandler accepts a nil db when running on the in-memory store.
func NewHealthHandler(db pinger, cleaner *service.SessionCleaner) *HealthHandler {
	return &HealthHandler{db: db, cleaner: cleaner}
}

type healthReport struct {
	Status         string                `json:"status"`
	Database       string                `json:"database"`
	SessionCleanup service.CleanerStatus `json:"sessionCleanup"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok", Database: "not configured"}
	if h.cleaner != nil {
		report.SessionCleanup = h.cleaner.Status()
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report.Database = "up"
		if err := h.db.Health(ctx); err != nil {
			report.Status = "degraded"
			report.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	writeSuccess(w, status, report, nil)
}
