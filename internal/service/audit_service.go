package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"exam-portal/internal/event"
	"exam-portal/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditService persists auth events from the bus and serves audit queries.
type AuditService struct {
	store AuditStore
	bus   event.Bus
}

func NewAuditService(store AuditStore, bus event.Bus) *AuditService {
	return &AuditService{store: store, bus: bus}
}

// Run consumes events until ctx is cancelled, then drains what is already buffered.
func (s *AuditService) Run(ctx context.Context) {
	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			s.drain(events)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.record(context.WithoutCancel(ctx), e)
		}
	}
}

func (s *AuditService) drain(events <-chan event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			s.record(ctx, e)
		default:
			return
		}
	}
}

func (s *AuditService) record(ctx context.Context, e event.Event) {
	entry := model.AuditEntry{
		ID:         e.ID,
		Action:     string(e.Type),
		OccurredAt: e.Timestamp,
		Actor:      e.Actor,
		Status:     e.Status,
		Resource:   e.Resource,
		Details:    e.Details,
	}

	if err := s.store.Log(ctx, entry); err != nil {
		slog.Error("failed to persist audit entry", "action", entry.Action, "error", err)
	}
}

// QueryParams is the raw filter set taken from the request query string.
type QueryParams struct {
	Action   string
	ActorID  string
	Status   string
	Resource string
	From     string
	To       string
	Page     int
	Limit    int
}

func (s *AuditService) Query(ctx context.Context, params QueryParams) ([]model.AuditEntry, model.Meta, error) {
	query := model.AuditQuery{
		Action:   strings.TrimSpace(params.Action),
		ActorID:  strings.TrimSpace(params.ActorID),
		Status:   strings.TrimSpace(params.Status),
		Resource: strings.TrimSpace(params.Resource),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultAuditLimit
	}
	if query.Limit > maxAuditLimit {
		query.Limit = maxAuditLimit
	}

	var err error
	if query.From, err = parseOptionalAuditTime(params.From); err != nil {
		return nil, model.Meta{}, badRequest("invalid 'from' datetime format", params.From)
	}
	if query.To, err = parseOptionalAuditTime(params.To); err != nil {
		return nil, model.Meta{}, badRequest("invalid 'to' datetime format", params.To)
	}

	items, total, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}

	return items, model.Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}, nil
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	if value, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return value.UTC(), nil
	}

	value, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
