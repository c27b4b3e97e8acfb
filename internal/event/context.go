package event

import (
	"context"

	"exam-portal/internal/model"
)

type actorKey struct{}

// WithActor attaches the request's audit actor so services can stamp events with it.
func WithActor(ctx context.Context, actor model.AuditActor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) model.AuditActor {
	actor, _ := ctx.Value(actorKey{}).(model.AuditActor)
	return actor
}
