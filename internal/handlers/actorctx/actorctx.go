package actorctx

import (
	"context"

	"github.com/nkiryanov/pointsbot/internal/auth"
)

type ctxKey string

const actorKey ctxKey = "actor"

// Create a new context with the actor
func New(ctx context.Context, a auth.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// Extract the actor from the context
func FromContext(ctx context.Context) (auth.Actor, bool) {
	a, ok := ctx.Value(actorKey).(auth.Actor)
	return a, ok
}
