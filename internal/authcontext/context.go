// Package authcontext carries the acting user's identity through a request.
// Identity is supplied by the surrounding system (trusted headers); this
// service does not authenticate.
package authcontext

import (
	"context"
	"strings"
)

type actorKey struct{}
type requestIDKey struct{}

// Actor identifies who performs a request.
type Actor struct {
	UserID string
	Email  string
}

// WithActor stores the acting user in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || strings.TrimSpace(actor.UserID) == "" {
		return Actor{}, false
	}
	return actor, true
}

// WithRequestID stores the request id for audit correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id, if set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
