package common

import "context"

type ctxKey string

const actorKey ctxKey = "auth/actor"

// Actor identifies the authenticated terminal user and the roles the backend
// issued for them. Elevated is set for the lifetime of a supervisor PIN
// override.
type Actor struct {
	ID       string
	Name     string
	Roles    []string
	Elevated bool
}

// WithActor stores the authenticated actor on the provided context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom extracts the authenticated actor from the context if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	v := ctx.Value(actorKey)
	if v == nil {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}
