package shared

import (
	"context"
	"fmt"
)

// Actor identifies the user performing a mutating call. The core does not
// authenticate; it only records who acted and in which role.
type Actor struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// String renders the actor for note annotations.
func (a Actor) String() string {
	if a.Role == "" {
		return fmt.Sprintf("user:%d", a.ID)
	}
	return fmt.Sprintf("user:%d(%s)", a.ID, a.Role)
}

type actorContextKey struct{}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
