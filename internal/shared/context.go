package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the calling account on the request context.
// The ledger authorizes against this identity; the HTTP layer only
// authenticates that the request may speak for it.
func ContextWithActor(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, account)
}

// ActorFromContext extracts the calling account, or "" when absent.
func ActorFromContext(ctx context.Context) string {
	account, _ := ctx.Value(actorContextKey{}).(string)
	return account
}
