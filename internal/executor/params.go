package executor

import (
	"context"

	language "github.com/hanpama/envelope/internal/language"
)

// Params describes one operation to execute.
type Params struct {
	Document      *language.QueryDocument
	OperationName string
	Variables     map[string]any
	// RootValue is the source value of root fields.
	RootValue any
	// ContextValue is the request-scoped GraphQL context handed to resolvers.
	ContextValue map[string]any
}

type contextValueKey struct{}

// WithContextValue returns a copy of ctx carrying the GraphQL context value.
func WithContextValue(ctx context.Context, v map[string]any) context.Context {
	return context.WithValue(ctx, contextValueKey{}, v)
}

// ContextValueFrom returns the GraphQL context value stored in ctx, or nil.
func ContextValueFrom(ctx context.Context) map[string]any {
	v, _ := ctx.Value(contextValueKey{}).(map[string]any)
	return v
}
