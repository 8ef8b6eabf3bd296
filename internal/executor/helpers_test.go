package executor

import (
	"context"
	"fmt"
	"testing"

	language "github.com/hanpama/envelope/internal/language"
	schema "github.com/hanpama/envelope/internal/schema"
)

type resolveFunc func(ctx context.Context, source any, args map[string]any) (any, error)

func value(v any) resolveFunc {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

// fakeRuntime resolves "Type.field" keys and reads the concrete type of an
// abstract value from its "__typename" entry. Leaves pass through unchanged.
type fakeRuntime map[string]resolveFunc

func (rt fakeRuntime) call(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	fn, ok := rt[objectType+"."+field]
	if !ok {
		return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
	}
	return fn(ctx, source, args)
}

func (rt fakeRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return rt.call(ctx, objectType, field, source, args)
}

func (rt fakeRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	out := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := rt.call(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		out[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return out
}

func (rt fakeRuntime) ResolveType(ctx context.Context, abstractType string, v any) (string, error) {
	if m, ok := v.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve %s for %T", abstractType, v)
}

func (rt fakeRuntime) SerializeLeafValue(ctx context.Context, typeName string, v any) (any, error) {
	return v, nil
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	if query != nil {
		sch.SetQueryType(query.Name)
		sch.AddType(query)
	}
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}
