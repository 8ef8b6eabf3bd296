// Package executable pairs a GraphQL SDL schema with resolver functions and
// exposes the result as an executor.Runtime.
//
// Fields with a registered resolver are marked asynchronous, so the executor
// batches them per depth; every other field is projected synchronously from
// its parent value by the default resolver.
package executable

import (
	"context"
	"fmt"
	"sort"
	"sync"

	executor "github.com/hanpama/envelope/internal/executor"
	schema "github.com/hanpama/envelope/internal/schema"
)

// ResolveInfo identifies the field being resolved.
type ResolveInfo struct {
	ObjectType string
	Field      string
}

// ResolveParams is what a ResolverFunc receives.
type ResolveParams struct {
	// Source is the parent value; nil for root fields unless a root value was
	// supplied.
	Source any
	Args   map[string]any
	// Context is the sealed request context built by the plugin pipeline.
	Context map[string]any
	Info    ResolveInfo
}

// ResolverFunc resolves one field value.
type ResolverFunc func(ctx context.Context, p ResolveParams) (any, error)

// Resolvers maps type name → field name → resolver.
type Resolvers map[string]map[string]ResolverFunc

// TypeResolverFunc returns the concrete object type name of an abstract value.
type TypeResolverFunc func(ctx context.Context, value any) (string, error)

// ScalarSerializer converts a custom scalar value to a JSON-safe value.
type ScalarSerializer func(value any) (any, error)

type Option func(*Schema)

// WithTypeResolver installs the type resolver for an interface or union.
func WithTypeResolver(abstractType string, fn TypeResolverFunc) Option {
	return func(s *Schema) { s.typeResolvers[abstractType] = fn }
}

// WithScalar installs the serializer for a custom scalar.
func WithScalar(name string, fn ScalarSerializer) Option {
	return func(s *Schema) { s.scalars[name] = fn }
}

// Schema is an executable schema. It implements executor.Runtime.
type Schema struct {
	schema        *schema.Schema
	resolvers     Resolvers
	typeResolvers map[string]TypeResolverFunc
	scalars       map[string]ScalarSerializer
}

var _ executor.Runtime = (*Schema)(nil)

// MakeSchema parses and validates typeDefs and binds resolvers to it. A
// resolver for a type or field missing from typeDefs is an error.
func MakeSchema(typeDefs string, resolvers Resolvers, opts ...Option) (*Schema, error) {
	sch, err := schema.BuildFromSDL(typeDefs)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return Bind(sch, resolvers, opts...)
}

// Bind attaches resolvers to an already built schema.
func Bind(sch *schema.Schema, resolvers Resolvers, opts ...Option) (*Schema, error) {
	s := &Schema{
		schema:        sch,
		resolvers:     Resolvers{},
		typeResolvers: map[string]TypeResolverFunc{},
		scalars:       map[string]ScalarSerializer{},
	}
	for _, opt := range opts {
		opt(s)
	}

	typeNames := make([]string, 0, len(resolvers))
	for name := range resolvers {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, typeName := range typeNames {
		t := sch.Types[typeName]
		if t == nil {
			return nil, fmt.Errorf("resolvers defined for type %s, but it is not in the schema", typeName)
		}
		if t.Kind != schema.TypeKindObject {
			return nil, fmt.Errorf("resolvers defined for %s type %s; only object types have field resolvers", t.Kind, typeName)
		}
		fields := make(map[string]ResolverFunc, len(resolvers[typeName]))
		for fieldName, fn := range resolvers[typeName] {
			f := t.Field(fieldName)
			if f == nil {
				return nil, fmt.Errorf("resolver defined for %s.%s, but the field is not in the schema", typeName, fieldName)
			}
			f.SetAsync(true)
			fields[fieldName] = fn
		}
		s.resolvers[typeName] = fields
	}
	return s, nil
}

// Schema returns the type system the resolvers are bound to.
func (s *Schema) Schema() *schema.Schema { return s.schema }

func (s *Schema) resolver(objectType, field string) ResolverFunc {
	if fields, ok := s.resolvers[objectType]; ok {
		return fields[field]
	}
	return nil
}

// resolve runs one resolver. A panic becomes the field's error.
func (s *Schema) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("resolver %s.%s panicked: %v", objectType, field, r)
		}
	}()
	fn := s.resolver(objectType, field)
	if fn == nil {
		return DefaultResolve(source, field)
	}
	return fn(ctx, ResolveParams{
		Source:  source,
		Args:    args,
		Context: executor.ContextValueFrom(ctx),
		Info:    ResolveInfo{ObjectType: objectType, Field: field},
	})
}

func (s *Schema) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	return s.resolve(ctx, objectType, field, source, args)
}

// BatchResolveAsync runs the resolvers of one depth concurrently and returns
// their results in task order.
func (s *Schema) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	resolveTask := func(i int) {
		t := tasks[i]
		v, err := s.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	if len(tasks) == 1 {
		resolveTask(0)
		return results
	}
	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resolveTask(i)
		}(i)
	}
	wg.Wait()
	return results
}

func (s *Schema) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	var name string
	if fn := s.typeResolvers[abstractType]; fn != nil {
		n, err := fn(ctx, value)
		if err != nil {
			return "", err
		}
		name = n
	} else {
		name = typeNameOf(value)
	}
	if name == "" || !s.schema.IsPossibleType(abstractType, name) {
		return "", fmt.Errorf("cannot resolve %s to a possible type of %s", describe(value), abstractType)
	}
	return name, nil
}

func (s *Schema) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	if fn := s.scalars[scalarOrEnumTypeName]; fn != nil {
		return fn(value)
	}
	if t := s.schema.Types[scalarOrEnumTypeName]; t != nil && t.Kind == schema.TypeKindEnum {
		return serializeEnum(t, value)
	}
	return serializeBuiltin(scalarOrEnumTypeName, value)
}
