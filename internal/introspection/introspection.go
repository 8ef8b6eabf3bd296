// Package introspection answers __schema and __type queries on top of an
// executable schema.
package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	executor "github.com/hanpama/envelope/internal/executor"
	schema "github.com/hanpama/envelope/internal/schema"
)

// Executable is a runtime bound to the schema it serves.
type Executable interface {
	executor.Runtime
	Schema() *schema.Schema
}

// Schema is an Executable whose query root also exposes __schema and __type.
type Schema struct {
	base     Executable
	original *schema.Schema
	extended *schema.Schema
}

// Wrap extends base with introspection. base and its schema are not modified.
func Wrap(base Executable) *Schema {
	return &Schema{base: base, original: base.Schema(), extended: extend(base.Schema())}
}

func (s *Schema) Schema() *schema.Schema { return s.extended }

func extend(original *schema.Schema) *schema.Schema {
	ext := *original
	ext.Types = make(map[string]*schema.Type, len(original.Types)+8)
	for name, t := range original.Types {
		ext.Types[name] = t
	}
	for _, t := range schema.IntrospectionTypes() {
		ext.Types[t.Name] = t
	}

	query := original.GetQueryType()
	if query == nil {
		return &ext
	}
	q := *query
	q.Fields = append(append([]*schema.Field(nil), query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		&schema.Field{
			Name:        "__type",
			Description: "Request the type information of a single type.",
			Type:        schema.NamedType("__Type"),
			Arguments: []*schema.InputValue{
				{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))},
			},
		},
	)
	ext.Types[q.Name] = &q
	return &ext
}

func (s *Schema) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if strings.HasPrefix(objectType, "__") {
		return s.resolveMeta(objectType, field, source, args)
	}
	if objectType == s.original.QueryType {
		switch field {
		case "__schema":
			return s.original, nil
		case "__type":
			name, _ := args["name"].(string)
			return nilType(s.named(name)), nil
		}
	}
	return s.base.ResolveSync(ctx, objectType, field, source, args)
}

func (s *Schema) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return s.base.BatchResolveAsync(ctx, tasks)
}

func (s *Schema) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return s.base.ResolveType(ctx, abstractType, value)
}

func (s *Schema) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if strings.HasPrefix(typeName, "__") {
		return fmt.Sprint(value), nil
	}
	return s.base.SerializeLeafValue(ctx, typeName, value)
}

func (s *Schema) resolveMeta(objectType, field string, source any, args map[string]any) (any, error) {
	deprecated, _ := args["includeDeprecated"].(bool)

	switch src := source.(type) {
	case *schema.Schema:
		switch field {
		case "description":
			return optional(src.Description), nil
		case "types":
			return s.types(), nil
		case "queryType":
			return nilType(src.GetQueryType()), nil
		case "mutationType":
			return nilType(src.GetMutationType()), nil
		case "subscriptionType":
			return nilType(src.GetSubscriptionType()), nil
		case "directives":
			return s.directives(), nil
		}
	case *schema.TypeRef:
		if src.Kind == schema.TypeRefKindNamed {
			t := s.named(src.Named)
			if t == nil {
				return nil, nil
			}
			return s.typeField(t, field, deprecated), nil
		}
		switch field {
		case "kind":
			return string(src.Kind), nil
		case "ofType":
			return src.OfType, nil
		}
		return nil, nil
	case *schema.Type:
		return s.typeField(src, field, deprecated), nil
	case *schema.Field:
		switch field {
		case "name":
			return src.Name, nil
		case "description":
			return optional(src.Description), nil
		case "args":
			return inputValues(src.Arguments, deprecated), nil
		case "type":
			return src.Type, nil
		case "isDeprecated":
			return src.IsDeprecated, nil
		case "deprecationReason":
			return reason(src.IsDeprecated, src.DeprecationReason), nil
		}
	case *schema.InputValue:
		switch field {
		case "name":
			return src.Name, nil
		case "description":
			return optional(src.Description), nil
		case "type":
			return src.Type, nil
		case "defaultValue":
			return defaultValue(src.DefaultValue), nil
		case "isDeprecated":
			return src.IsDeprecated, nil
		case "deprecationReason":
			return reason(src.IsDeprecated, src.DeprecationReason), nil
		}
	case *schema.EnumValue:
		switch field {
		case "name":
			return src.Name, nil
		case "description":
			return optional(src.Description), nil
		case "isDeprecated":
			return src.IsDeprecated, nil
		case "deprecationReason":
			return reason(src.IsDeprecated, src.DeprecationReason), nil
		}
	case *schema.Directive:
		switch field {
		case "name":
			return src.Name, nil
		case "description":
			return optional(src.Description), nil
		case "isRepeatable":
			return src.IsRepeatable, nil
		case "locations":
			return src.Locations, nil
		case "args":
			return inputValues(src.Arguments, deprecated), nil
		}
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("introspection: cannot resolve %s.%s on %T", objectType, field, source)
}

func (s *Schema) typeField(t *schema.Type, field string, deprecated bool) any {
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	case "isOneOf":
		return t.OneOf
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if deprecated || !f.IsDeprecated {
				out = append(out, f)
			}
		}
		return out
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return s.lookup(t.Interfaces)
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		return s.lookup(t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		out := []*schema.EnumValue{}
		for _, v := range t.EnumValues {
			if deprecated || !v.IsDeprecated {
				out = append(out, v)
			}
		}
		return out
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return inputValues(t.InputFields, deprecated)
	}
	// ofType is only set on wrapping types.
	return nil
}

// named resolves a type name against the schema as clients see it.
func (s *Schema) named(name string) *schema.Type {
	if name == s.original.QueryType {
		return s.original.Types[name]
	}
	return s.extended.Types[name]
}

// types lists every named type, meta types included, sorted by name.
func (s *Schema) types() []*schema.Type {
	out := make([]*schema.Type, 0, len(s.extended.Types))
	for name, t := range s.extended.Types {
		if name == s.original.QueryType {
			t = s.original.Types[name]
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Schema) directives() []*schema.Directive {
	out := make([]*schema.Directive, 0, len(s.original.Directives))
	for _, d := range s.original.Directives {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Schema) lookup(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := s.original.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

func inputValues(in []*schema.InputValue, deprecated bool) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range in {
		if deprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

// optional maps an empty description to null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, r string) any {
	if !deprecated {
		return nil
	}
	return r
}

func defaultValue(v any) any {
	if v == nil {
		return nil
	}
	if str, ok := v.(string); ok {
		return fmt.Sprintf("%q", str)
	}
	return fmt.Sprint(v)
}

// nilType keeps a missing root type a typed nil from turning into a
// non-nil interface.
func nilType(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}
