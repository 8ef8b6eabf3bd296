package schema

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/envelope/internal/language"
)

// NewSchema returns an empty schema with the builtin scalars and directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field {
	f.Async = async
	return f
}

// BuildFromSDL parses and validates SDL and returns the corresponding Schema.
// A `schema { query: Query }` definition is assumed when none is given.
func BuildFromSDL(sdl string) (*Schema, error) {
	if !strings.Contains(sdl, "schema {") && !strings.Contains(sdl, "schema{") {
		sdl = "schema { query: Query }\n" + sdl
	}
	doc, err := language.LoadSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromAST(doc), nil
}

// BuildFromAST converts a validated gqlparser schema. Introspection types and
// fields (names starting with "__") are left out; every field is synchronous
// until a runtime marks it otherwise.
func BuildFromAST(doc *language.Schema) *Schema {
	s := NewSchema(doc.Description)
	s.AST = doc
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		if !strings.HasPrefix(name, "__") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		def := doc.Types[name]
		if builtin, ok := s.Types[name]; ok && builtin.Kind == TypeKindScalar && def.BuiltIn {
			continue
		}
		s.AddType(buildType(doc, def))
	}

	for name, dir := range doc.Directives {
		if _, ok := s.Directives[name]; ok {
			continue
		}
		s.AddDirective(buildDirective(dir))
	}
	return s
}

func buildType(doc *language.Schema, def *ast.Definition) *Type {
	var t *Type
	switch def.Kind {
	case ast.Object:
		t = NewType(def.Name, TypeKindObject, def.Description)
	case ast.Interface:
		t = NewType(def.Name, TypeKindInterface, def.Description)
	case ast.Union:
		t = NewType(def.Name, TypeKindUnion, def.Description)
	case ast.Enum:
		t = NewType(def.Name, TypeKindEnum, def.Description)
	case ast.InputObject:
		t = NewType(def.Name, TypeKindInputObject, def.Description)
		t.OneOf = def.Directives.ForName("oneOf") != nil
	default:
		t = NewType(def.Name, TypeKindScalar, def.Description)
	}

	t.Interfaces = append(t.Interfaces, def.Interfaces...)

	switch def.Kind {
	case ast.Object, ast.Interface:
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(buildField(fd))
		}
	case ast.InputObject:
		for _, fd := range def.Fields {
			t.InputFields = append(t.InputFields, buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives))
		}
	case ast.Enum:
		for _, ev := range def.EnumValues {
			v := &EnumValue{Name: ev.Name, Description: ev.Description}
			v.IsDeprecated, v.DeprecationReason = deprecation(ev.Directives)
			t.EnumValues = append(t.EnumValues, v)
		}
	}

	if def.Kind == ast.Interface || def.Kind == ast.Union {
		for _, pt := range doc.GetPossibleTypes(def) {
			t.PossibleTypes = append(t.PossibleTypes, pt.Name)
		}
		sort.Strings(t.PossibleTypes)
	}
	return t
}

func buildField(fd *ast.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
	f.IsDeprecated, f.DeprecationReason = deprecation(fd.Directives)
	for _, arg := range fd.Arguments {
		f.Arguments = append(f.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return f
}

func buildInputValue(name, description string, typ *ast.Type, defaultValue *ast.Value, directives ast.DirectiveList) *InputValue {
	in := &InputValue{Name: name, Description: description, Type: buildTypeRef(typ)}
	if defaultValue != nil {
		if v, err := defaultValue.Value(nil); err == nil {
			in.DefaultValue = v
		}
	}
	in.IsDeprecated, in.DeprecationReason = deprecation(directives)
	return in
}

func buildDirective(def *ast.DirectiveDefinition) *Directive {
	d := &Directive{Name: def.Name, Description: def.Description, IsRepeatable: def.IsRepeatable}
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range def.Arguments {
		d.Arguments = append(d.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
	}
	return d
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return NonNullType(buildTypeRef(&inner))
	}
	if t.Elem != nil {
		return ListType(buildTypeRef(t.Elem))
	}
	return NamedType(t.NamedType)
}

func deprecation(directives ast.DirectiveList) (bool, string) {
	d := directives.ForName("deprecated")
	if d == nil {
		return false, ""
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	return true, reason
}
