package executable

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/envelope/internal/executor"
	language "github.com/hanpama/envelope/internal/language"
)

const typeDefs = `
interface Pet { name: String! }
type Dog implements Pet { name: String! barks: Boolean! }
type Cat implements Pet { name: String! lives: Int! }

enum Role { ADMIN VIEWER }

type User {
  id: ID!
  displayName: String
  role: Role!
  pets: [Pet!]!
}

scalar Time

type Query {
  authenticated: Boolean!
  createdAt: Time
  me: User
  echo(msg: String = "hi"): String
}
`

type dog struct {
	Name  string `json:"name"`
	Barks bool
}

type user struct {
	ID   string
	role string
	pets []any
}

func (u *user) DisplayName() string { return "user " + u.ID }
func (u *user) Role() (string, error) { return u.role, nil }
func (u *user) Pets() []any          { return u.pets }

func execute(t *testing.T, s *Schema, query string, ctxValue map[string]any) *executor.ExecutionResult {
	t.Helper()
	doc, errs := language.LoadQuery(s.Schema().AST, query)
	require.Empty(t, errs)
	return executor.NewExecutor(s, s.Schema()).ExecuteRequest(context.Background(), executor.Params{
		Document:     doc,
		ContextValue: ctxValue,
	})
}

func TestMakeSchema_ResolverReadsContext(t *testing.T) {
	s, err := MakeSchema(typeDefs, Resolvers{
		"Query": {
			"authenticated": func(ctx context.Context, p ResolveParams) (any, error) {
				return p.Context["authenticated"], nil
			},
		},
	})
	require.NoError(t, err)
	require.True(t, s.Schema().GetQueryType().Field("authenticated").Async)
	require.False(t, s.Schema().GetQueryType().Field("me").Async)

	got := execute(t, s, `{ authenticated }`, map[string]any{"authenticated": true})
	want := &executor.ExecutionResult{Data: map[string]any{"authenticated": true}, Errors: []executor.GraphQLError{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestMakeSchema_DefaultResolversAndAbstractTypes(t *testing.T) {
	s, err := MakeSchema(typeDefs, Resolvers{
		"Query": {
			"me": func(ctx context.Context, p ResolveParams) (any, error) {
				return &user{ID: "u1", role: "ADMIN", pets: []any{
					&dog{Name: "Rex", Barks: true},
					map[string]any{"__typename": "Cat", "name": "Tom", "lives": 9},
				}}, nil
			},
			"echo": func(ctx context.Context, p ResolveParams) (any, error) {
				return p.Args["msg"], nil
			},
		},
	}, WithTypeResolver("Pet", func(ctx context.Context, value any) (string, error) {
		if _, ok := value.(*dog); ok {
			return "Dog", nil
		}
		return typeNameOf(value), nil
	}))
	require.NoError(t, err)

	got := execute(t, s, `{
	  echo
	  me {
	    id displayName role
	    pets { name ... on Dog { barks } ... on Cat { lives } }
	  }
	}`, nil)
	want := &executor.ExecutionResult{
		Data: map[string]any{
			"echo": "hi",
			"me": map[string]any{
				"id":          "u1",
				"displayName": "user u1",
				"role":        "ADMIN",
				"pets": []any{
					map[string]any{"name": "Rex", "barks": true},
					map[string]any{"name": "Tom", "lives": 9},
				},
			},
		},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestMakeSchema_ResolverErrorsAreLocated(t *testing.T) {
	s, err := MakeSchema(typeDefs, Resolvers{
		"Query": {
			"echo": func(ctx context.Context, p ResolveParams) (any, error) { return nil, errors.New("boom") },
			"authenticated": func(ctx context.Context, p ResolveParams) (any, error) {
				return "yes", nil
			},
		},
	})
	require.NoError(t, err)

	got := execute(t, s, `{ echo authenticated }`, nil)
	require.Len(t, got.Errors, 2)
	require.Equal(t, "boom", got.Errors[0].Message)
	require.Equal(t, executor.Path{"echo"}, got.Errors[0].Path)
	require.Contains(t, got.Errors[1].Message, "Boolean cannot represent")
}

func TestMakeSchema_PanickingResolverBecomesFieldError(t *testing.T) {
	s, err := MakeSchema(typeDefs, Resolvers{
		"Query": {
			"echo": func(ctx context.Context, p ResolveParams) (any, error) { panic("boom") },
		},
	})
	require.NoError(t, err)

	var got *executor.ExecutionResult
	require.NotPanics(t, func() { got = execute(t, s, `{ echo }`, nil) })
	require.Len(t, got.Errors, 1)
	require.Equal(t, "resolver Query.echo panicked: boom", got.Errors[0].Message)
	require.Equal(t, executor.Path{"echo"}, got.Errors[0].Path)
	require.Equal(t, map[string]any{"echo": nil}, got.Data)
}

func TestWithScalar(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := MakeSchema(typeDefs, Resolvers{
		"Query": {
			"createdAt": func(ctx context.Context, p ResolveParams) (any, error) { return created, nil },
		},
	}, WithScalar("Time", func(v any) (any, error) {
		ts, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("Time cannot represent %T", v)
		}
		return ts.Format(time.RFC3339), nil
	}))
	require.NoError(t, err)

	got := execute(t, s, `{ createdAt }`, nil)
	require.Empty(t, got.Errors)
	require.Equal(t, map[string]any{"createdAt": "2024-05-01T12:00:00Z"}, got.Data)
}

func TestMakeSchema_RejectsUnknownResolvers(t *testing.T) {
	noop := func(ctx context.Context, p ResolveParams) (any, error) { return nil, nil }

	_, err := MakeSchema(typeDefs, Resolvers{"Mutation": {"x": noop}})
	require.ErrorContains(t, err, "type Mutation")

	_, err = MakeSchema(typeDefs, Resolvers{"Query": {"missing": noop}})
	require.ErrorContains(t, err, "Query.missing")

	_, err = MakeSchema(typeDefs, Resolvers{"Role": {"ADMIN": noop}})
	require.ErrorContains(t, err, "only object types")

	_, err = MakeSchema(`type Query { a: Nope }`, nil)
	require.ErrorContains(t, err, "build schema")
}

func TestDefaultResolve(t *testing.T) {
	type withTags struct {
		UserID string
		Label  string `json:"title"`
	}
	tests := []struct {
		name   string
		source any
		field  string
		want   any
	}{
		{"nil source", nil, "a", nil},
		{"map", map[string]any{"a": 1}, "a", 1},
		{"typed map", map[string]string{"a": "x"}, "a", "x"},
		{"json tag", withTags{Label: "t"}, "title", "t"},
		{"ID suffix", &withTags{UserID: "7"}, "userId", "7"},
		{"getter", &user{ID: "9"}, "displayName", "user 9"},
		{"nil pointer", (*user)(nil), "id", nil},
		{"unknown", withTags{}, "nope", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DefaultResolve(tc.source, tc.field)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
