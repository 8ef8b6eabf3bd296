package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	schema "github.com/hanpama/envelope/internal/schema"
)

func operationSchema() (*schema.Schema, fakeRuntime) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("a", "", schema.NamedType("String")),
		schema.NewField("b", "", schema.NamedType("String")),
		&schema.Field{
			Name:      "echo",
			Type:      schema.NamedType("Int"),
			Arguments: []*schema.InputValue{{Name: "v", Type: schema.NamedType("Int")}},
		},
	))
	rt := fakeRuntime{
		"Query.a": value("A"),
		"Query.b": value("B"),
		"Query.echo": func(ctx context.Context, src any, args map[string]any) (any, error) {
			return args["v"], nil
		},
	}
	return sch, rt
}

func TestExecuteRequest_OperationSelection(t *testing.T) {
	notFound := &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	tests := []struct {
		name  string
		query string
		op    string
		want  *ExecutionResult
	}{
		{"anonymous", "{ a }", "", &ExecutionResult{Data: map[string]any{"a": "A"}, Errors: []GraphQLError{}}},
		{"single named without name", "query Foo { a }", "", &ExecutionResult{Data: map[string]any{"a": "A"}, Errors: []GraphQLError{}}},
		{"named", "query Foo { a } query Bar { b }", "Bar", &ExecutionResult{Data: map[string]any{"b": "B"}, Errors: []GraphQLError{}}},
		{"fragments only", "fragment F on Query { a }", "", notFound},
		{"ambiguous", "query Foo { a } query Bar { b }", "", notFound},
		{"unknown name", "query Foo { a } query Bar { b }", "Baz", notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sch, rt := operationSchema()
			got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), Params{
				Document:      mustParseQuery(t, tt.query),
				OperationName: tt.op,
			})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteRequest_Variables(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		vars map[string]any
		want *ExecutionResult
	}{
		{"provided", "query($v: Int!){ echo(v:$v) }", map[string]any{"v": 3},
			&ExecutionResult{Data: map[string]any{"echo": 3}, Errors: []GraphQLError{}}},
		{"default", "query($v: Int = 5){ echo(v:$v) }", nil,
			&ExecutionResult{Data: map[string]any{"echo": 5}, Errors: []GraphQLError{}}},
		{"missing required", "query($v: Int!){ echo(v:$v) }", nil,
			&ExecutionResult{Errors: []GraphQLError{{Message: "variable $v of required type Int! was not provided"}}}},
		{"null for non-null", "query($v: Int!){ echo(v:$v) }", map[string]any{"v": nil},
			&ExecutionResult{Errors: []GraphQLError{{Message: "variable $v of type Int! cannot be null"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sch, rt := operationSchema()
			got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), Params{
				Document:  mustParseQuery(t, tt.doc),
				Variables: tt.vars,
			})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteRequest_MissingDocument(t *testing.T) {
	sch, rt := operationSchema()
	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), Params{})
	want := &ExecutionResult{Errors: []GraphQLError{{Message: "document is required"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRequest_RootValueIsSource(t *testing.T) {
	sch, rt := operationSchema()
	rt["Query.a"] = func(ctx context.Context, src any, args map[string]any) (any, error) {
		return src.(map[string]any)["a"], nil
	}
	got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), Params{
		Document:  mustParseQuery(t, "{ a }"),
		RootValue: map[string]any{"a": "from root"},
	})
	if diff := cmp.Diff(map[string]any{"a": "from root"}, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}
