package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testSDL = `
interface Node { id: ID! }

type User implements Node {
  id: ID!
  name(upper: Boolean = false): String
  legacy: String @deprecated(reason: "use name")
}

type Group implements Node { id: ID! }

union Member = User | Group

enum Role { ADMIN VIEWER }

input Filter { role: Role, limit: Int = 10 }

type Query {
  authenticated: Boolean!
  node(id: ID!): Node
  members(filter: Filter): [Member!]!
}
`

func TestBuildFromSDL(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)
	require.NotNil(t, sch.AST)

	require.Equal(t, "Query", sch.QueryType)
	require.NotNil(t, sch.GetQueryType())
	require.Nil(t, sch.GetMutationType())

	q := sch.GetQueryType()
	require.Nil(t, q.Field("__schema"), "introspection fields are not part of the model")
	auth := q.Field("authenticated")
	require.NotNil(t, auth)
	if diff := cmp.Diff(NonNullType(NamedType("Boolean")), auth.Type); diff != "" {
		t.Fatalf("authenticated type mismatch (-want +got):\n%s", diff)
	}

	members := q.Field("members")
	want := NonNullType(ListType(NonNullType(NamedType("Member"))))
	if diff := cmp.Diff(want, members.Type); diff != "" {
		t.Fatalf("members type mismatch (-want +got):\n%s", diff)
	}

	user := sch.Types["User"]
	require.Equal(t, TypeKindObject, user.Kind)
	require.Equal(t, []string{"Node"}, user.Interfaces)
	legacy := user.Field("legacy")
	require.True(t, legacy.IsDeprecated)
	require.Equal(t, "use name", legacy.DeprecationReason)
	require.Equal(t, false, user.Field("name").Arguments[0].DefaultValue)

	require.Equal(t, []string{"Group", "User"}, sch.Types["Node"].PossibleTypes)
	require.Equal(t, []string{"Group", "User"}, sch.Types["Member"].PossibleTypes)

	filter := sch.Types["Filter"]
	require.Equal(t, TypeKindInputObject, filter.Kind)
	require.Len(t, filter.InputFields, 2)
	require.EqualValues(t, 10, filter.InputFields[1].DefaultValue)

	require.Len(t, sch.Types["Role"].EnumValues, 2)
	require.Contains(t, sch.Directives, "skip")
	require.Contains(t, sch.Directives, "include")
}

func TestBuildFromSDLInvalid(t *testing.T) {
	_, err := BuildFromSDL(`type Query { a: Missing }`)
	require.Error(t, err)
}

func TestIsPossibleType(t *testing.T) {
	sch, err := BuildFromSDL(testSDL)
	require.NoError(t, err)

	require.True(t, sch.IsPossibleType("User", "User"))
	require.True(t, sch.IsPossibleType("Node", "User"))
	require.True(t, sch.IsPossibleType("Member", "Group"))
	require.False(t, sch.IsPossibleType("Group", "User"))
	require.False(t, sch.IsPossibleType("Unknown", "User"))
}
