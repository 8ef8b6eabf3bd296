package schema

import (
	"sort"
	"strings"
	"sync"

	language "github.com/hanpama/envelope/internal/language"
)

var metaTypes = sync.OnceValue(func() []*Type {
	doc, err := language.LoadSchema("prelude.graphql", "type Query { ok: Boolean }")
	if err != nil {
		panic("schema: load introspection prelude: " + err.Error())
	}
	var out []*Type
	for name, def := range doc.Types {
		if strings.HasPrefix(name, "__") {
			out = append(out, buildType(doc, def))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
})

// IntrospectionTypes returns the __Schema, __Type and related meta types.
// The returned definitions are shared and must not be modified.
func IntrospectionTypes() []*Type { return metaTypes() }
