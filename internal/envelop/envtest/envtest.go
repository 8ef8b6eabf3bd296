// Package envtest runs operations through a plugin registry in tests and
// records what plugins observed.
package envtest

import (
	"context"
	"sync"
	"testing"
	"time"

	envelop "github.com/hanpama/envelope/internal/envelop"
	executable "github.com/hanpama/envelope/internal/executable"
	executor "github.com/hanpama/envelope/internal/executor"
)

// Testkit executes queries against a schema with a fixed set of plugins.
type Testkit struct {
	t        testing.TB
	schema   envelop.ExecutableSchema
	registry *envelop.Registry
}

func New(t testing.TB, es envelop.ExecutableSchema, plugins ...envelop.Plugin) *Testkit {
	t.Helper()
	return &Testkit{t: t, schema: es, registry: envelop.New(plugins...)}
}

func (tk *Testkit) Registry() *envelop.Registry { return tk.registry }

// Execute runs query with variables and the given context seed.
func (tk *Testkit) Execute(query string, variables, seed map[string]any) (*executor.ExecutionResult, error) {
	tk.t.Helper()
	return tk.registry.Execute(context.Background(), tk.schema, envelop.Request{
		Query:       query,
		Variables:   variables,
		ContextSeed: seed,
	})
}

// AuthSchema is `type Query { authenticated: Boolean }` resolving
// authenticated from the request context.
func AuthSchema(t testing.TB) *executable.Schema {
	t.Helper()
	s, err := executable.MakeSchema(`type Query { authenticated: Boolean }`, executable.Resolvers{
		"Query": {
			"authenticated": func(ctx context.Context, p executable.ResolveParams) (any, error) {
				return p.Context["authenticated"], nil
			},
		},
	})
	if err != nil {
		t.Fatalf("auth schema: %v", err)
	}
	return s
}

// SpyCall is one recorded hook invocation.
type SpyCall struct {
	Phase envelop.Phase
	At    time.Time
	// Context is the live map the hook received.
	Context map[string]any
	// Snapshot is a copy of Context taken when the hook was called.
	Snapshot map[string]any
}

// SpiedPlugin records every context building hook call. When Extend is set
// the before-hook extends the context with it.
type SpiedPlugin struct {
	Name   string
	Extend map[string]any

	mu    sync.Mutex
	calls []SpyCall
}

var _ envelop.ContextBuildingPlugin = (*SpiedPlugin)(nil)

func NewSpiedPlugin(name string) *SpiedPlugin { return &SpiedPlugin{Name: name} }

func (s *SpiedPlugin) PluginName() string { return s.Name }

func (s *SpiedPlugin) OnContextBuilding(ctx context.Context, api *envelop.ContextBuildingAPI) (envelop.AfterContextBuildingHook, error) {
	s.record(envelop.PhaseContextBuilding, api.Context)
	if s.Extend != nil {
		if err := api.Extend(s.Extend); err != nil {
			return nil, err
		}
	}
	return func(ctx context.Context, api *envelop.AfterContextBuildingAPI) error {
		s.record(envelop.PhaseAfterContextBuilding, api.Context)
		return nil
	}, nil
}

func (s *SpiedPlugin) record(phase envelop.Phase, live map[string]any) {
	snap := make(map[string]any, len(live))
	for k, v := range live {
		snap[k] = v
	}
	s.mu.Lock()
	s.calls = append(s.calls, SpyCall{Phase: phase, At: time.Now(), Context: live, Snapshot: snap})
	s.mu.Unlock()
}

// Calls returns the recorded calls of phase in call order.
func (s *SpiedPlugin) Calls(phase envelop.Phase) []SpyCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SpyCall
	for _, c := range s.calls {
		if c.Phase == phase {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the call log.
func (s *SpiedPlugin) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}
