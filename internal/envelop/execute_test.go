package envelop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	envelop "github.com/hanpama/envelope/internal/envelop"
	envtest "github.com/hanpama/envelope/internal/envelop/envtest"
	executor "github.com/hanpama/envelope/internal/executor"
	language "github.com/hanpama/envelope/internal/language"
)

type namedPlugin struct{ calls *[]string }

func (p namedPlugin) PluginName() string { return "named" }

func (p namedPlugin) OnParse(ctx context.Context, api *envelop.ParseAPI) error {
	*p.calls = append(*p.calls, "parse "+api.Query)
	return nil
}

func (p namedPlugin) OnExecute(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
	*p.calls = append(*p.calls, "execute")
	return func(ctx context.Context, api *envelop.AfterExecuteAPI) error {
		*p.calls = append(*p.calls, "after execute")
		return nil
	}, nil
}

func TestExecute_PhasesRunInOrder(t *testing.T) {
	var calls []string
	building := envelop.ContextBuildingFunc(func(ctx context.Context, api *envelop.ContextBuildingAPI) (envelop.AfterContextBuildingHook, error) {
		calls = append(calls, "context building")
		return nil, api.Extend(map[string]any{"authenticated": true})
	})
	tk := envtest.New(t, envtest.AuthSchema(t), namedPlugin{&calls}, building)

	res, err := tk.Execute(authQuery, nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"authenticated": true}, res.Data)
	require.Equal(t, []string{"parse " + authQuery, "context building", "execute", "after execute"}, calls)
	require.Equal(t, []string{"named", "envelop.ContextBuildingFunc"}, tk.Registry().Names())
}

func TestExecute_OnExecuteSeesSealedContext(t *testing.T) {
	var seen map[string]any
	tk := envtest.New(t, envtest.AuthSchema(t), envelop.Hooks{
		Name: "observer",
		OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
			seen = api.Args.ContextValue
			return nil, nil
		},
	})

	_, err := tk.Execute(authQuery, nil, map[string]any{"authenticated": false})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"authenticated": false}, seen)
}

func TestExecute_StopExecution(t *testing.T) {
	cached := &executor.ExecutionResult{Data: map[string]any{"authenticated": "cached"}}
	var laterRan bool
	tk := envtest.New(t, envtest.AuthSchema(t),
		envelop.Hooks{
			Name: "cache",
			OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
				api.SetResultAndStopExecution(cached)
				return nil, nil
			},
		},
		envelop.Hooks{
			Name: "later",
			OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
				laterRan = true
				return nil, nil
			},
		},
	)

	res, err := tk.Execute(authQuery, nil, nil)
	require.NoError(t, err)
	require.Same(t, cached, res)
	require.False(t, laterRan)
}

func TestExecute_AfterExecuteReplacesResult(t *testing.T) {
	tk := envtest.New(t, envtest.AuthSchema(t), envelop.Hooks{
		Name: "rewrite",
		OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
			return func(ctx context.Context, api *envelop.AfterExecuteAPI) error {
				require.Equal(t, map[string]any{"authenticated": nil}, api.Result.Data)
				api.SetResult(&executor.ExecutionResult{Data: map[string]any{"authenticated": true}})
				return nil
			}, nil
		},
	})

	res, err := tk.Execute(authQuery, nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"authenticated": true}, res.Data)
}

func TestExecute_SyntaxAndValidationErrors(t *testing.T) {
	spy := envtest.NewSpiedPlugin("spy")
	tk := envtest.New(t, envtest.AuthSchema(t), spy)

	res, err := tk.Execute(`{ authenticated`, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.NotEmpty(t, res.Errors[0].Locations)

	res, err = tk.Execute(`{ missing }`, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "missing")

	require.Empty(t, spy.Calls(envelop.PhaseContextBuilding))
}

func TestExecute_ParseHookCanReplaceDocument(t *testing.T) {
	tk := envtest.New(t, envtest.AuthSchema(t), envelop.Hooks{
		Name: "alias",
		OnParse: func(ctx context.Context, api *envelop.ParseAPI) error {
			require.NotNil(t, api.Document)
			doc, err := language.ParseQuery(`{ renamed: authenticated }`)
			api.Document = doc
			return err
		},
	})

	res, err := tk.Execute(authQuery, nil, map[string]any{"authenticated": true})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"renamed": true}, res.Data)
}

func TestExecute_HookErrorsCarryPhase(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		hooks envelop.Hooks
		phase envelop.Phase
	}{
		{"parse", envelop.Hooks{Name: "p", OnParse: func(ctx context.Context, api *envelop.ParseAPI) error { return boom }}, envelop.PhaseParse},
		{"execute", envelop.Hooks{Name: "p", OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
			return nil, boom
		}}, envelop.PhaseExecute},
		{"after execute", envelop.Hooks{Name: "p", OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
			return func(ctx context.Context, api *envelop.AfterExecuteAPI) error { return boom }, nil
		}}, envelop.PhaseAfterExecute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := envtest.New(t, envtest.AuthSchema(t), tc.hooks).Execute(authQuery, nil, nil)
			require.Nil(t, res)
			var he *envelop.HookError
			require.ErrorAs(t, err, &he)
			require.Equal(t, tc.phase, he.Phase)
			require.ErrorIs(t, err, boom)
		})
	}
}

func TestRegistry_UseComposes(t *testing.T) {
	var order []string
	mark := func(name string) envelop.Plugin {
		return envelop.Hooks{
			Name: name,
			OnContextBuilding: func(ctx context.Context, api *envelop.ContextBuildingAPI) (envelop.AfterContextBuildingHook, error) {
				order = append(order, name)
				return nil, nil
			},
		}
	}
	base := envelop.New(mark("a"), mark("b"))
	nested := envelop.New(mark("x"), base, mark("y"))
	extended := base.Use(mark("c"), nil)

	require.Equal(t, 2, base.Len())
	require.Equal(t, []string{"x", "a", "b", "y"}, nested.Names())
	require.Equal(t, []string{"a", "b", "c"}, extended.Names())

	_, err := extended.BuildContext(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestPluginName(t *testing.T) {
	require.Equal(t, "named", envelop.PluginName(namedPlugin{}))
	require.Equal(t, "anonymous", envelop.PluginName(envelop.Hooks{}))
	require.Equal(t, "int", envelop.PluginName(42))
}
