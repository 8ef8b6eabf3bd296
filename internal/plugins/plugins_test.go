package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanpama/envelope/internal/authstore"
	envelop "github.com/hanpama/envelope/internal/envelop"
	envtest "github.com/hanpama/envelope/internal/envelop/envtest"
	executable "github.com/hanpama/envelope/internal/executable"
	executor "github.com/hanpama/envelope/internal/executor"
)

func TestUseExtendContext(t *testing.T) {
	tk := envtest.New(t, envtest.AuthSchema(t),
		UseExtendContext(func(ctx context.Context, current map[string]any) (map[string]any, error) {
			return map[string]any{"authenticated": current["token"] == "secret"}, nil
		}),
	)

	res, err := tk.Execute(`{ authenticated }`, nil, map[string]any{"token": "secret"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"authenticated": true}, res.Data)

	boom := errors.New("boom")
	_, err = envtest.New(t, envtest.AuthSchema(t),
		UseExtendContext(func(ctx context.Context, current map[string]any) (map[string]any, error) { return nil, boom }),
	).Execute(`{ authenticated }`, nil, nil)
	require.ErrorIs(t, err, boom)
}

func TestUseAPIKeyAuth(t *testing.T) {
	raw, key, err := authstore.NewKey("ci", "admin")
	require.NoError(t, err)
	store := authstore.NewMemory(key)

	var sealed map[string]any
	capture := envelop.Hooks{
		Name: "capture",
		OnContextBuilding: func(ctx context.Context, api *envelop.ContextBuildingAPI) (envelop.AfterContextBuildingHook, error) {
			return func(ctx context.Context, api *envelop.AfterContextBuildingAPI) error {
				sealed = api.Context
				return nil
			}, nil
		},
	}
	tk := envtest.New(t, envtest.AuthSchema(t), UseAPIKeyAuth(store), capture)

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"bearer", map[string]string{"authorization": "Bearer " + raw}, true},
		{"bare key", map[string]string{"authorization": raw}, true},
		{"unknown key", map[string]string{"authorization": "Bearer nope"}, false},
		{"other scheme", map[string]string{"authorization": "Basic " + raw}, false},
		{"no header", map[string]string{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tk.Execute(`{ authenticated }`, nil, map[string]any{HeadersKey: tc.headers})
			require.NoError(t, err)
			require.Equal(t, map[string]any{"authenticated": tc.want}, res.Data)
			if tc.want {
				require.Same(t, key, sealed["apiKey"])
				require.Equal(t, []string{"admin"}, sealed["roles"])
			} else {
				require.NotContains(t, sealed, "apiKey")
			}
		})
	}
}

func TestUseAPIKeyAuth_CustomHeader(t *testing.T) {
	raw, key, err := authstore.NewKey("ci")
	require.NoError(t, err)
	tk := envtest.New(t, envtest.AuthSchema(t), UseAPIKeyAuth(authstore.NewMemory(key), WithAuthHeader("X-API-Key")))

	res, err := tk.Execute(`{ authenticated }`, nil, map[string]any{HeadersKey: map[string]any{"x-api-key": raw}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"authenticated": true}, res.Data)
}

type failingStore struct{}

func (failingStore) Add(ctx context.Context, key *authstore.Key) error { return nil }
func (failingStore) Close() error                                     { return nil }
func (failingStore) Lookup(ctx context.Context, apiKey string) (*authstore.Key, error) {
	return nil, errors.New("database is locked")
}

func TestUseAPIKeyAuth_StoreFailureAborts(t *testing.T) {
	tk := envtest.New(t, envtest.AuthSchema(t), UseAPIKeyAuth(failingStore{}))

	res, err := tk.Execute(`{ authenticated }`, nil, map[string]any{HeadersKey: map[string]string{"authorization": "k"}})
	require.Nil(t, res)
	var he *envelop.HookError
	require.ErrorAs(t, err, &he)
	require.Equal(t, "apiKeyAuth", he.Plugin)
	require.ErrorContains(t, err, "database is locked")
}

func TestUseMaskedErrors(t *testing.T) {
	s, err := executable.MakeSchema(`type Query { internal: String expected: String }`, executable.Resolvers{
		"Query": {
			"internal": func(ctx context.Context, p executable.ResolveParams) (any, error) {
				return nil, errors.New("pq: connection refused")
			},
			"expected": func(ctx context.Context, p executable.ResolveParams) (any, error) {
				return nil, errors.New("not allowed")
			},
		},
	})
	require.NoError(t, err)

	markExpected := envelop.Hooks{
		Name: "code",
		OnExecute: func(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
			return func(ctx context.Context, done *envelop.AfterExecuteAPI) error {
				for i, e := range done.Result.Errors {
					if e.Message == "not allowed" {
						done.Result.Errors[i].Extensions = map[string]any{"code": "FORBIDDEN"}
					}
				}
				return nil
			}, nil
		},
	}
	res, err := envtest.New(t, s, markExpected, UseMaskedErrors()).Execute(`{ internal expected }`, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	require.Equal(t, DefaultMaskedMessage, res.Errors[0].Message)
	require.Equal(t, executor.Path{"internal"}, res.Errors[0].Path)
	require.Equal(t, "not allowed", res.Errors[1].Message)

	res, err = envtest.New(t, s, UseMaskedErrors(WithMaskedMessage("nope"), WithExpected(func(executor.GraphQLError) bool { return false }))).
		Execute(`{ expected }`, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "nope", res.Errors[0].Message)
}

func TestUseLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tk := envtest.New(t, envtest.AuthSchema(t), UseLogger(zap.New(core)))

	_, err := tk.Execute(`query Check { authenticated }`, nil, map[string]any{"authenticated": true})
	require.NoError(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, "execute start", entries[0].Message)
	require.EqualValues(t, 1, entries[0].ContextMap()["context_keys"])
	require.Equal(t, "execute end", entries[1].Message)
	require.Equal(t, "graphql", entries[1].LoggerName)
}
