package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hanpama/envelope/internal/authstore"
	"github.com/hanpama/envelope/internal/authstore/sqlite"
	"github.com/hanpama/envelope/internal/config"
	envelop "github.com/hanpama/envelope/internal/envelop"
	executable "github.com/hanpama/envelope/internal/executable"
	"github.com/hanpama/envelope/internal/introspection"
	"github.com/hanpama/envelope/internal/plugins"
	schema "github.com/hanpama/envelope/internal/schema"
)

// defaultSDL is served when no schema file is configured. Every root field
// echoes the request context entry of the same name.
const defaultSDL = `type Query {
  authenticated: Boolean
  requestId: String
  roles: [String!]
}
`

// flagKeys maps command line flags onto config keys.
type flagKeys map[string]string

// loadConfig reads configuration, applying only the flags set explicitly.
func loadConfig(cmd *cobra.Command, g *globalFlags, keys flagKeys) (*config.Config, error) {
	overrides := map[string]any{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			return
		}
		switch v := f.Value.(type) {
		case pflag.SliceValue:
			overrides[key] = v.GetSlice()
		default:
			overrides[key] = f.Value.String()
		}
	})
	return config.Load(config.Options{
		File:      g.configFile,
		Required:  cmd.Flags().Changed("config"),
		DotEnv:    g.dotEnv,
		Overrides: overrides,
	})
}

// loadSchema builds the executable schema from the configured SDL file.
func loadSchema(cfg *config.Config) (envelop.ExecutableSchema, error) {
	sdl := defaultSDL
	if cfg.GraphQL.Schema != "" {
		b, err := os.ReadFile(cfg.GraphQL.Schema)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		sdl = string(b)
	}
	sch, err := schema.BuildFromSDL(sdl)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	es, err := executable.Bind(sch, contextResolvers(sch))
	if err != nil {
		return nil, err
	}
	if cfg.GraphQL.Introspection {
		return introspection.Wrap(es), nil
	}
	return es, nil
}

// contextResolvers resolves each root query field from the request context.
func contextResolvers(sch *schema.Schema) executable.Resolvers {
	query := sch.GetQueryType()
	if query == nil {
		return nil
	}
	fields := make(map[string]executable.ResolverFunc, len(query.Fields))
	for _, f := range query.Fields {
		name := f.Name
		fields[name] = func(ctx context.Context, p executable.ResolveParams) (any, error) {
			return p.Context[name], nil
		}
	}
	return executable.Resolvers{query.Name: fields}
}

// newRegistry assembles the plugin list. The returned close function
// releases the key store.
func newRegistry(cfg *config.Config, log *zap.Logger) (*envelop.Registry, func() error, error) {
	list := []envelop.Plugin{plugins.UseLogger(log)}
	closeFn := func() error { return nil }

	if cfg.Auth.Database != "" {
		store, err := openStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		list = append(list, plugins.UseAPIKeyAuth(store, plugins.WithAuthHeader(cfg.Auth.Header)))
		closeFn = store.Close
	}
	list = append(list, plugins.UseMaskedErrors())
	return envelop.New(list...), closeFn, nil
}

func openStore(cfg *config.Config) (authstore.Store, error) {
	if cfg.Auth.Database == "" {
		return nil, fmt.Errorf("auth.database is not configured")
	}
	store, err := sqlite.New(cfg.Auth.Database)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	return store, nil
}
