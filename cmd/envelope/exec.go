package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	envelop "github.com/hanpama/envelope/internal/envelop"
)

var execFlagKeys = flagKeys{
	"schema":  "graphql.schema",
	"auth-db": "auth.database",
}

func newExecCmd(g *globalFlags) *cobra.Command {
	var (
		query     string
		variables string
		seed      string
		opName    string
	)
	cmd := &cobra.Command{
		Use:   "exec [query]",
		Short: "Execute one operation through the plugins and print the result",
		Long: `Execute one operation through the configured plugins and print the JSON result.
The query is read from the argument, --query, or stdin when neither is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g, execFlagKeys)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				query = args[0]
			}
			if query == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read query: %w", err)
				}
				query = string(b)
			}

			req := envelop.Request{Query: query, OperationName: opName}
			if err := decodeObject(variables, &req.Variables); err != nil {
				return fmt.Errorf("--variables: %w", err)
			}
			if err := decodeObject(seed, &req.ContextSeed); err != nil {
				return fmt.Errorf("--seed: %w", err)
			}

			es, err := loadSchema(cfg)
			if err != nil {
				return err
			}
			registry, closeRegistry, err := newRegistry(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer func() { _ = closeRegistry() }()

			result, err := registry.Execute(cmd.Context(), es, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&query, "query", "q", "", "GraphQL document")
	f.StringVar(&variables, "variables", "", "variables as a JSON object")
	f.StringVar(&seed, "seed", "", "initial request context as a JSON object")
	f.StringVar(&opName, "operation", "", "operation name")
	f.String("schema", "", "GraphQL SDL file")
	f.String("auth-db", "", "SQLite API key database")
	return cmd
}

func decodeObject(raw string, dst *map[string]any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
