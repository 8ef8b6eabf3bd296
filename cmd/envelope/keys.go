package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanpama/envelope/internal/authstore"
)

var keysFlagKeys = flagKeys{"auth-db": "auth.database"}

func newKeysCmd(g *globalFlags) *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	keys.PersistentFlags().String("auth-db", "", "SQLite API key database")

	var roles []string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an API key and print it once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g, keysFlagKeys)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			raw, key, err := authstore.NewKey(args[0], roles...)
			if err != nil {
				return err
			}
			if err := store.Add(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s (id %s):\n%s\n", key.Name, key.ID, raw)
			return nil
		},
	}
	add.Flags().StringSliceVar(&roles, "role", nil, "role granted to the key; repeatable")
	keys.AddCommand(add)
	return keys
}
