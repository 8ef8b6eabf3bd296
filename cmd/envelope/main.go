package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	dotEnv     []string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "envelope",
		Short: "GraphQL server whose request context is built by an ordered plugin pipeline",
		Long: `envelope runs every GraphQL operation through a list of plugins. Each plugin
may extend the request context in turn, strictly in registration order, before
the sealed context is handed to the resolvers.

Configuration is read from an optional YAML file, .env files and ENVELOPE_
environment variables (ENVELOPE_SERVER__ADDR sets server.addr). Flags win.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "envelope.yaml", "YAML config file (optional)")
	root.PersistentFlags().StringSliceVar(&g.dotEnv, "env-file", []string{".env"}, "dotenv files to load (missing files are ignored)")

	root.AddCommand(newServeCmd(g), newExecCmd(g), newKeysCmd(g))
	return root
}
