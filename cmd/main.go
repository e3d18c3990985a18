package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fixitall/intake/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "intake",
		Short:         "Records user inputs and serves the provider catalog",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configPath != "" {
				return os.Setenv(config.EnvConfigFile, configPath)
			}
			return nil
		},
		// Running the bare binary starts the server, as the service always did.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides "+config.EnvConfigFile+")")

	root.AddCommand(newServeCmd(), newInputsCmd(), newProvidersCmd(), newLoadCheckCmd())
	return root
}
