package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixitall/intake/internal/adapters/catalog"
	"github.com/fixitall/intake/internal/config"
	"github.com/fixitall/intake/internal/loadcheck"
	"github.com/fixitall/intake/pkg/logger"
)

// --- inputs ---

func newInputsCmd() *cobra.Command {
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "Print the recorded inputs in append order",
		Long: `Print the recorded inputs in append order.

Examples:
  intake inputs
  intake inputs --count
  FIXIT_INPUT_STORE_BACKEND=sqlite intake inputs`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadQuiet(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			svc := newService(cfg, logger.Get())
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			records, err := svc.Inputs(ctx)
			if err != nil {
				return err
			}
			if countOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), len(records))
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of records")
	return cmd
}

// --- providers ---

func newProvidersCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Query the provider catalog by category",
		Long: `Query the provider catalog by category, reading the file the server uses.

Examples:
  intake providers --category Plumbing`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if category == "" {
				return errors.New("--category is required")
			}
			ctx := commandContext(cmd)
			cfg, err := loadQuiet(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			matched, err := catalog.NewFileCatalog(cfg.ProviderCatalogPath).Lookup(ctx, category)
			if err != nil {
				return fmt.Errorf("reading provider file %s: %w", cfg.ProviderCatalogPath, err)
			}
			return printJSON(cmd.OutOrStdout(), matched)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "exact serviceCategory to match")
	return cmd
}

// --- loadcheck ---

func newLoadCheckCmd() *cobra.Command {
	cfg := &loadcheck.Config{}

	cmd := &cobra.Command{
		Use:   "loadcheck",
		Short: "Post concurrent inputs to a running server and verify none were lost",
		Long: `Post concurrent inputs to a running server and verify none were lost.

The stored input count is read from /stats before and after submission.

Examples:
  intake loadcheck
  intake loadcheck --url http://127.0.0.1:5000 --inputs 5000 --workers 32
  intake loadcheck --category Plumbing`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
				return err
			}
			_ = logger.SetLevelString("info")

			stats, err := loadcheck.Run(commandContext(cmd), cfg)
			if stats != nil {
				if perr := printJSON(cmd.OutOrStdout(), stats); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://127.0.0.1:5000", "base URL of the service")
	cmd.Flags().IntVar(&cfg.Inputs, "inputs", 1000, "number of inputs to submit")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().StringVar(&cfg.Category, "category", "", "provider category to query after submission")
	return cmd
}

// loadQuiet loads config for one-shot commands, logging only warnings to logOut.
func loadQuiet(ctx context.Context, logOut io.Writer) (*config.Config, error) {
	if err := logger.InitWithWriter(logOut); err != nil {
		return nil, err
	}
	_ = logger.SetLevelString("warn")
	return config.Load(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
