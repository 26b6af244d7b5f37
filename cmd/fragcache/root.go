package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fragcache/config"
	"github.com/jonwraymond/fragcache/internal/app"
)

// cli holds state shared by subcommands.
type cli struct {
	namespace string
	cfg       config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	version := Version
	if version == "" {
		version = "unknown (built from source)"
	}

	root := &cobra.Command{
		Use:   "fragcache",
		Short: "Compute-or-serve fragment cache",
		Long: "fragcache stores rendered fragments keyed by their conditions and serves them\n" +
			"until they are cleared or expire. Settings come from FRAGCACHE_* variables.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.namespace, "namespace", "n", "", "fragment namespace (default: first of FRAGCACHE_NAMESPACES)")

	root.AddCommand(
		c.newServeCmd(),
		c.newClearCmd(),
		c.newStatCmd(),
		c.newExecCmd(),
		c.newTokenCmd(),
	)
	return root
}

func (c *cli) load(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	switch {
	case c.namespace == "":
		c.namespace = cfg.Namespaces[0]
	case !slices.Contains(cfg.Namespaces, c.namespace):
		cfg.Namespaces = append(cfg.Namespaces, c.namespace)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg
	return nil
}

func (c *cli) openApp(cmd *cobra.Command) (*app.App, error) {
	a, err := app.New(cmd.Context(), c.cfg, app.Options{
		Version:   Version,
		LogWriter: cmd.ErrOrStderr(),
		Output:    cmd.OutOrStdout(),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to start: %w", err)
	}
	return a, nil
}
