package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/fragcache/admin"
	"github.com/jonwraymond/fragcache/auth"
)

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API",
		Long: "serve exposes clear and stats endpoints behind JWT auth, health checks and\n" +
			"prometheus metrics on FRAGCACHE_ADMIN_ADDR.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg
			if err := cfg.ValidateAdmin(); err != nil {
				return err
			}

			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(cmd.Context()) }()

			authn, err := auth.NewJWTAuthenticator(auth.JWTConfig{
				Issuer:   cfg.Admin.JWTIssuer,
				Audience: cfg.Admin.JWTAudience,
			}, []byte(cfg.Admin.JWTSecret))
			if err != nil {
				return err
			}

			handler := admin.NewHandler(admin.Config{
				Lookup:        a.Fragment,
				Authenticator: authn,
				Authorizer:    auth.RoleAuthorizer{Role: cfg.Admin.Role},
				Health:        a.Health,
				Metrics:       promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
				Logger:        a.Logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return admin.Serve(ctx, cfg.Admin.Addr, handler, cfg.Admin.ShutdownTimeout, a.Logger)
			})
			g.Go(func() error {
				return a.RunSweeper(ctx, cfg.Bolt.SweepInterval)
			})
			return g.Wait()
		},
	}
}
