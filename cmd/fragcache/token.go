package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/fragcache/auth"
)

func (c *cli) newTokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token",
		Long:  "token signs a bearer token with FRAGCACHE_ADMIN_JWT_SECRET.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.ValidateAdmin(); err != nil {
				return err
			}
			if len(roles) == 0 {
				roles = []string{c.cfg.Admin.Role}
			}
			if subject == "" {
				subject = os.Getenv("USER")
			}
			if subject == "" {
				subject = "operator"
			}

			tok, err := auth.SignToken([]byte(c.cfg.Admin.JWTSecret), auth.TokenSpec{
				Subject:  subject,
				Roles:    roles,
				Issuer:   c.cfg.Admin.JWTIssuer,
				Audience: c.cfg.Admin.JWTAudience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (default: $USER)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles to grant (default: FRAGCACHE_ADMIN_ROLE)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
