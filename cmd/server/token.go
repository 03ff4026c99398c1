package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamemaster-scheduling/pickup/internal/auth"
	"github.com/gamemaster-scheduling/pickup/internal/config"
)

// newTokenCommand mints a bearer token for local development against
// AUTH_MODE=jwt.
func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		id  auth.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed development token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.AuthMode != config.AuthModeJWT {
				return errors.New("token requires AUTH_MODE=jwt")
			}
			if id.UserID <= 0 {
				return errors.New("--user must be a positive id")
			}
			token, err := auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer).Issue(id, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id.UserID, "user", 0, "user id (token subject)")
	cmd.Flags().StringVar(&id.Name, "name", "", "display name claim")
	cmd.Flags().StringVar(&id.Email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
