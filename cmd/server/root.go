package main

import (
	"github.com/spf13/cobra"

	"github.com/gamemaster-scheduling/pickup/internal/auth"
	"github.com/gamemaster-scheduling/pickup/internal/config"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Pickup game scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file read before the environment")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.envFile)
}

// newAuthenticator picks the identity source configured by AUTH_MODE.
func newAuthenticator(cfg *config.Config) auth.Authenticator {
	if cfg.AuthMode == config.AuthModeJWT {
		return auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	}
	return auth.HeaderAuthenticator{}
}
