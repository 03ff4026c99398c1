package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamemaster-scheduling/pickup/internal/database"
	"github.com/gamemaster-scheduling/pickup/internal/seed"
)

func newResetCommand(opts *rootOptions) *cobra.Command {
	var (
		withSeed bool
		seedFile string
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate all tables, optionally loading seed data",
		Long: `Drop and recreate all tables.

With --seed the demo data is loaded afterwards: from --seed-file, else from
SEED_FILE, else the built-in data set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			db, err := database.InitDB(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer db.Close()

			var f *seed.File
			if withSeed {
				path := seedFile
				if path == "" {
					path = cfg.SeedFile
				}
				if f, err = seed.Load(path); err != nil {
					return err
				}
			}

			sum, err := seed.Reset(cmd.Context(), db, f, time.Now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tables recreated")
			if f != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d games, %d RSVPs\n", sum.Users, sum.Games, sum.RSVPs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "load seed data after the reset")
	cmd.Flags().StringVar(&seedFile, "seed-file", "", "YAML seed file (defaults to SEED_FILE or the built-in data)")
	return cmd
}
