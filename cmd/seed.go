package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/telbank/voiceline/internal/config"
	"github.com/telbank/voiceline/pkg/store"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo customers, accounts, and cards into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("seed: database URL required (VOICELINE_DATABASE_URL)")
			}
			return store.SeedPostgres(cmd.Context(), cfg.DatabaseURL, store.DemoData())
		},
	}
}
