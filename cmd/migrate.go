package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/telbank/voiceline/internal/config"
	"github.com/telbank/voiceline/pkg/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("migrate: database URL required (VOICELINE_DATABASE_URL)")
			}
			return store.Migrate(cmd.Context(), cfg.DatabaseURL)
		},
	}
}
