package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/ballot-consensus-backend/internal/app"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			pg, err := app.OpenDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := app.Migrate(pg.DB()); err != nil {
				return err
			}
			log.Info("schema up to date")
			return nil
		},
	}
}
