package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/ballot-consensus-backend/internal/app"
)

func resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Run a single resolver pass and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			report, runErr := a.Services.Resolver.RunOnce(ctx)
			if report != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(report)
			}
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.ShutdownTimeout())
			defer cancel()
			return errors.Join(runErr, a.Shutdown(sctx))
		},
	}
}
