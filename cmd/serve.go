package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/yungbote/ballot-consensus-backend/internal/app"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the resolver on its schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd)
		},
	}
}

func serveRun(cmd *cobra.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		log.Sync()
		return err
	}
	a.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error("server stopped", "error", runErr)
		}
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.ShutdownTimeout())
	defer cancel()
	return errors.Join(runErr, a.Shutdown(sctx))
}
