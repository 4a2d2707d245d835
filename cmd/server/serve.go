package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/sign-api/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	srv := server.NewServer(app.cfg, app.handler, app.log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := srv.Stop(context.Background()); err != nil {
			app.log.Error("shutdown failed", zap.Error(err))
			return err
		}
		return <-errc
	}
}
