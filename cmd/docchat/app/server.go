// Package app wires the docchat command line entry point.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/docchat/cmd/docchat/app/options"
	"github.com/kart-io/docchat/pkg/app"
)

// Name is the service name and the default config file base name.
const Name = "docchat"

const commandDesc = `docchat answers questions about uploaded documents.

It chunks and embeds uploads, retrieves the passages most relevant to each
question, and generates grounded answers over a prioritized model chain.
Session transcripts are persisted so follow-up questions keep their context.`

// NewApp assembles the docchat server command.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := signalContext()
		srv, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return srv.Run(ctx)
	}
}

// signalContext cancels on SIGINT or SIGTERM. A second signal aborts the
// process without waiting for graceful shutdown.
func signalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		<-sigs
		os.Exit(1)
	}()
	return ctx
}
