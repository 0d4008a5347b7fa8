package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/sparkq/internal/server"
)

// serveCommand returns the serve subcommand
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the generator over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (default from config)",
			},
			&cli.BoolFlag{
				Name:  "lint",
				Usage: "lint generated SQL by default",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := a.Config.Server
			if addr := cmd.String("addr"); addr != "" {
				cfg.Address = addr
			}

			handler := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				Level:           log.GetLevel(),
			})

			srv := server.New(a.Generator, server.Options{
				Address:      cfg.Address,
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
				CORSOrigins:  cfg.CORSOrigins,
				Lint:         cmd.Bool("lint") || a.Config.Defaults.Lint,
				Version:      a.Version,
				Logger:       slog.New(handler),
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				log.Info("shutting down server")
				return srv.Shutdown(5 * time.Second)
			}
		},
	}
}
