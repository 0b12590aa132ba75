package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcall/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Starts the dispatcher and exposes it as a JSON API over HTTP, with Prometheus metrics on /metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				g.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, g.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			a.refreshRemotes(ctx)

			api := httpapi.New(a.dispatcher,
				httpapi.WithCatalog(a.catalog),
				httpapi.WithArtifacts(a.artifacts),
				httpapi.WithGatherer(a.metrics),
				httpapi.WithLogger(a.logger.With("component", "http")),
			)
			srv := &http.Server{
				Addr:              g.cfg.HTTP.Addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", srv.Addr, "servers", a.dispatcher.Servers().Names())
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
					return srv.Close()
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides http.addr)")
	return cmd
}
