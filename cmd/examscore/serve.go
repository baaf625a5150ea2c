package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-score/internal/metrics"
	"exam-score/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := metrics.New()
			mw := metrics.NewWrapper(m)

			p, err := a.newPipeline(mw)
			if err != nil {
				return err
			}

			srv, err := server.New(p, a.serverConfig(), mw, prometheus.DefaultGatherer)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
				log.Info().Msg("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}
}

func (a *app) serverConfig() server.Config {
	s := a.settings
	return server.Config{
		Port:            s.HTTPPort,
		MaxUploadBytes:  s.MaxUploadBytes(),
		DefaultLanguage: s.DefaultLanguage,
		AllowedOrigins:  s.AllowedOrigins,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		RequestTimeout:  s.RequestTimeout,
		Batch:           a.batchOptions(),
	}
}
