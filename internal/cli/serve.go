package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/shaiso/Textflow/internal/api"
	"github.com/shaiso/Textflow/internal/telemetry"
)

// NewServeCmd создаёт команду запуска HTTP API.
func NewServeCmd(env *Env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := env.Settings
			logger := env.Logger

			if cmd.Flags().Changed("addr") {
				s.API.Addr = addr
			}

			// Хранилище и брокер подключаются, только если настроены
			d, err := openDeps(ctx, s, logger, s.Store.Enabled(), s.MQ.Enabled())
			if err != nil {
				return err
			}
			defer d.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := telemetry.NewMetrics(reg)

			cfg := api.Config{
				Loader:       env.Loader(metrics),
				Store:        d.RunStore(),
				Events:       d.Events(),
				MaxBodyBytes: s.API.MaxBodyBytes,
				MetricsPath:  s.Metrics.Path,
				Logger:       logger,
			}
			if s.Metrics.Enabled {
				cfg.Gatherer = reg
			}

			server := &http.Server{
				Addr:              s.API.Addr,
				Handler:           api.NewHandler(cfg).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", s.API.Addr, "store", s.Store.Enabled(), "events", s.MQ.Enabled())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.API.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}

			logger.Info("stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from TEXTFLOW_API_ADDR)")

	return cmd
}
