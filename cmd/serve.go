package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/config"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/server"
	"github.com/teemow/meetscribe/internal/web"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

const startupTimeout = 5 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		httpAddr       string
		sessionTimeout time.Duration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Serve the meeting browser as a local web application. Every browser gets
its own session; pages update live over a websocket while lists load.

Also serves:
  - Health endpoints: /healthz, /readyz, /healthz/detailed
  - Prometheus metrics on a dedicated port (--metrics-addr) when the
    prometheus exporter is used (METRICS_EXPORTER, default prometheus)

Tracing is configured with TRACING_EXPORTER and OTEL_EXPORTER_OTLP_ENDPOINT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			return runServe(cmd, cfg, sessionTimeout, MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    cfg.MetricsAddr,
			})
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", config.DefaultHTTPAddr, "Web UI address. Can also use MEETSCRIBE_HTTP_ADDR env var.")
	cmd.Flags().DurationVar(&sessionTimeout, "session-timeout", web.DefaultSessionTimeout, "Idle time after which a browser session is dropped")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use MEETSCRIBE_METRICS_ADDR env var.")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, sessionTimeout time.Duration, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
		metricsConfig.Enabled = false
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg, slog.LevelInfo)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("Error during instrumentation shutdown", slog.Any("error", err))
		}
	}()
	metrics := provider.Metrics()

	// Start metrics server if enabled and the exporter is scrapeable
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() && provider.ServesPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		// Stop the metrics server on every return path, including failed startup below
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down metrics server", slog.Any("error", err))
			}
		}()

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(startupTimeout):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	client, err := newAPIClient(cfg, logger, metrics)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx, client)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("Error shutting down server context", slog.Any("error", err))
		}
	}()

	sessions := web.NewSessionManager(func() *app.App {
		return app.New(client,
			app.WithLogger(logger),
			app.WithMetrics(metrics),
			app.WithLocation(time.Local))
	},
		web.WithSessionTimeout(sessionTimeout),
		web.WithSessionLogger(logger),
		web.WithSessionMetrics(metrics),
	)

	health := server.NewHealthChecker(serverContext)
	health.SetSessionCounter(sessions)

	webServer, err := web.NewServer(web.Config{
		Addr:     cfg.HTTPAddr,
		Sessions: sessions,
		Health:   health,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		sessions.Stop()
		return fmt.Errorf("failed to create web server: %w", err)
	}

	webReady := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := webServer.Start(webReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-webReady:
	case err := <-serverDone:
		sessions.Stop()
		return fmt.Errorf("web server failed to start: %w", err)
	}

	out := cmd.OutOrStdout()
	printf(out, "meetscribe web UI listening on http://%s\n", webServer.Addr())
	printf(out, "  Backend: %s\n", client.BaseURL())
	printf(out, "  Health endpoints: /healthz, /readyz, /healthz/detailed\n")
	if metricsServer != nil {
		printf(out, "  Metrics endpoint: http://%s/metrics\n", metricsServer.Addr())
	}

	var runErr error
	select {
	case <-shutdownCtx.Done():
		printf(out, "Shutdown signal received, stopping web server...\n")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("web server stopped with error: %w", err)
		}
	}

	health.SetReady(false)
	ctx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	if err := webServer.Shutdown(ctx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("error shutting down web server: %w", err))
	}
	sessions.Stop()

	if runErr == nil {
		printf(out, "Web server gracefully stopped\n")
	}
	return runErr
}
