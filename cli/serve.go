package cli

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
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/petaltools/daemon"
	petalotel "github.com/petal-labs/petaltools/otel"
	"github.com/petal-labs/petaltools/tool"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP daemon",
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", daemon.DefaultPort, "Listen port")
	cmd.Flags().String("host", daemon.DefaultHost, "Listen host")
	cmd.Flags().String("store-path", "", "Path to SQLite registration history (default: ~/.petaltools/petaltools.db)")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP trace collector endpoint")
	cmd.Flags().String("monitor-schedule", "", "Cron schedule for availability rechecks (UTC)")
	cmd.Flags().Bool("no-monitor", false, "Disable background availability rechecks")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Int64("max-body", daemon.DefaultMaxBodyBytes, "Max request body size in bytes")

	return cmd
}

// applyServeFlags lets explicitly set flags override the config file.
func applyServeFlags(cmd *cobra.Command, cfg *daemon.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint, _ = flags.GetString("otlp-endpoint")
	}
	if flags.Changed("monitor-schedule") {
		cfg.Monitor.Schedule, _ = flags.GetString("monitor-schedule")
	}
	if noMonitor, _ := flags.GetBool("no-monitor"); noMonitor {
		disabled := false
		cfg.Monitor.Enabled = &disabled
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	maxBody, _ := cmd.Flags().GetInt64("max-body")

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, &s.config)
	if err := s.config.Validate(); err != nil {
		return exitError(exitValidation, "%v", err)
	}
	cfg := s.config
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := petalotel.SetupTracing(ctx, petalotel.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     cmd.Root().Version,
	})
	if err != nil {
		return exitError(exitRuntime, "initializing tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces failed", "error", err)
		}
	}()

	toolObserver, err := petalotel.NewToolObserver(
		otelapi.GetMeterProvider().Meter(petalotel.ScopeName),
		otelapi.GetTracerProvider().Tracer(petalotel.ScopeName),
	)
	if err != nil {
		return exitError(exitRuntime, "initializing tool observability: %v", err)
	}
	tool.SetObserver(toolObserver)
	defer tool.SetObserver(nil)

	storePath, err := resolveStorePath(cmd, cfg)
	if err != nil {
		return err
	}
	history, err := tool.NewSQLiteHistoryStore(storePath)
	if err != nil {
		return exitError(exitRuntime, "opening registration history: %v", err)
	}
	defer func() {
		_ = history.Close()
	}()

	coordinator, err := startCoordinator(cmd, s, history)
	if err != nil {
		return err
	}

	var monitor *tool.Monitor
	if cfg.MonitorEnabled() {
		monitor, err = tool.NewMonitor(tool.MonitorConfig{
			Integrations: coordinator.Integrations(),
			Schedule:     cfg.Monitor.Schedule,
			Logger:       logger,
		})
		if err != nil {
			return exitError(exitValidation, "creating availability monitor: %v", err)
		}
		if err := monitor.Start(ctx); err != nil {
			return exitError(exitRuntime, "starting availability monitor: %v", err)
		}
		defer func() {
			_ = monitor.Stop(context.Background())
		}()
	}

	daemonServer, err := daemon.NewServer(daemon.ServerConfig{
		Coordinator:  coordinator,
		History:      history,
		Monitor:      monitor,
		Logger:       logger,
		MaxBodyBytes: maxBody,
	})
	if err != nil {
		return exitError(exitRuntime, "creating daemon server: %v", err)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      daemonServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("daemon listening", "addr", addr, "operations", coordinator.Registry().Len())
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "petaltools daemon listening on %s\n", addr)
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}
