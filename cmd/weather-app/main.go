package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rishi-o2/weather-app/internal/config"
	"github.com/rishi-o2/weather-app/internal/httpapi"
	"github.com/rishi-o2/weather-app/internal/observability"
	"github.com/rishi-o2/weather-app/internal/owm"
	"github.com/rishi-o2/weather-app/internal/realtime"
	"github.com/rishi-o2/weather-app/internal/render"
	"github.com/rishi-o2/weather-app/internal/tui"
	"github.com/rishi-o2/weather-app/internal/view"
)

const serviceName = "weather-app"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "weather-app:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, promHandler, tracer, err := observability.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer shutdownTelemetry()

	var fetcher view.Fetcher
	if cfg.Demo {
		slog.Info("demo mode, serving fixture data")
		fetcher = owm.NewFixture()
	} else {
		fetcher = owm.New(cfg.APIKey, owm.WithBaseURL(cfg.BaseURL), owm.WithTimeout(cfg.HTTPTimeout))
	}

	opts := []view.Option{
		view.WithLocation(cfg.Location),
		view.WithLogger(slog.Default()),
		view.WithStaleDiscard(cfg.DiscardStale),
	}
	var hub *realtime.Hub
	if cfg.StatusAddr != "" {
		opts = append(opts, view.WithOnChange(func(event string, s view.State) {
			hub.Broadcast(event, s)
		}))
	}
	ctrl := view.NewController(fetcher, opts...)

	var httpSrv *http.Server
	if cfg.StatusAddr != "" {
		hub = realtime.NewHub(ctrl.State)
		httpSrv = &http.Server{
			Addr:         cfg.StatusAddr,
			Handler:      httpapi.NewRouter(httpapi.NewServer(ctrl, hub), tracer, promHandler, cfg.CORSOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			slog.Info("status API started", "addr", cfg.StatusAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status API error", "error", err)
			}
		}()
	}

	renderer := render.New(render.Options{Glyphs: cfg.Glyphs})
	program := tea.NewProgram(tui.New(ctx, ctrl, renderer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		runErr = nil
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("shutting down status API")
		hub.Close()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}
	return runErr
}

// setupLogging points the default slog logger at file. The terminal belongs
// to the UI, so "-" is the only way to log to stderr and "" discards.
func setupLogging(level, file string) (func(), error) {
	var (
		w       io.Writer = io.Discard
		closeFn           = func() {}
	)
	switch file {
	case "":
	case "-":
		w = os.Stderr
	default:
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.ParseLogLevel(level)})
	slog.SetDefault(slog.New(h))
	return closeFn, nil
}
