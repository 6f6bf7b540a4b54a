// Package main is the entry point for the marqueed banner daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marquee/internal/config"
	"marquee/internal/daemon"
	"marquee/internal/render"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/marquee/marqueed.toml)")
	headless := flag.Bool("headless", false, "Run without the terminal preview surface (commands logged only)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("marqueed version", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *headless {
		runHeadless(ctx, cfg, *configPath, logger)
		return
	}
	runWithPreview(ctx, cancel, cfg, *configPath, logger)
}

func runHeadless(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) {
	d, err := daemon.New(cfg, configPath, render.NewLogging(logger), logger)
	if err != nil {
		logger.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon exited", "error", err)
		os.Exit(1)
	}
}

// runWithPreview renders banners in the terminal. The preview owns the
// foreground; the pipeline runs behind it and stops when the preview
// quits.
func runWithPreview(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, configPath string, logger *slog.Logger) {
	term := render.NewTerminal(logger)

	d, err := daemon.New(cfg, configPath, term, logger)
	if err != nil {
		logger.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}
	term.OnClick = d.Click

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		term.Quit()
	}()

	if err := term.Run(); err != nil {
		logger.Error("preview surface failed", "error", err)
	}
	cancel()

	if err := <-errCh; err != nil {
		logger.Error("daemon exited", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
