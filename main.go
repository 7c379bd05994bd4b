package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/cannedoxygen/mainframe/internal/agent"
	"github.com/cannedoxygen/mainframe/internal/applog"
	"github.com/cannedoxygen/mainframe/internal/config"
	"github.com/cannedoxygen/mainframe/internal/event"
	"github.com/cannedoxygen/mainframe/internal/hub"
	"github.com/cannedoxygen/mainframe/internal/notify"
	"github.com/cannedoxygen/mainframe/internal/parse"
	"github.com/cannedoxygen/mainframe/internal/router"
	"github.com/cannedoxygen/mainframe/internal/server"
	"github.com/cannedoxygen/mainframe/internal/sim"
	"github.com/cannedoxygen/mainframe/internal/tailer"
	"github.com/cannedoxygen/mainframe/internal/ui"
	"github.com/cannedoxygen/mainframe/internal/wsclient"
)

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
		cfg = config.Defaults()
	}

	// watch subcommand: terminal viewer for a running server.
	if len(os.Args) >= 2 && os.Args[1] == "watch" {
		if err := runWatch(cfg, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cfg config.Config) error {
	logger, logCloser, err := applog.Init(applog.InitConfig{
		LogDir:   cfg.LogDir,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		logger = slog.Default() // falls back to default (stderr)
	} else {
		defer logCloser.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := agent.NewRegistry(cfg.Agents)
	h := hub.New(reg, cfg.BufferSize, logger)
	go h.Run(ctx)

	rtr := router.New(reg, h, logger)
	notifier := notify.New(notify.Config{
		Enabled: cfg.Notifications.Enabled,
		Webhook: cfg.Notifications.Webhook,
		NtfyURL: cfg.Notifications.NtfyURL,
	}, logger)

	srv := server.New(h, server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		TLS: server.TLSConfig{
			Mode:     cfg.Server.TLS.Mode,
			CertFile: cfg.Server.TLS.CertFile,
			KeyFile:  cfg.Server.TLS.KeyFile,
			CacheDir: cfg.Server.TLS.CacheDir,
		},
	}, logger)
	srvErrs, err := srv.Start()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	simulate := cfg.Simulate || os.Getenv("MAINFRAME_SIMULATE") == "true"
	var tailErrs <-chan error
	if simulate {
		simulator := sim.New(reg, rtr, logger)
		simulator.Start()
		defer simulator.Stop()
	} else {
		t := tailer.New(cfg.Watcher.FilePath, logger)
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("start tailer: %w", err)
		}
		defer t.Stop()
		tailErrs = t.Errors()
		logger.Info("watching log file", "path", cfg.Watcher.FilePath)

		go func() {
			for line := range t.Lines() {
				if e := parse.Parse(line); e != nil {
					rtr.Route(*e)
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-srvErrs:
		return fmt.Errorf("server: %w", err)
	case err := <-tailErrs:
		// Viewers get a sanitized frame; the alert carries the detail.
		logger.Error("log watch failed", "err", err)
		notifier.Alert("log watch failed", err.Error())
		rtr.Route(event.Event{
			Kind:    event.KindSystemCritical,
			Content: "log monitoring stopped: agent activity is no longer being observed",
		})
		return fmt.Errorf("tailer: %w", err)
	}
}

func runWatch(cfg config.Config, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires a terminal")
	}

	url := cfg.Client.URL
	if len(args) >= 1 {
		url = args[0]
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: applog.ParseLevel(cfg.LogLevel),
	}))

	client := wsclient.New(wsclient.Config{
		URL:                 url,
		ReconnectInterval:   time.Duration(cfg.Client.ReconnectIntervalMs) * time.Millisecond,
		ReconnectMultiplier: cfg.Client.ReconnectMultiplier,
		MaxAttempts:         cfg.Client.ReconnectAttempts,
	}, logger)

	return ui.NewViewer(client, logger).Run()
}
