// Package main is the entry point for the toastd notification daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"toast/internal/config"
	"toast/internal/daemon"
	"toast/internal/scene/layershell"
	"toast/internal/scene/x11"
)

const appID = "dev.toast.toastd"

// Build-time variables (set via ldflags)
var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/toast/toastd.toml)")
	backend := flag.String("backend", "", "Display backend (auto, x11, layershell; overrides config)")
	replace := flag.Bool("replace", false, "Take over the bus name from a running notification daemon")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("toastd version", version)
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		if p, err := config.DaemonConfigPath(); err == nil {
			path = p
		}
	}

	cfg, err := config.LoadDaemonConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "toastd:", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if *backend != "" {
		cfg.Display.Backend = *backend
		if err := cfg.Validate(); err != nil {
			logger.Error("invalid backend flag", "error", err)
			os.Exit(1)
		}
	}

	switch resolveBackend(cfg.Display.Backend) {
	case config.BackendLayerShell:
		runLayerShell(cfg, path, *replace, logger)
	case config.BackendX11:
		runX11(cfg, path, *replace, logger)
	default:
		logger.Error("no usable display backend",
			"backend", cfg.Display.Backend,
			"wayland", os.Getenv("WAYLAND_DISPLAY") != "",
			"x11", os.Getenv("DISPLAY") != "")
		os.Exit(1)
	}
}

// resolveBackend picks the concrete backend for "auto" from the session
// environment: layer-shell on Wayland, X11 otherwise.
func resolveBackend(name string) string {
	if name != "" && name != config.BackendAuto {
		return name
	}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return config.BackendLayerShell
	}
	if os.Getenv("DISPLAY") != "" {
		return config.BackendX11
	}
	return ""
}

// runX11 drives the daemon on a plain X11 connection. The backend owns
// its own event loop, so main just blocks until a signal arrives.
func runX11(cfg *config.DaemonConfig, configPath string, replace bool, logger *slog.Logger) {
	logger.Info("starting toastd", "version", version, "backend", config.BackendX11)

	sc, err := x11.New(x11.Options{
		Monitor: cfg.Display.Monitor,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to start X11 backend", "error", err)
		os.Exit(1)
	}

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: configPath,
		Scene:      sc,
		Logger:     logger,
		Version:    version,
		ReplaceBus: replace,
	})
	if err != nil {
		logger.Error("failed to assemble daemon", "error", err)
		sc.Close()
		os.Exit(1)
	}

	if err := d.Start(context.Background()); err != nil {
		logger.Error("failed to start daemon", "error", err)
		sc.Close()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	d.Stop()
	sc.Close()
	logger.Info("toastd stopped")
}

// runLayerShell drives the daemon inside a GTK application whose main
// loop doubles as the scene loop.
func runLayerShell(cfg *config.DaemonConfig, configPath string, replace bool, logger *slog.Logger) {
	logger.Info("starting toastd", "version", version, "backend", config.BackendLayerShell)

	app := adw.NewApplication(appID, 0)

	var (
		sc      *layershell.Backend
		d       *daemon.Daemon
		running atomic.Bool
	)

	// Daemon.Stop posts to the GTK loop and waits, so it must run off
	// the GTK thread while the loop is still dispatching. The signal
	// handler is therefore the one stop path; quitting the application
	// afterwards just tears down the scene.
	stop := func() {
		if !running.CompareAndSwap(true, false) {
			return
		}
		d.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		stop()
		glib.IdleAdd(func() {
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		resolveColorScheme(cfg)

		var err error
		sc, err = layershell.New(layershell.Options{
			App:     &app.Application,
			Monitor: cfg.Display.Monitor,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to start layer-shell backend", "error", err)
			app.Quit()
			return
		}

		d, err = daemon.New(daemon.Options{
			Config:     cfg,
			ConfigPath: configPath,
			Scene:      sc,
			Logger:     logger,
			Version:    version,
			ReplaceBus: replace,
		})
		if err != nil {
			logger.Error("failed to assemble daemon", "error", err)
			app.Quit()
			return
		}

		if err := d.Start(context.Background()); err != nil {
			logger.Error("failed to start daemon", "error", err)
			app.Quit()
			return
		}
		running.Store(true)

		// GTK applications exit when their last window closes; popups
		// come and go, so hold the application open with a hidden one.
		keepAlive := gtk.NewWindow()
		keepAlive.SetApplication(&app.Application)
		keepAlive.SetDefaultSize(1, 1)
		keepAlive.SetDecorated(false)
		keepAlive.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if sc != nil {
			sc.Close()
		}
	})

	// GTK never sees the process flags; they were consumed above.
	if status := app.Run(os.Args[:1]); status != 0 {
		logger.Error("application exited with error", "status", status)
		os.Exit(status)
	}

	logger.Info("toastd stopped")
}

// resolveColorScheme rewrites the "system" color scheme to whatever
// libadwaita reports, so every popup agrees on one answer.
func resolveColorScheme(cfg *config.DaemonConfig) {
	if cfg.Theme.ColorScheme != string(config.ColorSchemeSystem) {
		return
	}
	if adw.StyleManagerGetDefault().Dark() {
		cfg.Theme.ColorScheme = string(config.ColorSchemeDark)
	} else {
		cfg.Theme.ColorScheme = string(config.ColorSchemeLight)
	}
}
