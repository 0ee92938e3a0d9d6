// expandd is the background daemon that watches the keyboard, tracks
// window focus, and performs text expansions (spec.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pabueco/typls/internal/audit"
	"github.com/pabueco/typls/internal/capture"
	"github.com/pabueco/typls/internal/daemonconfig"
	"github.com/pabueco/typls/internal/expansion"
	"github.com/pabueco/typls/internal/ipc"
	"github.com/pabueco/typls/internal/logging"
	"github.com/pabueco/typls/internal/platform"
	"github.com/pabueco/typls/internal/settings"
	"github.com/pabueco/typls/internal/windowwatch"
)

// Version is set via ldflags during build.
var Version = "dev"

var configFlag = flag.String("config", "", "path to daemon.toml (defaults to the platform state directory)")

func main() {
	// SetWindowsHookEx/CGEventTapCreate require the hook to run on the
	// thread that installed it; Linux's evdev reader doesn't care but
	// locking unconditionally keeps one code path for every platform.
	runtime.LockOSThread()

	flag.Parse()

	cfg, err := daemonconfig.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "expandd: load daemon config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "expandd: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "expandd: create state directories: %v\n", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	format := logging.FormatText
	if cfg.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logger, err := logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.LogOutput,
		FilePath:   cfg.LogFilePath,
		MaxSize:    100,
		MaxAge:     30,
		MaxBackups: 5,
		Compress:   true,
		Component:  "expandd",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "expandd: init logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Close()

	crashHandler := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  daemonconfig.StateDir(),
		Version:   Version,
		Component: "expandd",
	})
	defer crashHandler.RecoverGoroutine()

	logger.Info("starting expandd", "version", Version, "socket", cfg.SocketPath, "settings", cfg.SettingsPath)

	keyHook, typer, winProbe, err := platform.New()
	if err != nil {
		logger.Error("platform adapter initialization failed", "error", err)
		os.Exit(1)
	}

	settingsLoader := settings.NewLoader(cfg.SettingsPath)
	initial, err := settingsLoader.Load()
	if err != nil {
		logger.Error("failed to load settings, using defaults", "error", err)
		initial = settings.Default()
	}
	store := settings.NewStore(initial)

	settingsLoader.OnChange(func(s settings.Settings) {
		store.Replace(s)
		logger.Info("settings reloaded")
	})
	if err := settingsLoader.Watch(); err != nil {
		logger.Warn("settings file watch failed, hot-reload disabled", "error", err)
	}
	defer settingsLoader.Close()
	go func() {
		for err := range settingsLoader.Errors() {
			logger.Warn("settings reload error", "error", err)
		}
	}()

	windowWatcher := windowwatch.New(winProbe)
	windowWatcher.Start()
	defer windowWatcher.Stop()

	machine := capture.New(store.Current)
	engine := expansion.New(store.Current, func() expansion.WindowSnapshot {
		return expansion.WindowSnapshot{ProcessPath: windowWatcher.Current().ProcessPath}
	}, typer)

	var historyProvider ipc.HistoryProvider
	if cfg.AuditEnabled {
		auditStore, err := audit.Open(cfg.AuditDatabasePath)
		if err != nil {
			logger.Warn("expansion history trail disabled", "error", err)
		} else {
			defer auditStore.Close()
			historyProvider = auditStore
			engine.OnExpand(func(sig capture.Signal, exp settings.Expansion) {
				if err := auditStore.Record(audit.Entry{
					Timestamp:   time.Now(),
					Abbr:        exp.Abbr,
					ExpansionID: exp.ID,
					ProcessPath: windowWatcher.Current().ProcessPath,
				}); err != nil {
					logger.Warn("failed to record expansion history", "error", err)
				}
			})
		}
	}

	signals := make(chan capture.Signal, 64)
	go engine.Run(signals)

	handler := ipc.NewDaemonHandler(store, cfg.SettingsPath, func() error {
		s, err := settingsLoader.Load()
		if err != nil {
			return err
		}
		store.Replace(s)
		return nil
	}, historyProvider)

	server := ipc.NewServer(cfg.SocketPath, handler)
	if err := server.Start(); err != nil {
		logger.Error("failed to start control socket", "error", err)
		os.Exit(1)
	}
	defer server.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	sink := func(ev platform.Event) {
		if sig := machine.Handle(ev); sig != nil {
			signals <- *sig
		}
	}

	if err := keyHook.Listen(ctx, sink); err != nil {
		logger.Error("key hook stopped", "error", err)
	}
	close(signals)
	logger.Info("expandd stopped")
}
