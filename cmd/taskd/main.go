// Command taskd serves the task and status collections over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micro-nova/taskd/internal/api"
	"github.com/micro-nova/taskd/internal/app"
	"github.com/micro-nova/taskd/internal/auth"
	"github.com/micro-nova/taskd/internal/config"
	"github.com/micro-nova/taskd/internal/events"
	"github.com/micro-nova/taskd/internal/identity"
	"github.com/micro-nova/taskd/internal/logging"
	"github.com/micro-nova/taskd/internal/models"
	"github.com/micro-nova/taskd/internal/store"
	"github.com/micro-nova/taskd/internal/zeroconf"
)

func main() {
	if err := run(); err != nil {
		slog.Error("taskd: fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath   = flag.String("config", "", "YAML config file")
		addr      = flag.String("addr", "", "HTTP listen address (overrides config)")
		dataDir   = flag.String("data-dir", "", "data directory (overrides config)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		noMDNS    = flag.Bool("no-mdns", false, "disable mDNS advertisement")
		serialize = flag.Bool("serialize-mutations", false, "serialize read-modify-write cycles within this process")
		version   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	if *version {
		fmt.Println(identity.GetVersion())
		return nil
	}

	ll := logging.Setup(slog.LevelInfo)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *debug {
		cfg.Debug = true
	}
	if *noMDNS {
		cfg.MDNS.Enabled = false
	}
	if *serialize {
		cfg.SerializeMutations = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Debug {
		ll.Set(slog.LevelDebug)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := app.New(cfg)
	bus := events.NewBus()

	// Writes from taskctl or any other process reach SSE clients too.
	go watch(ctx, bus, models.CollectionTasks, a.Tasks)
	go watch(ctx, bus, models.CollectionStatuses, a.Statuses)

	authSvc, err := auth.NewService(cfg.KeysPath())
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	defer authSvc.Close()
	if authSvc.IsOpenMode() {
		slog.Warn("taskd: no API keys configured, running in open mode", "keys", cfg.KeysPath())
	}

	go a.Backups().Start(ctx)

	if cfg.MDNS.Enabled {
		port, err := zeroconf.PortFromAddr(cfg.Addr)
		if err != nil {
			return err
		}
		zc := zeroconf.New(cfg.MDNS.Name, port, zeroconf.Info{
			Version: identity.GetVersion(),
			Auth:    !authSvc.IsOpenMode(),
		})
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("taskd: zeroconf failed", "err", err)
			}
		}()
	}

	router := api.NewRouter(a.Ctrl, authSvc, bus, api.Options{CORS: cfg.CORS, RateLimit: cfg.RateLimit})
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("taskd: listening", "addr", cfg.Addr, "data", cfg.DataDir, "version", identity.GetVersion())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("taskd: shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("taskd: server shutdown error", "err", err)
	}
	slog.Info("taskd: shutdown complete")
	return nil
}

type watchedStore interface {
	events.Counter
	Path() string
}

func watch(ctx context.Context, bus *events.Bus, name string, s watchedStore) {
	if err := bus.WatchCollection(ctx, name, s.Path(), s, store.DefaultWatchDebounce); err != nil {
		slog.Warn("taskd: cannot watch collection", "collection", name, "err", err)
	}
}
