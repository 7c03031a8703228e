// Package daemon runs the desktop, its IPC server and the helpers that
// keep it in step with the display and the configuration file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/webdesk/internal/config"
	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/drag"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/kvstore"
	"github.com/1broseidon/webdesk/internal/runtimepath"
	"github.com/1broseidon/webdesk/internal/viewport"
	"github.com/1broseidon/webdesk/internal/x11"
)

// Options configures a Daemon. Zero fields use the standard locations.
type Options struct {
	ConfigPath string
	SocketPath string
	PIDPath    string
	// Logger overrides the logger described by the config.
	Logger *slog.Logger
	// Scheduler overrides the timer source of the desktop.
	Scheduler drag.Scheduler
	// WatchConfig reloads automatically when the config file changes.
	WatchConfig bool
}

// Daemon owns one running desktop.
type Daemon struct {
	cfgPath string
	pidPath string
	logger  *slog.Logger

	mu  sync.Mutex
	cfg *config.Config

	store      kvstore.Store
	display    *x11.Connection
	oracle     viewport.Oracle
	desktop    *desktop.Desktop
	server     *ipc.Server
	reconciler *Reconciler
	watcher    *ConfigWatcher
}

// New loads the configuration and assembles every component. Nothing runs
// until Run is called.
func New(opts Options) (*Daemon, error) {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = p
	}
	res, err := config.LoadFromPath(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := res.Config

	logger := opts.Logger
	if logger == nil {
		logger = cfg.Logging.NewLogger(os.Stderr)
	}

	pidPath := opts.PIDPath
	if pidPath == "" {
		pidPath, err = runtimepath.PIDPath()
		if err != nil {
			return nil, err
		}
	}

	d := &Daemon{
		cfgPath: cfgPath,
		pidPath: pidPath,
		logger:  logger,
		cfg:     cfg,
	}

	d.store, err = openStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := d.buildOracle(cfg); err != nil {
		d.close()
		return nil, err
	}

	d.desktop = desktop.New(desktop.Config{
		Tuning:    tuningFrom(cfg),
		Oracle:    d.oracle,
		Store:     d.store,
		Icons:     cfg.DesktopIcons(),
		Scheduler: opts.Scheduler,
		Logger:    logger,
	})

	d.server, err = ipc.NewServer(ipc.ServerConfig{
		SocketPath:     opts.SocketPath,
		Desktop:        d.desktop,
		ViewportSource: string(cfg.Viewport.Source),
		Reload:         d.Reload,
		Logger:         logger,
	})
	if err != nil {
		d.close()
		return nil, err
	}

	if opts.WatchConfig {
		d.watcher, err = NewConfigWatcher(append(res.Files, cfgPath), d.reloadFromWatch, logger)
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err)
			d.watcher = nil
		}
	}

	logger.Info("daemon configured",
		"config", cfgPath,
		"viewport_source", cfg.Viewport.Source,
		"store", cfg.Store.Backend,
		"icons", len(cfg.Icons),
	)
	return d, nil
}

// tuningFrom extracts the runtime-adjustable settings.
func tuningFrom(cfg *config.Config) desktop.Tuning {
	return desktop.Tuning{
		Windows:        cfg.WindowOptions(),
		Grid:           cfg.GridSpecs(),
		DragThreshold:  cfg.Drag.Threshold,
		Suppression:    cfg.ClickSuppression(),
		ResizeDebounce: cfg.ResizeDebounce(),
		TileGap:        cfg.Windows.TileGap,
	}
}

func openStore(cfg *config.Config) (kvstore.Store, error) {
	if cfg.Store.Backend == config.StoreMemory {
		return kvstore.NewMemory(), nil
	}
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend == config.StoreSQLite {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		return kvstore.OpenSQLite(path)
	}
	return kvstore.NewDir(path)
}

func (d *Daemon) buildOracle(cfg *config.Config) error {
	if cfg.Viewport.Source != config.ViewportX11 {
		d.oracle = viewport.NewStatic(cfg.Viewport.Width, cfg.Viewport.Height)
		return nil
	}

	conn, err := x11.NewConnection(cfg.Viewport.Display)
	if err != nil {
		return err
	}
	oracle, err := x11.NewOracle(conn, d.logger)
	if err != nil {
		conn.Close()
		return err
	}
	d.display = conn
	d.oracle = oracle
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: cfg.PollInterval(),
		Logger:   d.logger,
	}, oracle)
	return nil
}

// Desktop returns the running desktop.
func (d *Daemon) Desktop() *desktop.Desktop { return d.desktop }

// Config returns the configuration currently in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (d *Daemon) Run(ctx context.Context) error {
	if err := writePIDFile(d.pidPath); err != nil {
		d.close()
		return err
	}
	defer removePIDFile(d.pidPath)
	defer d.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.desktop.Run(gctx) })
	g.Go(func() error { return d.server.Serve(gctx) })
	if d.reconciler != nil {
		g.Go(func() error {
			d.reconciler.Run(gctx)
			return nil
		})
	}
	if d.watcher != nil {
		g.Go(func() error { return d.watcher.Run(gctx) })
	}
	g.Go(func() error {
		d.handleSignals(gctx)
		return nil
	})

	d.logger.Info("webdesk daemon started", "socket", d.server.SocketPath(), "pid", os.Getpid())
	err := g.Wait()
	d.logger.Info("webdesk daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleSignals reloads on SIGHUP until ctx ends.
func (d *Daemon) handleSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			d.logger.Info("received SIGHUP, reloading config")
			if err := d.Reload(); err != nil {
				d.logger.Error("config reload failed", "error", err)
			}
		}
	}
}

func (d *Daemon) reloadFromWatch() {
	d.logger.Info("config file changed, reloading")
	if err := d.Reload(); err != nil {
		d.logger.Error("config reload failed", "error", err)
	}
}

// Reload re-reads the configuration file and applies the runtime tuning.
// The viewport source and the store backend only change on restart.
func (d *Daemon) Reload() error {
	res, err := config.LoadFromPath(d.cfgPath)
	if err != nil {
		return err
	}
	cfg := res.Config

	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	if cfg.Viewport.Source != old.Viewport.Source || cfg.Viewport.Display != old.Viewport.Display {
		d.logger.Warn("viewport source changes take effect after restart")
	}
	if cfg.Store != old.Store {
		d.logger.Warn("store changes take effect after restart")
	}

	tuning := tuningFrom(cfg)
	configured := cfg.DesktopIcons()
	if err := d.desktop.Do(context.Background(), func() {
		d.desktop.Retune(tuning, configured)
	}); err != nil {
		return err
	}

	if cfg.Viewport.Source == config.ViewportStatic &&
		(cfg.Viewport.Width != old.Viewport.Width || cfg.Viewport.Height != old.Viewport.Height) {
		size := geom.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height}
		if _, err := d.desktop.SetViewport(size); err != nil {
			d.logger.Warn("failed to apply configured viewport", "error", err)
		}
	}

	if d.watcher != nil {
		d.watcher.SetFiles(append(res.Files, d.cfgPath))
	}
	d.logger.Info("config reloaded", "files", len(res.Files))
	return nil
}

func (d *Daemon) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close store", "error", err)
		}
		d.store = nil
	}
	if d.display != nil {
		d.display.Close()
		d.display = nil
	}
}
