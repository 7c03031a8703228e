package daemon

import (
	"context"
	"log/slog"
	"time"
)

// Refresher re-reads an external source of truth and reports whether
// anything changed.
type Refresher interface {
	Refresh() (bool, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically pulls the display geometry so the desktop
// follows monitor and panel changes it is not notified about.
type Reconciler struct {
	interval time.Duration
	source   Refresher
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, source Refresher) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reconciler{
		interval: interval,
		source:   source,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	changed, err := r.source.Refresh()
	if err != nil {
		r.logger.Warn("reconciler: refresh failed", "error", err)
		return
	}
	if changed {
		r.logger.Debug("reconciler: display changed")
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
