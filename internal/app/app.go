// Package app provides the top-level application lifecycle for the registry
// process. It wires together all dependencies (ledger, caches, blob storage,
// oracle, adaptor units, API server) and starts the goroutines the configured
// operating mode needs.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harborfi/vaultguard/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, starts the corresponding goroutines, and blocks until the
// context is cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.attestStartup(ctx, deps)

	mode := strings.ToLower(a.cfg.Mode)
	switch mode {
	case "server":
		return a.ServerMode(ctx, deps)
	case "archive":
		return a.ArchiveMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// attestStartup signs a process-start attestation under the governance
// credential and records it in the audit log, so operators can verify which
// key holder brought the process up. Skipped when no credential is loaded.
func (a *App) attestStartup(ctx context.Context, deps *Dependencies) {
	if deps.Signer == nil {
		return
	}

	now := time.Now().UTC()
	owner := deps.Registry.Owner()
	sig, err := deps.Signer.Attest("process.start", owner, now.Unix())
	if err != nil {
		a.logger.WarnContext(ctx, "startup attestation failed", slog.String("error", err.Error()))
		return
	}
	if err := deps.AuditStore.Log(ctx, "governance.attestation", map[string]any{
		"action":    "process.start",
		"attester":  deps.Signer.Address().Hex(),
		"subject":   owner.Hex(),
		"timestamp": now.Unix(),
		"signature": sig,
	}); err != nil {
		a.logger.WarnContext(ctx, "startup attestation not recorded", slog.String("error", err.Error()))
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
