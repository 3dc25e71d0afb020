package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/server"
	"github.com/harborfi/vaultguard/internal/server/handler"
	"github.com/harborfi/vaultguard/internal/server/ws"
)

// ServerMode runs the HTTP + WebSocket API surface.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs only the periodic audit archival loop.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires archive.enabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API surface and the archival loop together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps)
	}
	if deps.Archiver != nil {
		a.startArchiveLoop(ctx, g, deps)
	}
	return g.Wait()
}

// startServer adds the HTTP server and WebSocket hub goroutines to the group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.EventBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app: ws hub: %w", err)
		}
		return nil
	})

	resolve := handler.UnitResolver(func(ref common.Address) (domain.Adaptor, bool) {
		unit, ok := deps.Units[ref]
		return unit, ok
	})

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.logger, deps.HealthChecks),
		Status:     handler.NewStatusHandler(deps.Registry, a.cfg.Mode, startedAt),
		Governance: handler.NewGovernanceHandler(deps.Registry, a.logger),
		Adaptors:   handler.NewAdaptorHandler(deps.Registry, resolve, a.logger),
		Positions:  handler.NewPositionHandler(deps.Registry, a.logger),
		Funds:      handler.NewFundHandler(deps.Registry, a.logger),
		Addresses:  handler.NewAddressHandler(deps.Registry, a.logger),
		Audit:      handler.NewAuditHandler(deps.AuditStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKeys:     parseAPIKeys(a.cfg.Server.APIKeys),
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Duration(a.cfg.Server.RateWindowSec) * time.Second,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startArchiveLoop adds the periodic audit archival goroutine to the group.
// Each pass archives entries older than the retention window, serialized
// across processes through the lock manager.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	interval := a.cfg.Archive.Interval.Duration
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		a.logger.InfoContext(ctx, "archive loop started",
			"interval", interval.String(),
			"retention_days", a.cfg.Archive.RetentionDays,
		)

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.runArchive(ctx, deps, retention)
			}
		}
	})
}

// runArchive performs one archival pass. Failures are logged, not fatal; the
// next tick retries.
func (a *App) runArchive(ctx context.Context, deps *Dependencies, retention time.Duration) {
	unlock, err := deps.LockManager.Acquire(ctx, "archive:audit", 5*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.DebugContext(ctx, "archive pass skipped, lock held elsewhere")
		} else {
			a.logger.WarnContext(ctx, "archive lock failed", "error", err.Error())
		}
		return
	}
	defer unlock()

	before := time.Now().UTC().Add(-retention)
	count, err := deps.Archiver.ArchiveAudit(ctx, before)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive pass failed", "error", err.Error())
		return
	}
	if count > 0 {
		a.logger.InfoContext(ctx, "archive pass complete",
			"entries", count,
			"before", before.Format(time.RFC3339),
		)
	}
}

// parseAPIKeys converts the config key table to principal addresses. Invalid
// principals were already rejected by config validation.
func parseAPIKeys(raw map[string]string) map[string]common.Address {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]common.Address, len(raw))
	for key, principal := range raw {
		out[key] = common.HexToAddress(principal)
	}
	return out
}
