package workflow

import (
	"context"
	"errors"
	"time"

	"scrivo/internal/config"
	"scrivo/internal/logging"
	"scrivo/internal/workdir"
)

// runMaintenance is invoked on the configured cron schedule. It reclaims
// items whose worker stopped heartbeating, prunes cache entries whose source
// file disappeared, and sweeps stale scratch files out of the work directory.
func (m *Manager) runMaintenance(ctx context.Context) {
	logger := logging.NewComponentLogger(m.logger, "workflow-maintenance")

	if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.WarnWithContext(logger, "maintenance reclaim failed", "maintenance_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "stuck items wait for the next maintenance run"))
	}

	if m.cache != nil {
		if pruned := m.cache.Prune(); pruned > 0 {
			logger.Info("pruned orphaned cache entries", logging.Int("count", pruned))
		}
	}

	result := workdir.SweepStale(ctx, m.cfg.Paths.WorkDir, workdir.Options{
		MaxAge:  time.Duration(m.cfg.Workflow.StaleWorkHours) * time.Hour,
		Exclude: queueDatabaseExclusions(m.cfg),
	}, logger)
	if len(result.Removed) > 0 {
		logger.Info("swept stale work entries", logging.Int("count", len(result.Removed)))
	}
}

// queueDatabaseExclusions returns the queue database and its sqlite sidecar
// files, which live inside the work directory by default and must survive
// every sweep.
func queueDatabaseExclusions(cfg *config.Config) []string {
	dbPath := cfg.QueueDatabasePath()
	return []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"}
}
