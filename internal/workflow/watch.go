package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scrivo/internal/logging"
	"scrivo/internal/media"
	"scrivo/internal/queue"
	"scrivo/internal/resultcache"
)

func (m *Manager) runWatch(ctx context.Context) {
	defer m.wg.Done()
	logger := logging.NewComponentLogger(m.logger, "workflow-watch")
	logger.Info("watching for new media",
		logging.String("watch_dir", m.cfg.Paths.WatchDir),
		logging.Duration("scan_interval", m.watchInterval),
	)

	// Scan immediately so files present at startup enqueue without waiting a
	// full interval.
	m.scanWatchDir(ctx, logger)

	ticker := time.NewTicker(m.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scanWatchDir(ctx, logger)
		}
	}
}

func (m *Manager) scanWatchDir(ctx context.Context, logger *slog.Logger) {
	paths, err := media.Discover(m.cfg.Paths.WatchDir, m.cfg.Input.AllowedExtensions)
	if err != nil {
		logging.WarnWithContext(logger, "watch directory scan failed", "watch_scan_failed",
			logging.Error(err),
			logging.String("watch_dir", m.cfg.Paths.WatchDir),
			logging.String(logging.FieldErrorHint, "check the watch directory exists and is readable"),
			logging.String(logging.FieldImpact, "new files will not be picked up until the next scan"))
		return
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}
		item, err := m.enqueueDiscovered(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("failed to enqueue discovered file",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		if item == nil {
			continue
		}
		logger.Info("new file queued",
			logging.String(logging.FieldEventType, "file_detected"),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("path", path),
		)
		if m.notifier != nil {
			if err := m.notifier.NotifyFileDetected(ctx, item.Title); err != nil {
				logger.Debug("file detected notification failed", logging.Error(err))
			}
		}
	}
}

// enqueueDiscovered adds path to the queue unless an item with the same
// fingerprint already exists. It returns the new item, or nil when the file
// was seen before.
func (m *Manager) enqueueDiscovered(ctx context.Context, path string) (*queue.Item, error) {
	fingerprint := m.fingerprint(path)
	existing, err := m.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}
	return m.store.NewFile(ctx, path, fingerprint)
}

// fingerprint keys a queue item by the same identity the result cache uses,
// so a requeued file shares its cached transcript. The cache method is
// preferred when wired because it logs degraded keys.
func (m *Manager) fingerprint(path string) string {
	if m.cache != nil {
		return m.cache.Fingerprint(path)
	}
	return resultcache.Fingerprint(path)
}
