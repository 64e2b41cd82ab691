package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"scrivo/internal/logging"
	"scrivo/internal/queue"
)

// onItemStarted marks the beginning of a processing run. The first item after
// an idle period opens a run and emits a batch-started notification covering
// everything queued at that moment.
func (m *Manager) onItemStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-queue"))
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not read queue stats")
			return
		}
		logging.WarnWithContext(logger, "queue stats unavailable; start notification skipped", "queue_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "batch start notification will not be sent"))
		return
	}

	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	if err := m.notifier.NotifyBatchStarted(ctx, countActiveItems(stats)); err != nil {
		logger.Debug("batch start notification failed", logging.Error(err))
	}
}

// checkQueueCompletion closes the active run once no pending or processing
// items remain and reports what the run produced.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-queue"))
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not check queue completion")
			return
		}
		logging.WarnWithContext(logger, "queue stats unavailable; completion notification skipped", "queue_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "batch completion notification will not be sent"))
		return
	}
	if countActiveItems(stats) > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	processed := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed] + stats[queue.StatusReview]
	if err := m.notifier.NotifyBatchCompleted(ctx, processed, failed, duration); err != nil {
		logger.Debug("batch completion notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyItemCompleted(ctx context.Context, item *queue.Item, outputs int, elapsed time.Duration) {
	if m.notifier == nil {
		return
	}
	title := item.Title
	if title == "" {
		title = filepath.Base(item.SourcePath)
	}
	if err := m.notifier.NotifyItemCompleted(ctx, title, outputs, elapsed); err != nil {
		logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-queue"))
		logger.Debug("item completion notification failed", logging.Error(err))
	}
}

func (m *Manager) notifyFailure(ctx context.Context, item *queue.Item, resolved queue.Status, procErr error, message string) {
	if m.notifier == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-queue"))
	filename := filepath.Base(item.SourcePath)

	var err error
	switch resolved {
	case queue.StatusReview:
		err = m.notifier.NotifyReviewRequired(ctx, filename, message)
	case queue.StatusPending:
		// Cancellation is not worth a push notification.
		return
	default:
		err = m.notifier.NotifyError(ctx, procErr, filename)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}

func countActiveItems(stats map[queue.Status]int) int {
	return stats[queue.StatusPending] + stats[queue.StatusProcessing]
}
