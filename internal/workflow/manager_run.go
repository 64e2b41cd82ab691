package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"scrivo/internal/logging"
	"scrivo/internal/queue"
)

// Start begins background processing. The queue loop always runs; the watch
// loop runs only when a watch directory is configured.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.processor == nil {
		m.mu.Unlock()
		return errors.New("workflow processor not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)

	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc(m.cfg.Workflow.MaintenanceSchedule, func() { m.runMaintenance(runCtx) }); err != nil {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("schedule maintenance: %w", err)
	}

	m.cancel = cancel
	m.cron = cronRunner
	m.running = true

	watch := strings.TrimSpace(m.cfg.Paths.WatchDir) != ""
	loops := 1
	if watch {
		loops++
	}
	m.wg.Add(loops)
	m.mu.Unlock()

	go m.runQueue(runCtx)
	if watch {
		go m.runWatch(runCtx)
	}
	cronRunner.Start()

	return nil
}

// Stop terminates background processing, waits for in-flight work to wind
// down, and returns interrupted items to pending for the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	cronRunner := m.cron
	m.running = false
	m.cancel = nil
	m.cron = nil
	m.mu.Unlock()

	cancel()
	if cronRunner != nil {
		<-cronRunner.Stop().Done()
	}
	m.wg.Wait()
	m.releaseProcessingItems()
}

func (m *Manager) runQueue(ctx context.Context) {
	defer m.wg.Done()
	logger := logging.NewComponentLogger(m.logger, "workflow-queue")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		item, err := m.store.NextPending(ctx)
		if err != nil {
			m.handleNextItemError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleNextItemError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to fetch next queue item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.waitForItemOrShutdown(ctx)
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}

// releaseProcessingItems returns items interrupted by shutdown to pending.
// The daemon holds an exclusive instance lock, so any processing row at this
// point belongs to a loop that just stopped.
func (m *Manager) releaseProcessingItems() {
	ctx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRelease()

	logger := logging.NewComponentLogger(m.logger, "workflow-queue")
	items, err := m.store.ItemsByStatus(ctx, queue.StatusProcessing)
	if err != nil {
		logger.Warn("could not list in-flight items during shutdown",
			logging.Error(err),
			logging.String(logging.FieldEventType, "shutdown_release_failed"),
			logging.String(logging.FieldErrorHint, "stuck items are reclaimed on the next start"),
		)
		return
	}
	released := 0
	for _, item := range items {
		item.Status = queue.StatusPending
		item.LastHeartbeat = nil
		item.ErrorMessage = queue.DaemonStopReason
		item.SetProgress("Pending", queue.DaemonStopReason, 0)
		if err := m.store.Update(ctx, item); err != nil {
			logger.Warn("failed to release in-flight item",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.Error(err),
			)
			continue
		}
		released++
	}
	if released > 0 {
		logger.Info("released in-flight items for next start", logging.Int("count", released))
	}
}
