package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"scrivo/internal/analysis"
	"scrivo/internal/logging"
	"scrivo/internal/pipeline"
	"scrivo/internal/queue"
	"scrivo/internal/services"
)

func (m *Manager) processItem(ctx context.Context, queueLogger *slog.Logger, item *queue.Item) error {
	requestID := uuid.NewString()
	itemCtx := withItemContext(ctx, item.ID, requestID)
	logger := logging.WithContext(itemCtx, queueLogger)

	m.setLastItem(item)
	m.onItemStarted(itemCtx)

	started := time.Now()
	logger.Info("item processing started",
		logging.String(logging.FieldEventType, "item_start"),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)),
		logging.String("title", strings.TrimSpace(item.Title)),
	)

	outcome, execErr := m.executeWithHeartbeat(itemCtx, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) && itemCtx.Err() != nil {
			logger.Debug("item interrupted by shutdown")
			return execErr
		}
		m.handleFailure(itemCtx, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	m.completeItem(itemCtx, logger, item, outcome, time.Since(started))
	return nil
}

// executeWithHeartbeat runs the pipeline while a heartbeat goroutine keeps
// the item claim fresh. The heartbeat stops before the claim result is
// persisted so a final update never races a heartbeat write.
func (m *Manager) executeWithHeartbeat(ctx context.Context, item *queue.Item) (*pipeline.Outcome, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	outcome, err := m.processor.Process(ctx, item.SourcePath, pipeline.ProcessOptions{
		Progress: m.recordProgress(ctx, item),
	})
	hbCancel()
	hbWG.Wait()
	return outcome, err
}

// recordProgress persists pipeline stage transitions so status readers see
// live progress. Persistence failures never interrupt processing.
func (m *Manager) recordProgress(ctx context.Context, item *queue.Item) pipeline.ProgressFunc {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-queue"))
	return func(stage string, current, total int) {
		percent := float64(0)
		if total > 0 {
			percent = float64(current) / float64(total) * 100
		}
		label := progressLabel(stage)
		item.SetProgress(label, fmt.Sprintf("%s (%d%%)", label, int(percent)), percent)
		if err := m.store.UpdateProgress(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Debug("progress update failed", logging.Error(err))
		}
	}
}

func (m *Manager) completeItem(ctx context.Context, logger *slog.Logger, item *queue.Item, outcome *pipeline.Outcome, elapsed time.Duration) {
	defer outcome.Close()

	outputs := make(map[string]string, len(outcome.OutputPaths)+1)
	for _, path := range outcome.OutputPaths {
		format := strings.TrimPrefix(filepath.Ext(path), ".")
		if format == "" {
			format = filepath.Base(path)
		}
		outputs[format] = path
	}

	if m.analyzer != nil {
		report, err := m.analyzer.AnalyzeOutcome(ctx, outcome, analysis.Request{})
		if err != nil {
			logging.WarnWithContext(logger, "transcript analysis failed", "analysis_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the analysis LLM configuration"),
				logging.String(logging.FieldImpact, "item completes without an analysis report"))
		} else {
			outputs["analysis"] = report.Path
		}
	}

	if err := item.SetOutputPaths(outputs); err != nil {
		logger.Warn("failed to record output paths", logging.Error(err))
	}

	utterances := outcome.UtteranceCount()
	summary := fmt.Sprintf("%d utterances, %d documents", utterances, len(outputs))
	if outcome.FromCache {
		summary += " (from cache)"
	}
	item.Status = queue.StatusCompleted
	item.LastHeartbeat = nil
	item.SetProgressComplete("Completed", summary)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist completion")
		} else {
			logger.Error("failed to persist completion", logging.Error(err))
			m.setLastError(err)
		}
		return
	}

	logger.Info("item processing completed",
		logging.String(logging.FieldEventType, "item_complete"),
		logging.Int("utterances", utterances),
		logging.Int("documents", len(outputs)),
		logging.Bool("from_cache", outcome.FromCache),
		logging.Duration("item_duration", elapsed),
	)

	m.setLastItem(item)
	m.notifyItemCompleted(ctx, item, len(outputs), elapsed)
	m.checkQueueCompletion(ctx)
}

func withItemContext(ctx context.Context, itemID int64, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithItemID(ctx, itemID)
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

// progressLabel turns a pipeline stage name into a display label, e.g.
// "cache_write" becomes "Cache Write".
func progressLabel(stage string) string {
	if stage == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(stage, "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
