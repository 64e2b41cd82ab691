package workflow

import (
	"context"
	"errors"
	"strings"

	"scrivo/internal/logging"
	"scrivo/internal/queue"
	"scrivo/internal/services"
)

// handleFailure classifies a pipeline error, persists the resulting item
// state, and notifies. Validation and configuration problems need a human, so
// they park the item for review; a cancellation returns it to pending for a
// later retry; everything else marks it failed.
func (m *Manager) handleFailure(ctx context.Context, item *queue.Item, procErr error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-queue"))

	resolved := services.FailureStatus(procErr)
	message := failureMessage(procErr)

	switch resolved {
	case queue.StatusReview:
		item.SetReview(message)
	case queue.StatusPending:
		item.Status = queue.StatusPending
		item.ErrorMessage = message
		item.LastHeartbeat = nil
		item.SetProgress("Pending", message, 0)
	default:
		item.SetFailed(message)
	}

	logger.Error("item processing failed",
		logging.Error(procErr),
		logging.String(logging.FieldEventType, "item_failure"),
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.String("user_message", services.UserMessage(procErr, services.UserContext{FilePath: item.SourcePath})),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist item failure")
		} else {
			logger.Error("failed to persist item failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.notifyFailure(ctx, item, resolved, procErr, message)
	m.checkQueueCompletion(ctx)
}

func failureMessage(err error) string {
	if err == nil {
		return "processing failed without error detail"
	}
	if message := strings.TrimSpace(err.Error()); message != "" {
		return message
	}
	return "processing failed"
}
