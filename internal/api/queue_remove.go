package api

import (
	"context"

	"scrivo/internal/queue"
)

// QueueRemoveService captures queue operations needed by per-item remove workflows.
type QueueRemoveService interface {
	Describe(ctx context.Context, id int64) (*QueueItem, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
}

type RemoveItemOutcome string

const (
	RemoveItemRemoved    RemoveItemOutcome = "removed"
	RemoveItemNotFound   RemoveItemOutcome = "not_found"
	RemoveItemProcessing RemoveItemOutcome = "processing"
)

type RemoveItemResult struct {
	ID      int64             `json:"id"`
	Outcome RemoveItemOutcome `json:"outcome"`
}

type RemoveItemsResult struct {
	RemovedCount int64              `json:"removedCount"`
	Items        []RemoveItemResult `json:"items"`
}

// RemoveItemsByID removes queue items one-by-one so each ID can report its
// own outcome. In-flight items are refused; stop the daemon or wait for the
// item to finish first.
func RemoveItemsByID(ctx context.Context, service QueueRemoveService, ids []int64) (RemoveItemsResult, error) {
	result := RemoveItemsResult{Items: make([]RemoveItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return RemoveItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemNotFound})
			continue
		}
		if status, ok := queue.ParseStatus(item.Status); ok && status == queue.StatusProcessing {
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemProcessing})
			continue
		}
		removed, err := service.Remove(ctx, []int64{id})
		if err != nil {
			return RemoveItemsResult{}, err
		}
		if removed > 0 {
			result.RemovedCount += removed
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemRemoved})
			continue
		}
		result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemNotFound})
	}
	return result, nil
}
