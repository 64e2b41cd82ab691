package api

import (
	"context"
	"testing"
)

type fakeRemoveService struct {
	items   map[int64]*QueueItem
	removed []int64
}

func (f *fakeRemoveService) Describe(_ context.Context, id int64) (*QueueItem, error) {
	return f.items[id], nil
}

func (f *fakeRemoveService) Remove(_ context.Context, ids []int64) (int64, error) {
	f.removed = append(f.removed, ids...)
	return int64(len(ids)), nil
}

func TestRemoveItemsByIDOutcomes(t *testing.T) {
	service := &fakeRemoveService{
		items: map[int64]*QueueItem{
			1: {ID: 1, Status: "completed"},
			2: {ID: 2, Status: "processing"},
		},
	}

	result, err := RemoveItemsByID(context.Background(), service, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("RemoveItemsByID: %v", err)
	}
	if result.RemovedCount != 1 {
		t.Fatalf("RemovedCount = %d, want 1", result.RemovedCount)
	}

	want := map[int64]RemoveItemOutcome{
		1: RemoveItemRemoved,
		2: RemoveItemProcessing,
		3: RemoveItemNotFound,
	}
	for _, entry := range result.Items {
		if entry.Outcome != want[entry.ID] {
			t.Fatalf("item %d outcome = %q, want %q", entry.ID, entry.Outcome, want[entry.ID])
		}
	}
	if len(service.removed) != 1 || service.removed[0] != 1 {
		t.Fatalf("remove calls = %v, want only id 1", service.removed)
	}
}
