package api

import (
	"context"
	"errors"
	"testing"

	"scrivo/internal/queue"
)

type fakeReader struct {
	items   []*queue.Item
	stats   map[queue.Status]int
	listErr error
}

func (f *fakeReader) List(_ context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(statuses) == 0 {
		return f.items, nil
	}
	wanted := make(map[queue.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}
	var out []*queue.Item
	for _, item := range f.items {
		if _, ok := wanted[item.Status]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeReader) Stats(context.Context) (map[queue.Status]int, error) {
	return f.stats, nil
}

func (f *fakeReader) ItemByID(_ context.Context, id int64) (*queue.Item, error) {
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func TestQueueServiceListFiltersByStatus(t *testing.T) {
	reader := &fakeReader{items: []*queue.Item{
		{ID: 1, Status: queue.StatusPending},
		{ID: 2, Status: queue.StatusFailed},
	}}
	service := NewQueueService(reader)

	items, err := service.List(context.Background(), queue.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestQueueServiceListPropagatesError(t *testing.T) {
	service := NewQueueService(&fakeReader{listErr: errors.New("boom")})
	if _, err := service.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestQueueServiceStats(t *testing.T) {
	service := NewQueueService(&fakeReader{stats: map[queue.Status]int{queue.StatusPending: 4}})

	stats, err := service.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["pending"] != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestQueueServiceDescribeMissingItem(t *testing.T) {
	service := NewQueueService(&fakeReader{})

	item, err := service.Describe(context.Background(), 99)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for missing item, got %+v", item)
	}
}

func TestNewQueueServiceNilReader(t *testing.T) {
	if service := NewQueueService(nil); service != nil {
		t.Fatal("expected nil service for nil reader")
	}
}
