package api

import "testing"

func TestSortQueueItemsNewestFirst(t *testing.T) {
	items := []QueueItem{
		{ID: 1, CreatedAt: "2026-02-01T10:00:00.000Z"},
		{ID: 3, CreatedAt: "2026-02-03T10:00:00.000Z"},
		{ID: 2, CreatedAt: "2026-02-02T10:00:00.000Z"},
	}

	sorted := SortQueueItemsNewestFirst(items)
	if sorted[0].ID != 3 || sorted[1].ID != 2 || sorted[2].ID != 1 {
		t.Fatalf("unexpected order: %v %v %v", sorted[0].ID, sorted[1].ID, sorted[2].ID)
	}
	if items[0].ID != 1 {
		t.Fatal("input slice should not be mutated")
	}
}

func TestSortQueueItemsBreaksTiesByID(t *testing.T) {
	items := []QueueItem{
		{ID: 4, CreatedAt: "2026-02-01T10:00:00.000Z"},
		{ID: 9, CreatedAt: "2026-02-01T10:00:00.000Z"},
	}

	sorted := SortQueueItemsNewestFirst(items)
	if sorted[0].ID != 9 {
		t.Fatalf("expected higher ID first on tie, got %d", sorted[0].ID)
	}
}

func TestSortQueueItemsEmpty(t *testing.T) {
	if sorted := SortQueueItemsNewestFirst(nil); sorted != nil {
		t.Fatalf("expected nil for empty input, got %v", sorted)
	}
}

func TestParseQueueTimeUnknownFormats(t *testing.T) {
	if !ParseQueueTime("").IsZero() {
		t.Fatal("empty value should parse to zero time")
	}
	if !ParseQueueTime("yesterday").IsZero() {
		t.Fatal("garbage value should parse to zero time")
	}
	if ParseQueueTime("2026-02-01T10:00:00Z").IsZero() {
		t.Fatal("RFC3339 value should parse")
	}
}
