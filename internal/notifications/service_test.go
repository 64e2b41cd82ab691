package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scrivo/internal/testsupport"
)

type recordedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func (r *recorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.requests = append(r.requests, recordedRequest{
			title:    req.Header.Get("Title"),
			tags:     req.Header.Get("Tags"),
			priority: req.Header.Get("Priority"),
			body:     string(body),
		})
		r.mu.Unlock()
		status := r.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (r *recorder) take(t *testing.T) recordedRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		t.Fatal("expected a notification request")
	}
	return r.requests[len(r.requests)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newNtfyService(t *testing.T, rec *recorder, mutate func(items, batches, errs *bool)) (Service, func()) {
	t.Helper()
	server := httptest.NewServer(rec.handler())

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	if mutate != nil {
		mutate(&cfg.Notifications.Items, &cfg.Notifications.Batches, &cfg.Notifications.Errors)
	}
	return NewService(cfg), server.Close
}

func TestNoopWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = "  "

	svc := NewService(cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service without topic, got %T", svc)
	}
	if err := svc.NotifyBatchStarted(context.Background(), 3); err != nil {
		t.Fatalf("noop notify returned error: %v", err)
	}
}

func TestItemCompletedSendsTitleAndTags(t *testing.T) {
	rec := &recorder{}
	svc, done := newNtfyService(t, rec, nil)
	defer done()

	err := svc.NotifyItemCompleted(context.Background(), "standup.mp4", 2, 95*time.Second)
	if err != nil {
		t.Fatalf("NotifyItemCompleted returned error: %v", err)
	}

	got := rec.take(t)
	if got.title != "Scrivo - Transcribed" {
		t.Errorf("unexpected title %q", got.title)
	}
	if !strings.Contains(got.body, "standup.mp4") || !strings.Contains(got.body, "2 documents") {
		t.Errorf("unexpected body %q", got.body)
	}
	if !strings.Contains(got.tags, "completed") {
		t.Errorf("unexpected tags %q", got.tags)
	}
}

func TestBatchCompletedDistinguishesFailures(t *testing.T) {
	rec := &recorder{}
	svc, done := newNtfyService(t, rec, nil)
	defer done()

	if err := svc.NotifyBatchCompleted(context.Background(), 4, 0, 3*time.Minute); err != nil {
		t.Fatalf("clean batch: %v", err)
	}
	clean := rec.take(t)
	if clean.title != "Scrivo - Batch Complete" {
		t.Errorf("unexpected clean title %q", clean.title)
	}

	if err := svc.NotifyBatchCompleted(context.Background(), 3, 1, 3*time.Minute); err != nil {
		t.Fatalf("failed batch: %v", err)
	}
	withErrors := rec.take(t)
	if withErrors.title != "Scrivo - Batch Complete (with errors)" {
		t.Errorf("unexpected error title %q", withErrors.title)
	}
	if !strings.Contains(withErrors.body, "3 succeeded, 1 failed") {
		t.Errorf("unexpected body %q", withErrors.body)
	}
}

func TestErrorNotificationHighPriority(t *testing.T) {
	rec := &recorder{}
	svc, done := newNtfyService(t, rec, nil)
	defer done()

	err := svc.NotifyError(context.Background(), errors.New("disk full"), "saving output")
	if err != nil {
		t.Fatalf("NotifyError returned error: %v", err)
	}

	got := rec.take(t)
	if got.priority != "high" {
		t.Errorf("expected high priority, got %q", got.priority)
	}
	if !strings.Contains(got.body, "saving output") || !strings.Contains(got.body, "disk full") {
		t.Errorf("unexpected body %q", got.body)
	}
}

func TestGatesSilenceEventGroups(t *testing.T) {
	rec := &recorder{}
	svc, done := newNtfyService(t, rec, func(items, batches, errs *bool) {
		*items = false
		*batches = false
		*errs = false
	})
	defer done()

	ctx := context.Background()
	if err := svc.NotifyItemCompleted(ctx, "a.mp4", 1, time.Second); err != nil {
		t.Fatalf("item: %v", err)
	}
	if err := svc.NotifyBatchStarted(ctx, 2); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("x"), ""); err != nil {
		t.Fatalf("error: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected gated events to send nothing, got %d requests", rec.count())
	}

	// The test notification bypasses every gate.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected test notification to send, got %d requests", rec.count())
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	rec := &recorder{status: http.StatusForbidden}
	svc, done := newNtfyService(t, rec, nil)
	defer done()

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
