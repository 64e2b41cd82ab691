package cancel

import (
	"errors"
	"sync"
	"testing"

	"scrivo/internal/services"
)

func TestRequestSetsFlagAndReason(t *testing.T) {
	token := New()

	if token.IsRequested() {
		t.Fatal("new token should not be cancelled")
	}

	token.Request("user interrupt")

	if !token.IsRequested() {
		t.Fatal("expected token to report cancellation")
	}
	reason, ok := token.Reason()
	if !ok {
		t.Fatal("expected reason to be present")
	}
	if got, want := reason, "user interrupt"; got != want {
		t.Fatalf("reason = %q, want %q", got, want)
	}
}

func TestRequestKeepsFirstReason(t *testing.T) {
	token := New()
	token.Request("first")
	token.Request("second")

	reason, _ := token.Reason()
	if got, want := reason, "first"; got != want {
		t.Fatalf("reason = %q, want %q", got, want)
	}
}

func TestMetadataDefaults(t *testing.T) {
	token := New()

	if got := token.Metadata("batch", "none"); got != "none" {
		t.Fatalf("Metadata default = %v, want none", got)
	}

	token.SetMetadata("batch", 7)
	if got := token.Metadata("batch", "none"); got != 7 {
		t.Fatalf("Metadata = %v, want 7", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	token := New()
	token.Request("shutdown")
	token.SetMetadata("item", 3)

	token.Reset()

	if token.IsRequested() {
		t.Fatal("expected reset token to be active")
	}
	if reason, ok := token.Reason(); ok || reason != "" {
		t.Fatalf("reason after reset = %q, %v", reason, ok)
	}
	if got := token.Metadata("item", nil); got != nil {
		t.Fatalf("metadata after reset = %v, want nil", got)
	}
	if token.Err() != nil {
		t.Fatalf("Err after reset = %v, want nil", token.Err())
	}
}

func TestErrCarriesTypedMarkerAndReason(t *testing.T) {
	token := New()
	token.Request("queue stopped")

	err := token.Err()
	if err == nil {
		t.Fatal("expected error from cancelled token")
	}
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("Err = %v, want ErrCancelled marker", err)
	}
	if got, want := err.Error(), "operation cancelled: queue stopped"; got != want {
		t.Fatalf("Err message = %q, want %q", got, want)
	}
}

func TestConcurrentRequestAndCheck(t *testing.T) {
	token := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token.Request("race")
			token.SetMetadata("worker", 1)
			_ = token.IsRequested()
			_, _ = token.Reason()
		}()
	}
	wg.Wait()

	if !token.IsRequested() {
		t.Fatal("expected cancellation after concurrent requests")
	}
}
