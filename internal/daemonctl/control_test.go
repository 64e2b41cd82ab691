package daemonctl_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scrivo/internal/daemonctl"
	"scrivo/internal/queue"
	"scrivo/internal/testsupport"
)

// missingSocket returns a socket path that no daemon is listening on.
func missingSocket(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "scrivo.sock")
}

func TestBuildStatusSnapshotOfflineFallsBackToStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	base := testsupport.BaseDir(cfg)
	testsupport.NewFile(t, store, filepath.Join(base, "a.mp3"), "fp-a")
	failed := testsupport.NewFile(t, store, filepath.Join(base, "b.mp3"), "fp-b")
	failed.SetFailed("conversion failed")
	if err := store.Update(context.Background(), failed); err != nil {
		t.Fatalf("store.Update: %v", err)
	}

	snapshot, err := daemonctl.BuildStatusSnapshot(context.Background(), missingSocket(t), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}

	if snapshot.Running {
		t.Fatal("expected daemon to be reported as not running")
	}
	if got := snapshot.QueueStats[string(queue.StatusPending)]; got != 1 {
		t.Errorf("pending count = %d, want 1", got)
	}
	if got := snapshot.QueueStats[string(queue.StatusFailed)]; got != 1 {
		t.Errorf("failed count = %d, want 1", got)
	}
	if got, want := snapshot.QueueDBPath, cfg.QueueDatabasePath(); got != want {
		t.Errorf("QueueDBPath = %q, want %q", got, want)
	}

	if len(snapshot.Dependencies) != 2 {
		t.Fatalf("dependency count = %d, want 2", len(snapshot.Dependencies))
	}
	for _, dep := range snapshot.Dependencies {
		if !dep.Available {
			t.Errorf("dependency %s reported unavailable: %s", dep.Name, dep.Detail)
		}
	}
	if snapshot.DependencySummary.Severity != "ok" {
		t.Errorf("dependency summary severity = %q, want ok (%s)",
			snapshot.DependencySummary.Severity, snapshot.DependencySummary.Detail)
	}

	if len(snapshot.SystemChecks) == 0 {
		t.Fatal("expected system check lines")
	}
	first := snapshot.SystemChecks[0]
	if first.Label != "Scrivo" || first.Severity != "warn" {
		t.Errorf("first system check = %+v, want Scrivo/warn", first)
	}
	if !strings.Contains(first.Detail, "Not running") {
		t.Errorf("first system check detail = %q, want not-running hint", first.Detail)
	}

	if len(snapshot.PathChecks) != 4 {
		t.Fatalf("path check count = %d, want 4", len(snapshot.PathChecks))
	}
	for _, line := range snapshot.PathChecks {
		if line.Severity != "ok" {
			t.Errorf("path check %s = %q: %s", line.Label, line.Severity, line.Detail)
		}
	}
}

func TestBuildStatusSnapshotRequiresConfig(t *testing.T) {
	if _, err := daemonctl.BuildStatusSnapshot(context.Background(), missingSocket(t), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestProcessInfoWhenSocketAbsent(t *testing.T) {
	running, pid, err := daemonctl.ProcessInfo(missingSocket(t))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if running || pid != 0 {
		t.Errorf("ProcessInfo = (%v, %d), want (false, 0)", running, pid)
	}
}

func TestWaitForShutdownWhenSocketAbsent(t *testing.T) {
	start := time.Now()
	if err := daemonctl.WaitForShutdown(missingSocket(t), 5*time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("WaitForShutdown took %v, want immediate return", elapsed)
	}
}

func TestEnsureStartedLaunchFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-daemon")
	_, err := daemonctl.EnsureStarted(missingSocket(t), missing, daemonctl.LaunchOptions{}, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected launch error for missing executable")
	}
	if !strings.Contains(err.Error(), "launch daemon") {
		t.Errorf("error = %v, want launch daemon failure", err)
	}
}

func TestDeriveLogDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if got, want := daemonctl.DeriveLogDir("/run/scrivo/scrivod.lock", "", nil), "/run/scrivo"; got != want {
		t.Errorf("lock hint: got %q, want %q", got, want)
	}
	if got, want := daemonctl.DeriveLogDir("", "", cfg), cfg.Paths.LogDir; got != want {
		t.Errorf("config hint: got %q, want %q", got, want)
	}
	if got, want := daemonctl.DeriveLogDir("", "/var/lib/scrivo/queue.db", nil), "/var/lib/scrivo"; got != want {
		t.Errorf("queue db hint: got %q, want %q", got, want)
	}
	if got := daemonctl.DeriveLogDir("", "", nil); got != "" {
		t.Errorf("no hints: got %q, want empty", got)
	}
}

func TestForceKillProcessRefusesCurrentProcess(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "scrivod.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	_, err := daemonctl.ForceKillProcess(pidPath, filepath.Join(dir, "scrivod.lock"), 0)
	if err == nil {
		t.Fatal("expected refusal for current process pid")
	}
	if !strings.Contains(err.Error(), "refusing to kill current process") {
		t.Errorf("error = %v, want current-process refusal", err)
	}
}

func TestForceKillProcessWithoutPID(t *testing.T) {
	dir := t.TempDir()
	_, err := daemonctl.ForceKillProcess(filepath.Join(dir, "scrivod.pid"), filepath.Join(dir, "scrivod.lock"), 0)
	if err == nil {
		t.Fatal("expected error when no pid can be determined")
	}
	if !strings.Contains(err.Error(), "unable to determine daemon pid") {
		t.Errorf("error = %v, want missing-pid failure", err)
	}
}
