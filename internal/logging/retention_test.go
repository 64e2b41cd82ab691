package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("log"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestCleanupOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "scrivo-20240101T000000.000Z.log", 20*24*time.Hour)
	fresh := writeAgedFile(t, dir, "scrivo-20260101T000000.000Z.log", time.Hour)
	other := writeAgedFile(t, dir, "notes.txt", 20*24*time.Hour)

	removed := CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "scrivo-*.log"})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be pruned", old)
	}
	for _, path := range []string{fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
}

func TestCleanupOldLogsHonorsExclusions(t *testing.T) {
	dir := t.TempDir()
	pointer := writeAgedFile(t, dir, "scrivod.log", 20*24*time.Hour)

	removed := CleanupOldLogs(NewNop(), 7, RetentionTarget{
		Dir:     dir,
		Pattern: "scrivod.log",
		Exclude: []string{pointer},
	})
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(pointer); err != nil {
		t.Fatalf("excluded file should survive: %v", err)
	}
}

func TestCleanupOldLogsDisabledByZeroRetention(t *testing.T) {
	dir := t.TempDir()
	old := writeAgedFile(t, dir, "scrivo-session.log", 90*24*time.Hour)

	if removed := CleanupOldLogs(NewNop(), 0, RetentionTarget{Dir: dir, Pattern: "*.log"}); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatalf("retention disabled; file should survive: %v", err)
	}
}
