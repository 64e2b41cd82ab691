package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testExtensions = []string{"mp4", "mp3", "wav", "mkv"}

func TestValidatePathAcceptsKnownMedia(t *testing.T) {
	for _, path := range []string{"meeting.mp4", "audio.MP3", "/data/calls/standup.wav"} {
		if err := ValidatePath(path, testExtensions); err != nil {
			t.Fatalf("ValidatePath(%q) = %v, want nil", path, err)
		}
	}
}

func TestValidatePathRejectsUnknownExtension(t *testing.T) {
	err := ValidatePath("notes.txt", testExtensions)
	if err == nil {
		t.Fatal("expected rejection for non-media extension")
	}
	if !strings.Contains(err.Error(), "txt") {
		t.Fatalf("error %q should name the extension", err)
	}
}

func TestValidatePathRejectsSuspiciousPatterns(t *testing.T) {
	cases := []string{
		"../etc/passwd.mp4",
		"movies//show.mp4",
		"~root/secret.mp4",
		"file%00.mp4",
		"clip${HOME}.mp4",
		"a<b.mp4",
		"a|b.mp4",
		"a;rm.mp4",
		"a&b.mp4",
		"a$(id).mp4",
		"a`id`.mp4",
	}
	for _, path := range cases {
		if err := ValidatePath(path, testExtensions); err == nil {
			t.Fatalf("ValidatePath(%q) accepted a suspicious path", path)
		}
	}
}

func TestValidatePathRejectsEmpty(t *testing.T) {
	if err := ValidatePath("  ", testExtensions); err == nil {
		t.Fatal("expected rejection for empty path")
	}
}

func TestUniqueOutputNameNeverCollides(t *testing.T) {
	first := UniqueOutputName("/data/meeting.mp4", "mp3")
	second := UniqueOutputName("/data/meeting.mp4", "mp3")

	if first == second {
		t.Fatalf("two generated names collide: %s", first)
	}
	for _, name := range []string{first, second} {
		if !strings.HasPrefix(name, "meeting_") {
			t.Fatalf("name %q should start with the source stem", name)
		}
		if !strings.HasSuffix(name, ".mp3") {
			t.Fatalf("name %q should end with the target extension", name)
		}
	}
}

func TestUniqueOutputNameSanitizesStem(t *testing.T) {
	name := UniqueOutputName("/data/weekly sync (q3).mp4", ".txt")
	if strings.ContainsAny(name, " ()") {
		t.Fatalf("name %q should not contain raw punctuation", name)
	}
	if !strings.HasSuffix(name, ".txt") {
		t.Fatalf("name %q should end in .txt", name)
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/data/weekly_team_sync.mp4", "Weekly Team Sync"},
		{"board-meeting.2024.mp3", "Board Meeting 2024"},
		{"ALLCAPS_RECORDING.wav", "Allcaps Recording"},
		{"...", "Untitled"},
	}
	for _, tc := range cases {
		if got := DeriveTitle(tc.path); got != tc.want {
			t.Fatalf("DeriveTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestDiscoverFindsMediaAndSkipsHidden(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	mustWrite("a.mp4")
	mustWrite("sub/b.wav")
	mustWrite("sub/notes.txt")
	mustWrite(".hidden/c.mp4")
	mustWrite(".partial.mp4")

	found, err := Discover(root, testExtensions)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	want := []string{
		filepath.Join(root, "a.mp4"),
		filepath.Join(root, "sub", "b.wav"),
	}
	if len(found) != len(want) {
		t.Fatalf("Discover found %v, want %v", found, want)
	}
	for i := range want {
		if found[i] != want[i] {
			t.Fatalf("Discover[%d] = %q, want %q", i, found[i], want[i])
		}
	}
}
