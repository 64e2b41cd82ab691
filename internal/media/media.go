// Package media validates input files and derives output names and display
// titles for them.
package media

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// suspiciousPatterns are path fragments rejected outright. They cover
// traversal attempts plus shell and template metacharacters that have no
// business in a media path handed to external tools.
var suspiciousPatterns = []string{
	"..", "//", "~", "%00", "${", "<", ">", "|", ";", "&", "$(", "`",
}

// SuspiciousPattern returns the first rejected fragment found in path.
func SuspiciousPattern(path string) (string, bool) {
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// Extension returns the lowercase extension of path without the leading dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// HasAllowedExtension reports whether path ends in one of the allowed
// extensions. Comparison is case-insensitive.
func HasAllowedExtension(path string, allowed []string) bool {
	ext := Extension(path)
	if ext == "" {
		return false
	}
	for _, candidate := range allowed {
		if ext == strings.ToLower(strings.TrimPrefix(candidate, ".")) {
			return true
		}
	}
	return false
}

// ValidatePath checks that path is non-empty, free of suspicious fragments,
// and carries an allowed media extension. It does not require the file to
// exist; existence is the caller's concern.
func ValidatePath(path string, allowed []string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	if pattern, found := SuspiciousPattern(path); found {
		return fmt.Errorf("path %q contains forbidden sequence %q", path, pattern)
	}
	if !HasAllowedExtension(path, allowed) {
		return fmt.Errorf("extension %q is not an accepted media type", Extension(path))
	}
	return nil
}

// UniqueOutputName builds an output filename from the source stem, a short
// unique suffix, and the target extension. Repeated runs over the same source
// never collide.
func UniqueOutputName(sourcePath, extension string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	stem = sanitizeStem(stem)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	extension = strings.TrimPrefix(extension, ".")
	return fmt.Sprintf("%s_%s.%s", stem, suffix, extension)
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "media"
	}
	return out
}

var titleCaser = cases.Title(language.Und)

// DeriveTitle turns a file path into a human-readable display title:
// separators become spaces and each word is title-cased.
func DeriveTitle(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	replacer := strings.NewReplacer("_", " ", ".", " ", "-", " ")
	stem = replacer.Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return "Untitled"
	}
	return titleCaser.String(strings.ToLower(stem))
}

// Discover walks root and returns every media file with an allowed
// extension, sorted by path. Hidden files and directories are skipped.
func Discover(root string, allowed []string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if HasAllowedExtension(path, allowed) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", root, err)
	}
	sort.Strings(found)
	return found, nil
}
