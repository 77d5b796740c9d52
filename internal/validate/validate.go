// Package validate holds the input checks that guard the workspace boundary:
// session identifier shape, relative path safety, payload size limits, and
// the ignore list for OS/editor artifacts.
package validate

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLen caps a single chat message.
	MaxMessageLen = 10000
	// MaxFileSize caps one file's content in a file map.
	MaxFileSize = 1 << 20 // 1 MiB
)

var sessionIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

// Names that are silently skipped during both directions of file sync.
var ignoredNameRes = []*regexp.Regexp{
	regexp.MustCompile(`^\.DS_Store$`),
	regexp.MustCompile(`^Thumbs\.db$`),
	regexp.MustCompile(`^desktop\.ini$`),
	regexp.MustCompile(`^\._`), // macOS resource forks
	regexp.MustCompile(`^\.git`),
}

// SessionID reports whether id is a safe client-chosen session identifier:
// alphanumeric, dash, underscore, 1-100 characters.
func SessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}

// SanitizePath normalizes backslashes to forward slashes and strips leading
// separators. Normalization happens before validation, not instead of it.
func SanitizePath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimLeft(name, "/")
}

// Path reports whether name is safe to resolve inside root. Rejects empty
// names, absolute paths, null bytes, ".." segments, and anything whose
// resolved form escapes root.
func Path(name, root string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsRune(name, 0) {
		return false
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return false
		}
	}

	root = filepath.Clean(root)
	resolved := filepath.Join(root, filepath.FromSlash(name))
	return resolved == root || strings.HasPrefix(resolved, root+string(filepath.Separator))
}

// ShouldIgnore reports whether a file or directory name is a well-known
// OS/editor artifact that sync skips.
func ShouldIgnore(name string) bool {
	base := path.Base(SanitizePath(name))
	for _, re := range ignoredNameRes {
		if re.MatchString(base) {
			return true
		}
	}
	return false
}

// MessageText reports whether s is a usable chat message: non-empty and at
// most MaxMessageLen characters.
func MessageText(s string) bool {
	if s == "" {
		return false
	}
	return utf8.RuneCountInString(s) <= MaxMessageLen
}

// FileMap reports whether files is a usable path->content map: no empty
// keys, every value at most MaxFileSize. A nil or empty map is valid; the
// caller decides whether one is required.
func FileMap(files map[string]string) bool {
	for name, content := range files {
		if name == "" {
			return false
		}
		if len(content) > MaxFileSize {
			return false
		}
	}
	return true
}
