package file

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafeSuffix marks an output suffix that could place the output
// outside the source directory or onto the source itself.
var ErrUnsafeSuffix = errors.New("unsafe output suffix")

// TranslatedPath derives the output path next to src,
// e.g. ("/subs/ep1.srt", "_translated") -> "/subs/ep1_translated.srt".
// The suffix is not checked; use OutputPath for untrusted suffixes.
func TranslatedPath(src, suffix string) string {
	if src == "" {
		return src
	}
	ext := filepath.Ext(src)
	if ext == "" {
		ext = ".srt"
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(filepath.Dir(src), base+suffix+ext)
}

// ValidateSuffix rejects empty suffixes and suffixes carrying path
// separators or "..".
func ValidateSuffix(suffix string) error {
	switch {
	case strings.TrimSpace(suffix) == "":
		return fmt.Errorf("%w: suffix is empty", ErrUnsafeSuffix)
	case strings.ContainsAny(suffix, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrUnsafeSuffix, suffix)
	case strings.Contains(suffix, ".."):
		return fmt.Errorf("%w: %q contains \"..\"", ErrUnsafeSuffix, suffix)
	}
	return nil
}

// OutputPath is TranslatedPath for a validated suffix. It never returns
// the source path itself.
func OutputPath(src, suffix string) (string, error) {
	if err := ValidateSuffix(suffix); err != nil {
		return "", err
	}
	out := TranslatedPath(src, suffix)
	if filepath.Clean(out) == filepath.Clean(src) {
		return "", fmt.Errorf("%w: output %s would replace the source", ErrUnsafeSuffix, out)
	}
	return out, nil
}

// HasSuffix reports whether path is already an output carrying suffix.
func HasSuffix(path, suffix string) bool {
	if suffix == "" {
		return false
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.HasSuffix(base, suffix)
}
