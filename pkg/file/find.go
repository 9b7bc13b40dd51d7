package file

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FindRecentAfter walks dir and returns regular files modified after
// startTime, sorted by path. When exts is non-empty only files with one of
// those extensions (case-insensitive, with dot) are returned.
func FindRecentAfter(dir string, startTime time.Time, exts ...string) ([]string, error) {
	var recentFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(startTime) {
			recentFiles = append(recentFiles, path)
		}
		return nil
	})

	slices.Sort(recentFiles)
	return recentFiles, err
}
