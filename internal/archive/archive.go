// Package archive lays out the local video archive: one directory per device
// and channel, one file per downloaded segment named from its start time.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileExt is the extension given to downloaded segments.
	FileExt = ".mp4"

	fileTimeLayout = "2006-01-02_15.04.05"
)

// SegmentDir returns the directory for one device channel under root.
func SegmentDir(root, address string, channel int) string {
	return filepath.Join(root, address, fmt.Sprintf("camera%d", channel))
}

// EnsureDir creates the channel directory if it does not exist.
func EnsureDir(root, address string, channel int) (string, error) {
	dir := SegmentDir(root, address, channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory %s: %w", dir, err)
	}
	return dir, nil
}

// SegmentPath returns the canonical file path for a segment starting at
// start, formatted in start's own location.
func SegmentPath(dir string, start time.Time) string {
	return filepath.Join(dir, start.Format(fileTimeLayout)+FileExt)
}

// UniquePath returns path if nothing exists there, otherwise the first
// suffixed variant (name_1.mp4, name_2.mp4, ...) that is free. An existing
// file is never overwritten.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := path[:len(path)-len(ext)]
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
