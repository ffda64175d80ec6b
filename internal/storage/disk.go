package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage is the size of a set of paths on disk.
type DiskUsage struct {
	Bytes int64 `json:"bytes"`
	Files int   `json:"files"`
}

// MeasureDiskUsage sums the size and file count of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped; errors during walk are returned.
func MeasureDiskUsage(paths ...string) (DiskUsage, error) {
	var usage DiskUsage
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return DiskUsage{}, err
		}
		if !info.IsDir() {
			usage.Bytes += info.Size()
			usage.Files++
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			usage.Bytes += fi.Size()
			usage.Files++
			return nil
		})
		if err != nil {
			return DiskUsage{}, err
		}
	}
	return usage, nil
}
