// Package fileid provides a deterministic batch ID from a file path for watched files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "file:"

// BatchID returns a stable batch ID for the given absolute path.
// Same path always yields the same ID, so reprocessing a file replaces its batch.
func BatchID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:16])
}

// IsFileBatch reports whether id was produced by BatchID.
func IsFileBatch(id string) bool {
	return strings.HasPrefix(id, prefix)
}
