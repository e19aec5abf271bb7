package server

import (
	"os"
	"path/filepath"
	"strings"
)

// walkStorage scans root (the object store's storage layout,
// {root}/{algo}/{hex[0:2]}/{hex[2:]}) and returns the number of objects and
// their total size, for GET /status (spec §4.11). In-flight temp files
// (".*.tmp") are skipped.
func walkStorage(root string) (count int, totalBytes int64, err error) {
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(info.Name(), ".tmp") {
			return nil
		}
		count++
		totalBytes += info.Size()
		return nil
	})
	return count, totalBytes, err
}
