// Package scanner discovers candidate files under the inbox root.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// Scan walks the inbox root and returns every regular file, sorted by path
// for deterministic processing order. The admission policy itself belongs
// to the gatekeeper; the scanner only enumerates.
func Scan(root string, log logging.Logger) ([]string, error) {
	if log == nil {
		log = logging.GetLogger()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("inbox root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox root %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithError(err).Warn("skipping unreadable path",
				logging.Field{Key: logging.FieldFile, Value: path})
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk inbox %s: %w", root, err)
	}

	sort.Strings(files)
	log.Debug("inbox scanned",
		logging.Field{Key: logging.FieldCount, Value: len(files)})
	return files, nil
}
