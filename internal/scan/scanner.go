// Package scan discovers the documents a pipeline run will process.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Discover walks root recursively and returns every PDF path in lexical
// order. The order is stable so ledger ids reflect a reproducible document
// sequence.
func Discover(root string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan.Discover: walking %s: %w", root, err)
	}
	return paths, nil
}
