package extract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// renderFirstPage rasterizes page 1 of a PDF to PNG bytes using pdftoppm
// (poppler-utils). 200 DPI is enough for the vision model to read receipt
// text without inflating the request size.
func renderFirstPage(path string) ([]byte, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("renderFirstPage: pdftoppm not available (install poppler-utils): %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "ledgerline-page-*")
	if err != nil {
		return nil, fmt.Errorf("renderFirstPage: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.Command("pdftoppm", "-r", "200", "-png", "-f", "1", "-l", "1", path, imgPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("renderFirstPage: pdftoppm failed: %w (output: %s)", err, string(out))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("renderFirstPage: read temp dir: %w", err)
	}

	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			data, err := os.ReadFile(filepath.Join(tmpDir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("renderFirstPage: read page image: %w", err)
			}
			return data, nil
		}
	}

	return nil, fmt.Errorf("renderFirstPage: pdftoppm produced no page image")
}
