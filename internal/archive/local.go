package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchiver moves processed files into the processed directory,
// preserving their layout relative to the input directory.
type LocalArchiver struct {
	inputDir     string
	processedDir string
}

var _ Archiver = (*LocalArchiver)(nil)

// NewLocal creates a LocalArchiver moving files from inputDir to
// processedDir.
func NewLocal(inputDir, processedDir string) *LocalArchiver {
	return &LocalArchiver{inputDir: inputDir, processedDir: processedDir}
}

func (a *LocalArchiver) Archive(ctx context.Context, path string) error {
	rel, err := filepath.Rel(a.inputDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	dest := filepath.Join(a.processedDir, rel)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("LocalArchiver.Archive: creating %s: %w", filepath.Dir(dest), err)
	}

	if err := os.Rename(path, dest); err != nil {
		// Rename fails across filesystems; fall back to copy and remove.
		if err := copyFile(path, dest); err != nil {
			return fmt.Errorf("LocalArchiver.Archive: moving %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("LocalArchiver.Archive: removing original %s: %w", path, err)
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
