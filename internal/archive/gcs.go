package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// GCSArchiver uploads processed files to a bucket and removes the local
// copy. It assumes Application Default Credentials are configured.
type GCSArchiver struct {
	bucket   string
	prefix   string
	inputDir string
}

var _ Archiver = (*GCSArchiver)(nil)

// NewGCS creates a GCSArchiver writing under gs://bucket/prefix/.
func NewGCS(bucket, prefix, inputDir string) *GCSArchiver {
	return &GCSArchiver{bucket: bucket, prefix: prefix, inputDir: inputDir}
}

func (a *GCSArchiver) Archive(ctx context.Context, filePath string) error {
	if err := a.upload(ctx, filePath); err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("GCSArchiver.Archive: removing original %s: %w", filePath, err)
	}
	return nil
}

func (a *GCSArchiver) upload(ctx context.Context, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("GCSArchiver.upload: open %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("GCSArchiver.upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(a.bucket).Object(a.objectName(filePath)).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("GCSArchiver.upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSArchiver.upload: finalize upload: %w", err)
	}
	return nil
}

// objectName preserves the file's layout relative to the input directory
// under the configured prefix.
func (a *GCSArchiver) objectName(filePath string) string {
	rel, err := filepath.Rel(a.inputDir, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(filePath)
	}
	return path.Join(a.prefix, filepath.ToSlash(rel))
}
