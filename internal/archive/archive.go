// Package archive moves fully processed documents out of the input
// directory so a rerun never sees them again.
package archive

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/config"
)

// Archiver puts a processed document somewhere it will not be rediscovered.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}

// New selects the archive backend from configuration.
func New(cfg config.ArchiveConfig, paths config.PathsConfig) Archiver {
	if cfg.Backend == "gcs" {
		return NewGCS(cfg.Bucket, cfg.Prefix, paths.InputDir)
	}
	return NewLocal(paths.InputDir, paths.ProcessedDir)
}
