package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/repository/csvsource"
)

// BundleSource loads snapshots published as a bundle of CSV/XLSX objects
// under one prefix. Every load downloads into a fresh directory below workDir.
type BundleSource struct {
	client  ObjectStorage
	prefix  string
	workDir string
}

func NewBundleSource(client ObjectStorage, prefix, workDir string) *BundleSource {
	return &BundleSource{client: client, prefix: prefix, workDir: workDir}
}

func (b *BundleSource) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := os.MkdirAll(b.workDir, 0o755); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to create work dir: %w", err)
	}
	dir, err := os.MkdirTemp(b.workDir, "snapshot-*")
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	paths, err := DownloadPrefix(ctx, b.client, b.prefix, dir)
	if err != nil {
		return domain.Snapshot{}, err
	}
	log.Info().Str("prefix", b.prefix).Int("files", len(paths)).Msg("snapshot bundle downloaded")

	return csvsource.NewDirSource(dir).LoadSnapshot(ctx)
}

var _ repository.SnapshotSource = (*BundleSource)(nil)
