package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository/csvsource"
)

// ExportPublisher writes the suggestions of a run to a local CSV file and
// uploads it below prefix
type ExportPublisher struct {
	client ObjectStorage
	prefix string
	dir    string
}

func NewExportPublisher(client ObjectStorage, prefix, dir string) *ExportPublisher {
	return &ExportPublisher{client: client, prefix: prefix, dir: dir}
}

// Publish returns the object key of the uploaded export
func (p *ExportPublisher) Publish(ctx context.Context, result *intelligence.RunResult) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	name := fmt.Sprintf("suggestions-%s.csv", result.RunAt.UTC().Format("20060102T150405Z"))
	path := filepath.Join(p.dir, name)
	if err := csvsource.ExportSuggestions(path, result.Suggestions); err != nil {
		return "", err
	}

	return UploadFile(ctx, p.client, p.prefix, path)
}
