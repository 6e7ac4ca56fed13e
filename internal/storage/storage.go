package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the advisor needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// snapshotExtensions are the object suffixes a snapshot bundle may contain
var snapshotExtensions = []string{".csv", ".xlsx"}

// DownloadPrefix copies every snapshot file below prefix into destDir and
// returns the local paths, sorted.
func DownloadPrefix(ctx context.Context, client ObjectStorage, prefix, destDir string) ([]string, error) {
	listPrefix := strings.TrimSpace(prefix)
	objects, err := client.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
	}

	var keys []string
	for _, obj := range objects {
		if isSnapshotFile(obj.Key) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no snapshot files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(destDir, objectRelativePath(prefix, key))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare directory for %s: %w", localPath, err)
		}
		if err := client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

// UploadFile publishes a local file under prefix, keeping its base name
func UploadFile(ctx context.Context, client ObjectStorage, prefix, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key := ResolveObjectKey(prefix, filepath.Base(path))
	if err := client.UploadObject(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

func isSnapshotFile(key string) bool {
	lower := strings.ToLower(key)
	for _, ext := range snapshotExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ResolveObjectKey joins name below prefix unless it already carries the prefix
func ResolveObjectKey(prefix, name string) string {
	if name == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(name, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	nameTrimmed := strings.TrimPrefix(strings.TrimSpace(name), "/")

	if strings.HasPrefix(nameTrimmed, prefixTrimmed+"/") {
		return nameTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, nameTrimmed)
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" || rel == key {
		return filepath.Base(key)
	}
	return rel
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
