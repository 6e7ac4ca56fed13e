package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
)

type memoryStorage struct {
	objects map[string][]byte
	listErr error
}

func newMemoryStorage(objects map[string]string) *memoryStorage {
	m := &memoryStorage{objects: make(map[string][]byte)}
	for k, v := range objects {
		m.objects[k] = []byte(v)
	}
	return m
}

func (m *memoryStorage) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStorage) DownloadObject(_ context.Context, key, destPath string) error {
	data, ok := m.objects[key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (m *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

func TestDownloadPrefix(t *testing.T) {
	client := newMemoryStorage(map[string]string{
		"snapshots/products.csv":   "id\np-1\n",
		"snapshots/locations.xlsx": "binary",
		"snapshots/README.md":      "ignored",
		"other/products.csv":       "id\np-9\n",
	})
	dir := t.TempDir()

	paths, err := DownloadPrefix(context.Background(), client, "snapshots/", dir)
	if err != nil {
		t.Fatalf("DownloadPrefix() error = %v", err)
	}
	want := []string{filepath.Join(dir, "locations.xlsx"), filepath.Join(dir, "products.csv")}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestDownloadPrefixEmpty(t *testing.T) {
	client := newMemoryStorage(map[string]string{"snapshots/README.md": "x"})
	if _, err := DownloadPrefix(context.Background(), client, "snapshots", t.TempDir()); err == nil {
		t.Fatal("expected error for prefix without snapshot files")
	}

	client.listErr = errors.New("boom")
	_, err := DownloadPrefix(context.Background(), client, "snapshots", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error = %v, want list failure", err)
	}
}

func TestBundleSourceLoadSnapshot(t *testing.T) {
	client := newMemoryStorage(map[string]string{
		"daily/products.csv":     "id,sku\np-1,SKU-1\n",
		"daily/locations.csv":    "id,name\nstore-1,Store One\n",
		"daily/stock_levels.csv": "product_id,location_id,on_hand\np-1,store-1,12\n",
	})
	workDir := t.TempDir()

	snap, err := NewBundleSource(client, "daily", workDir).LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(snap.Products) != 1 || len(snap.Locations) != 1 || snap.StockLevels[0].OnHand != 12 {
		t.Errorf("snapshot = %+v", snap)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("download dir not cleaned up: %d entries left", len(entries))
	}
}

func TestUploadFile(t *testing.T) {
	client := newMemoryStorage(nil)
	path := filepath.Join(t.TempDir(), "suggestions.csv")
	if err := os.WriteFile(path, []byte("id\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	key, err := UploadFile(context.Background(), client, "exports/", path)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if key != "exports/suggestions.csv" || string(client.objects[key]) != "id\n" {
		t.Errorf("uploaded %s = %q", key, client.objects[key])
	}
}

func TestResolveObjectKey(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "/a.csv", "a.csv"},
		{"exports/", "a.csv", "exports/a.csv"},
		{"exports", "exports/a.csv", "exports/a.csv"},
		{"exports", "exportsx/a.csv", "exports/exportsx/a.csv"},
		{"exports", "", "exports"},
	}
	for _, tt := range tests {
		if got := ResolveObjectKey(tt.prefix, tt.name); got != tt.want {
			t.Errorf("ResolveObjectKey(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"//minio:9000", false, "minio:9000", false},
	}
	for _, tt := range tests {
		host, secure := splitEndpoint(tt.in, tt.useSSL)
		if host != tt.wantHost || secure != tt.wantSecure {
			t.Errorf("splitEndpoint(%q) = %s %v, want %s %v", tt.in, host, secure, tt.wantHost, tt.wantSecure)
		}
	}
}

func TestNewMinioClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  MinioConfig
	}{
		{"no endpoint", MinioConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}},
		{"no credentials", MinioConfig{Endpoint: "minio:9000", Bucket: "b"}},
		{"no bucket", MinioConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMinioClient(tt.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if _, err := NewMinioClient(MinioConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"}); err != nil {
		t.Fatalf("NewMinioClient() error = %v", err)
	}
}

func TestExportPublisher(t *testing.T) {
	client := newMemoryStorage(nil)
	dir := t.TempDir()
	runAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	key, err := NewExportPublisher(client, "exports", dir).Publish(context.Background(), &intelligence.RunResult{
		RunAt:       runAt,
		Suggestions: []domain.Suggestion{{
			ID:     "sg-1",
			Source: domain.PurchaseOrder{SupplierID: "sup-1"},
			Status: domain.StatusActive,
		}},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if key != "exports/suggestions-20250301T093000Z.csv" {
		t.Errorf("key = %s", key)
	}
	if !strings.Contains(string(client.objects[key]), "sg-1,purchase_order") {
		t.Errorf("uploaded content = %q", client.objects[key])
	}
	if _, err := os.Stat(filepath.Join(dir, "suggestions-20250301T093000Z.csv")); err != nil {
		t.Errorf("local export missing: %v", err)
	}
}
