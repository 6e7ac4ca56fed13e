package config

import (
	"testing"

	"github.com/andresuchdata/replenish/internal/domain"
)

func TestLoadDefaultsMatchDomainDefaults(t *testing.T) {
	t.Setenv("APP_DATA_DIR", t.TempDir())

	cfg := Load()
	got := cfg.Intelligence.Settings()
	want := domain.DefaultSettings()

	if got != want {
		t.Errorf("settings = %+v\nwant %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("default settings invalid: %v", err)
	}
	if cfg.App.SnapshotSource != "postgres" {
		t.Errorf("snapshot source = %q, want postgres", cfg.App.SnapshotSource)
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "replenish", SSLMode: "disable"}
	if got, want := c.DSN(), "host=db port=5432 user=u password=p dbname=replenish sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	c.URL = "postgres://u:p@db/replenish"
	if got := c.DSN(); got != c.URL {
		t.Errorf("DSN() = %q, want URL", got)
	}
}
