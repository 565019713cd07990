package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("STATE_DB_PATH", "")
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.FeedsPath != "feeds.json" || cfg.SnapshotPath != "data/items.json" {
		t.Fatalf("paths = %q, %q", cfg.FeedsPath, cfg.SnapshotPath)
	}
	if cfg.MaxItems != 1500 {
		t.Fatalf("MaxItems = %d, want 1500", cfg.MaxItems)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Fatalf("FetchTimeout = %s, want 20s", cfg.FetchTimeout)
	}
	if cfg.Schedule != "0 * * * *" {
		t.Fatalf("Schedule = %q", cfg.Schedule)
	}
	if !strings.HasSuffix(cfg.StateDBPath, filepath.Join(appName, "state.sqlite")) {
		t.Fatalf("StateDBPath = %q", cfg.StateDBPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_ITEMS", "10")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("MAX_PER_HOST", "0")
	t.Setenv("BASE_URL", "  https://reader.example/  ")
	t.Setenv("STATE_DB_PATH", "/tmp/state.sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxItems != 10 || cfg.FetchTimeout != 3*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MaxPerHost != 1 {
		t.Fatalf("MaxPerHost = %d, want 1", cfg.MaxPerHost)
	}
	if cfg.BaseURL != "https://reader.example/" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.StateDBPath != "/tmp/state.sqlite" {
		t.Fatalf("StateDBPath = %q", cfg.StateDBPath)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"MAX_ITEMS":     "0",
		"FETCH_TIMEOUT": "-1s",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want error for %s=%s", key, value)
			}
		})
	}
}
