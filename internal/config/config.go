package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const appName = "feedsnap"

type Config struct {
	FeedsPath    string        `env:"FEEDS_PATH"    envDefault:"feeds.json"`
	SnapshotPath string        `env:"SNAPSHOT_PATH" envDefault:"data/items.json"`
	MaxItems     int           `env:"MAX_ITEMS"     envDefault:"1500"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"20s"`
	UserAgent    string        `env:"USER_AGENT"    envDefault:"feedsnap/1.0"`
	MaxPerHost   int           `env:"MAX_PER_HOST"  envDefault:"2"`
	HostDelay    time.Duration `env:"HOST_DELAY"    envDefault:"250ms"`
	Schedule     string        `env:"SCHEDULE"      envDefault:"0 * * * *"`
	RunTimeout   time.Duration `env:"RUN_TIMEOUT"   envDefault:"15m"`
	SiteDir      string        `env:"SITE_DIR"      envDefault:"."`
	Addr         string        `env:"ADDR"          envDefault:":8080"`
	BaseURL      string        `env:"BASE_URL"`
	StateDBPath  string        `env:"STATE_DB_PATH"`
	LogLevel     string        `env:"LOG_LEVEL"     envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.normalize(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	c.FeedsPath = strings.TrimSpace(c.FeedsPath)
	c.SnapshotPath = strings.TrimSpace(c.SnapshotPath)
	c.BaseURL = strings.TrimSpace(c.BaseURL)

	if c.MaxItems <= 0 {
		return fmt.Errorf("MAX_ITEMS must be positive, got %d", c.MaxItems)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxPerHost <= 0 {
		c.MaxPerHost = 1
	}

	if strings.TrimSpace(c.StateDBPath) == "" {
		path, err := xdg.DataFile(filepath.Join(appName, "state.sqlite"))
		if err != nil {
			return fmt.Errorf("resolve state DB path: %w", err)
		}
		c.StateDBPath = path
	}

	return nil
}
