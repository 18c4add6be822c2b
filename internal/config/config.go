package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Sim      SimConfig      `toml:"sim"`
	Cache    CacheConfig    `toml:"cache"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	RegionID  int32  `toml:"region_id"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	// DSN is the Postgres connection string for the track layout store.
	// Empty means run fully in-memory with no persistence.
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type SimConfig struct {
	TickRate   time.Duration `toml:"tick_rate"`
	ScriptsDir string        `toml:"scripts_dir"`
	DataDir    string        `toml:"data_dir"`
}

// CacheConfig holds the rail lookup cache freshness windows, in ticks.
type CacheConfig struct {
	// LifeTicks is the full freshness window granted when a rail is looked
	// up or created.
	LifeTicks int `toml:"life_ticks"`
	// VerifyTicks is the shorter window granted after a re-verification.
	VerifyTicks int `toml:"verify_ticks"`
	// DeadTimeoutTicks is the sweep threshold: entries whose counters fall
	// below it are evicted unless occupied.
	DeadTimeoutTicks int `toml:"dead_timeout_ticks"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cache.LifeTicks <= 0 {
		return fmt.Errorf("cache.life_ticks must be positive")
	}
	if c.Cache.VerifyTicks <= 0 || c.Cache.VerifyTicks >= c.Cache.LifeTicks {
		return fmt.Errorf("cache.verify_ticks must be positive and below life_ticks")
	}
	if c.Cache.DeadTimeoutTicks <= 0 {
		return fmt.Errorf("cache.dead_timeout_ticks must be positive")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "railgrid",
			RegionID: 1,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Sim: SimConfig{
			TickRate:   50 * time.Millisecond,
			ScriptsDir: "scripts",
			DataDir:    "data/yaml",
		},
		Cache: CacheConfig{
			LifeTicks:        20,
			VerifyTicks:      15,
			DeadTimeoutTicks: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
