package config

import "time"

// Config holds runtime settings for the verdant client.
//
// Fields:
//   - APIBaseURL: base URL every API path is joined to.
//   - StoragePath: SQLite file holding persisted session state; empty keeps
//     state in memory only.
//   - RequestTimeout: upper bound for a single API round trip.
//   - LogLevel: debug, info, warn or error.
//   - StartPath: the page opened after rehydration.
//   - PurgeAll: logout clears the whole local store instead of the session keys.
type Config struct {
	APIBaseURL     string
	StoragePath    string
	RequestTimeout time.Duration
	LogLevel       string
	StartPath      string
	PurgeAll       bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000/api"
	c.StoragePath = "verdant.db"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.StartPath = "/"
	c.PurgeAll = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
