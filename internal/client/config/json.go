package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/verdant/internal/flagx"
	"github.com/dmitrijs2005/verdant/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the corresponding Config field untouched.
type JsonConfig struct {
	APIBaseURL     string          `json:"api_base_url"`
	StoragePath    *string         `json:"storage_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	LogLevel       string          `json:"log_level"`
	StartPath      string          `json:"start_path"`
	PurgeAll       *bool           `json:"purge_all"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Read and unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.StoragePath != nil {
		cfg.StoragePath = *jc.StoragePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.StartPath != "" {
		cfg.StartPath = jc.StartPath
	}
	if jc.PurgeAll != nil {
		cfg.PurgeAll = *jc.PurgeAll
	}
}
