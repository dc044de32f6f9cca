// Package config loads runtime configuration for the verdant client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so it can be either a
// string like "10s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://auth.example.com/api",
//	  "storage_path": "/home/me/.verdant.db",
//	  "request_timeout": "10s",
//	  "log_level": "debug",
//	  "start_path": "/login",
//	  "purge_all": false
//	}
//
// Environment variables are not read.
package config
