package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/verdant/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   API base URL
//	-s string   storage file path ("" for memory only)
//	-t int      request timeout in seconds
//	-l string   log level
//	-p string   start path
//	-purge-all  clear the whole local store on logout
//
// Only these flags are parsed (see flagx.FilterArgs); parse errors panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-t", "-l", "-p", "-purge-all"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.StringVar(&cfg.StoragePath, "s", cfg.StoragePath, "storage file path")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.StartPath, "p", cfg.StartPath, "start path")
	fs.BoolVar(&cfg.PurgeAll, "purge-all", cfg.PurgeAll, "clear all local data on logout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
