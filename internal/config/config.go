// Package config holds process-wide toolkit configuration, loaded once
// from the environment the same way the upstream tree's Config/GetConfig
// pair did, renamed from OPENDCM_* to DCMKIT_*.
package config

import (
	"os"
	"strconv"
	"sync"
)

// Config controls behavior that is ambient rather than per-call: how
// strict parsing is, how many files a batch walk opens at once, the log
// level, and the default UID root used when a caller does not supply
// one.
type Config struct {
	// StrictMode, when true, turns a recoverable parse anomaly — an
	// explicit-VR element whose wire VR is not a recognized VR code —
	// into a hard failure instead of a warning-and-dictionary-fallback.
	// Truncated reads are always fatal regardless of this flag; there is
	// no recoverable interpretation of a length that runs past the end
	// of the input.
	StrictMode bool

	// ReadBufferSize is loaded from DCMKIT_BUFFER_SIZE. No package in
	// this module reads it: inputs are read fully into memory, with no
	// buffered reader to size.
	ReadBufferSize int

	// OpenFileLimit bounds how many files a batch walk opens at once.
	OpenFileLimit int

	// RootUID is the default UID root used by uidgen when a caller
	// does not supply one explicitly.
	RootUID string

	// LogLevel is a zerolog level name ("debug", "info", "warn", "error").
	LogLevel string
}

const (
	defaultRootUID        = "1.2.826.0.1.3680043.9.7484."
	defaultReadBufferSize = 4096
	defaultOpenFileLimit  = 64
	defaultLogLevel       = "info"
)

var (
	once    sync.Once
	current Config
)

// Get returns the process-wide Config, loading it from the environment
// on first use.
func Get() Config {
	once.Do(load)
	return current
}

// Override replaces the process-wide Config, primarily for tests.
func Override(c Config) {
	once.Do(func() {})
	current = c
}

func load() {
	current = Config{
		StrictMode:     envBool("DCMKIT_STRICT_MODE", false),
		ReadBufferSize: envInt("DCMKIT_BUFFER_SIZE", defaultReadBufferSize),
		OpenFileLimit:  envInt("DCMKIT_OPEN_FILE_LIMIT", defaultOpenFileLimit),
		RootUID:        envString("DCMKIT_ROOT_UID", defaultRootUID),
		LogLevel:       envString("DCMKIT_LOG_LEVEL", defaultLogLevel),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
