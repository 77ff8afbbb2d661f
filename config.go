package chrometrace

import (
	"os"
	"strconv"
	"time"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvFile            = "CHROMETRACE_FILE"
	EnvCategory        = "CHROMETRACE_CATEGORY"
	EnvFlushInterval   = "CHROMETRACE_FLUSH_INTERVAL"
	EnvProcessMetadata = "CHROMETRACE_PROCESS_METADATA"
)

// Config holds the settings a program can take from its environment.
type Config struct {
	File            string        // Trace file; empty means DefaultDestination.
	Category        string        // Category for recorded events.
	FlushInterval   time.Duration // Background flush period; zero disables.
	ProcessMetadata bool          // Record a process_name metadata event.
}

// ConfigFromEnv reads Config from CHROMETRACE_* environment variables.
func ConfigFromEnv() Config {
	return Config{
		File:            getEnv(EnvFile, ""),
		Category:        getEnv(EnvCategory, DefaultCategory),
		FlushInterval:   parseDuration(getEnv(EnvFlushInterval, "")),
		ProcessMetadata: parseBool(getEnv(EnvProcessMetadata, "")),
	}
}

// Destination returns where the configured trace goes.
func (c Config) Destination() Destination {
	if c.File == "" {
		return DefaultDestination()
	}
	return PathDestination(c.File)
}

// Options converts the config into session options.
func (c Config) Options() []Option {
	var opts []Option
	if c.FlushInterval > 0 {
		opts = append(opts, WithFlushInterval(c.FlushInterval))
	}
	if c.ProcessMetadata {
		opts = append(opts, WithProcessMetadata())
	}
	return opts
}

// RecorderOptions converts the config into recorder options.
func (c Config) RecorderOptions() []RecorderOption {
	if c.Category == "" {
		return nil
	}
	return []RecorderOption{WithCategory(c.Category)}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses duration from string, zero on failure
func parseDuration(s string) time.Duration {
	if duration, err := time.ParseDuration(s); err == nil && duration > 0 {
		return duration
	}
	return 0
}

// parseBool parses bool from string, false on failure
func parseBool(s string) bool {
	if value, err := strconv.ParseBool(s); err == nil {
		return value
	}
	return false
}
