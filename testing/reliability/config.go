package reliability

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// ReliabilityConfig holds configuration for reliability testing
type ReliabilityConfig struct {
	Level         string        // "basic" or "stress"
	Duration      time.Duration // Test duration for stress tests
	MaxGoroutines int           // Maximum goroutines for concurrent tests
	MaxMemoryMB   int           // Memory limit for tests
	Events        int           // Events recorded per saturation run
}

// getReliabilityConfig reads configuration from environment variables
func getReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		Level:         getEnv("CHROMETRACE_RELIABILITY_LEVEL", ""),
		Duration:      parseDuration(getEnv("CHROMETRACE_RELIABILITY_DURATION", "5s")),
		MaxGoroutines: parseInt(getEnv("CHROMETRACE_RELIABILITY_MAX_GOROUTINES", "100")),
		MaxMemoryMB:   parseInt(getEnv("CHROMETRACE_RELIABILITY_MAX_MEMORY_MB", "512")),
		Events:        parseInt(getEnv("CHROMETRACE_RELIABILITY_EVENTS", "100000")),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses integer from string with default fallback
func parseInt(s string) int {
	if value, err := strconv.Atoi(s); err == nil {
		return value
	}
	return 0
}

// parseDuration parses duration from string with default fallback
func parseDuration(s string) time.Duration {
	if duration, err := time.ParseDuration(s); err == nil {
		return duration
	}
	return 5 * time.Second
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
