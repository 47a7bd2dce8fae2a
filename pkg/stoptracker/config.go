package stoptracker

import (
	"os"
	"strconv"
	"time"
)

type BufferConfig struct {
	// Interval between drain ticks
	DrainInterval time.Duration
	// Empty ticks before the drain loop stops itself when nothing is in flight
	SoftEmptyTicks int
	// Empty ticks before the drain loop stops regardless of in-flight work
	HardEmptyTicks int
}

var defaultBufferConfig = BufferConfig{
	DrainInterval:  5 * time.Second,
	SoftEmptyTicks: 3,
	HardEmptyTicks: 30,
}

// GetBufferConfig returns the drain-loop configuration from environment
// variables or defaults.
func GetBufferConfig() BufferConfig {
	config := defaultBufferConfig

	if val := os.Getenv("TRIPFLOW_DRAIN_INTERVAL"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.DrainInterval = parsed
		}
	}

	if val := os.Getenv("TRIPFLOW_DRAIN_SOFT_EMPTY_TICKS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.SoftEmptyTicks = parsed
		}
	}

	if val := os.Getenv("TRIPFLOW_DRAIN_HARD_EMPTY_TICKS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.HardEmptyTicks = parsed
		}
	}

	return config
}
