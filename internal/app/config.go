package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/zkparallel/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
// Values set here take precedence over the configuration files.
type Config struct {
	ConfigPaths []string // hcl files or directories

	LogFormat string
	LogLevel  string
	LogFile   string

	Concurrency int
	Offload     string
	// WorkerCommand is the executable and leading arguments that start a
	// worker subprocess. Empty means the running binary's `worker` command.
	WorkerCommand []string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Concurrency < 0 {
		return nil, errors.New("concurrency must not be negative")
	}
	switch cfg.Offload {
	case "", config.OffloadNone, config.OffloadGoroutine, config.OffloadProcess:
	default:
		return nil, fmt.Errorf("invalid offload '%s': must be '%s', '%s' or '%s'", cfg.Offload, config.OffloadNone, config.OffloadGoroutine, config.OffloadProcess)
	}
	return &cfg, nil
}
