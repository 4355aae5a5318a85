package scheduler

import (
	"time"

	appconfig "github.com/smallbiznis/sellerledger/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval     time.Duration
	BatchSize       int
	EnabledJobs     []string
	TransferTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     time.Minute,
		BatchSize:       50,
		TransferTimeout: 30 * time.Second,
	}
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval:     cfg.SchedulerInterval,
		BatchSize:       cfg.SchedulerBatchSize,
		EnabledJobs:     cfg.SchedulerEnabledJobs,
		TransferTimeout: cfg.TransferTimeout,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.TransferTimeout <= 0 {
		c.TransferTimeout = defaults.TransferTimeout
	}
	return c
}
