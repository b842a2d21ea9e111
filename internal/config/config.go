package config

import (
	"fmt"
	"time"

	"github.com/NDERI007/simflow/internal/cache"
	"github.com/NDERI007/simflow/internal/notify"
	"github.com/NDERI007/simflow/pkg/mq"
	"github.com/NDERI007/simflow/pkg/mysql"
	"github.com/NDERI007/simflow/pkg/smsprovider"
	"github.com/spf13/viper"
)

type Config struct {
	API       API                `mapstructure:"api"`
	Database  mysql.Config       `mapstructure:"database"`
	RabbitMQ  mq.Config          `mapstructure:"rabbitmq"`
	Redis     cache.Config       `mapstructure:"redis"`
	Provider  smsprovider.Config `mapstructure:"provider"`
	Batch     Batch              `mapstructure:"batch"`
	Discovery Discovery          `mapstructure:"discovery"`
	Alerts    notify.Config      `mapstructure:"alerts"`
}

type API struct {
	Port string `mapstructure:"port"`
}

type Batch struct {
	// Worker pool size per consumer process; also the channel prefetch.
	Concurrency int `mapstructure:"concurrency"`

	// Retry policy applied to every batch child.
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`

	// Gateway calls per second across the worker pool.
	RatePerSecond int `mapstructure:"rate_per_second"`

	// A RUNNING job untouched for this long is reclaimed from its worker.
	StaleAfter time.Duration `mapstructure:"stale_after"`

	// Metrics listener for the send worker.
	MetricsPort string `mapstructure:"metrics_port"`
}

type Discovery struct {
	Interval     time.Duration `mapstructure:"interval"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
	SweepLimit   int           `mapstructure:"sweep_limit"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

func Load() (cfg *Config, err error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath("./config")

	err = viper.ReadInConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
