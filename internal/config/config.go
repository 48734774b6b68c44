package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"academybook.db"`
	RedisAddr   string `env:"REDIS_ADDR"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"change-me-jwt-secret"`

	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	JobLease          time.Duration `env:"JOB_LEASE" envDefault:"60s"`
	ReaperInterval    time.Duration `env:"REAPER_INTERVAL" envDefault:"15s"`
	PruneInterval     time.Duration `env:"PRUNE_INTERVAL" envDefault:"10m"`
	CompletedMaxAge   time.Duration `env:"COMPLETED_MAX_AGE" envDefault:"24h"`
	CompletedMaxCount int           `env:"COMPLETED_MAX_COUNT" envDefault:"10000"`
	FailedMaxAge      time.Duration `env:"FAILED_MAX_AGE" envDefault:"168h"`

	OpsAddr string `env:"OPS_ADDR" envDefault:":8090"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
