package main

import (
	"time"

	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/rise-and-shine/docqueue/observability/tracing"
	"github.com/rise-and-shine/docqueue/pg"
)

// Config is the service configuration loaded from ./config/${ENVIRONMENT}.yaml.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Logger   logger.Config  `yaml:"logger"`
	Tracing  tracing.Config `yaml:"tracing"`
	Postgres pg.Config      `yaml:"postgres"`
	HTTP     server.Config  `yaml:"http"`
	Queue    QueueConfig    `yaml:"queue"`
}

type ServiceConfig struct {
	Name    string `yaml:"name"    default:"docqueue"`
	Version string `yaml:"version" default:"dev"`
}

type QueueConfig struct {
	// Schema holds the messages table.
	Schema string `yaml:"schema" default:"docqueue"`

	Name           string `yaml:"name"             validate:"required,queue_name"`
	DeadLetterName string `yaml:"dead_letter_name" validate:"required,queue_name,nefield=Name"`

	Visibility time.Duration `yaml:"visibility"  default:"30s" validate:"gt=0"`
	Delay      time.Duration `yaml:"delay"       default:"0s"  validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" default:"5"   validate:"gte=0"`

	// CleanInterval paces removal of acked messages. Zero disables the cleaner.
	CleanInterval time.Duration `yaml:"clean_interval" default:"1m" validate:"gte=0"`

	// DeadLetterParallelism bounds the worker logging dead letters. Zero disables it.
	DeadLetterParallelism int           `yaml:"dead_letter_parallelism" default:"1"  validate:"gte=0"`
	PollInterval          time.Duration `yaml:"poll_interval"           default:"1s" validate:"gt=0"`

	// ShutdownTimeout bounds the wait for running handlers on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s" validate:"gt=0"`
}
