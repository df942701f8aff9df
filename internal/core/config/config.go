package config

import (
	redisclient "github.com/duongtq/conveyor/internal/infra/redis"
	"github.com/duongtq/conveyor/internal/infra/storage/postgres"
	"github.com/duongtq/conveyor/internal/pipeline/transform"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Pipelines []PipelineConfig   `yaml:"pipelines"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PipelineConfig holds settings for one connector pipeline task.
// Durations are in milliseconds to match the retry engine's contract.
type PipelineConfig struct {
	Name           string             `yaml:"name"`
	Topic          string             `yaml:"topic"`
	PollIntervalMs int                `yaml:"poll_interval_ms"`
	RetryTimeoutMs int                `yaml:"retry_timeout_ms"`
	MaxDelayMs     int                `yaml:"max_delay_ms"`
	Tolerance      string             `yaml:"tolerance"` // none, all
	Transforms     []transform.Config `yaml:"transforms"`
}
