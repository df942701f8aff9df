package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		if p.Name == "" {
			return nil, fmt.Errorf("pipeline %d has no name", i)
		}
		if p.PollIntervalMs <= 0 {
			p.PollIntervalMs = 1000
		}
		if p.RetryTimeoutMs < 0 {
			p.RetryTimeoutMs = 0
		}
		if p.MaxDelayMs <= 0 {
			p.MaxDelayMs = 60000
		}
		if p.Tolerance == "" {
			p.Tolerance = "none"
		}
	}

	return &cfg, nil
}
