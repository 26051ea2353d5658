// Copyright 2025 The OpenClaw A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings of the task-exchange server binary.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `mapstructure:"addr"`

	// AgentName, AgentDescription, AgentVersion, and AgentURL populate
	// the agent card served at the well-known path.
	AgentName        string `mapstructure:"agent_name"`
	AgentDescription string `mapstructure:"agent_description"`
	AgentVersion     string `mapstructure:"agent_version"`
	AgentURL         string `mapstructure:"agent_url"`

	// AuthToken, when non-empty, enables the static bearer-token check
	// in front of the dispatcher.
	AuthToken string `mapstructure:"auth_token"`

	// CleanupInterval is how often the age-based cleanup sweep runs.
	// Zero disables the sweep.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// CleanupMaxAge is the status age beyond which a task is removed by
	// the sweep.
	CleanupMaxAge time.Duration `mapstructure:"cleanup_max_age"`
}

// Load reads the configuration from the given YAML file, applying
// defaults and OPENCLAW_-prefixed environment overrides. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("agent_name", "openclaw-a2a")
	v.SetDefault("agent_version", "0.1.0")
	v.SetDefault("agent_url", "http://localhost:8080/")
	v.SetDefault("cleanup_interval", time.Duration(0))
	v.SetDefault("cleanup_max_age", 24*time.Hour)

	v.SetEnvPrefix("OPENCLAW")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr cannot be empty")
	}

	return &cfg, nil
}
