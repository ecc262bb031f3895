// Package config loads the optional runtime configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/L3viathan/halali/pkg/halali"
	"github.com/L3viathan/halali/pkg/netplay"
)

type Config struct {
	// Port the hosting side listens on and advertises.
	Port int `json:"port"`
	// AIDelayMS is the computer opponent's thinking time.
	AIDelayMS int `json:"ai_delay_ms"`
	// TieBreak names the team a drawn match goes to.
	TieBreak halali.Team `json:"tie_break"`
}

// Default matches the behavior of a missing config file.
func Default() *Config {
	return &Config{
		Port:      netplay.DefaultPort,
		AIDelayMS: 700,
		TieBreak:  halali.Humans,
	}
}

// Load reads the config at path, filling in defaults for absent
// fields. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

func (c *Config) AIDelay() time.Duration {
	return time.Duration(c.AIDelayMS) * time.Millisecond
}
