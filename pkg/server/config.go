package server

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Fixtures FixturesConfig `toml:"fixtures"`
	Journal  JournalConfig  `toml:"journal"`
	Events   []EventConfig  `toml:"event"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

// FixturesConfig points at project fixture directories searched before the
// bundled fixtures.
type FixturesConfig struct {
	Webhooks  string `toml:"webhooks"`
	Resources string `toml:"resources"`
}

// JournalConfig enables the SQLite request journal when Path is set.
type JournalConfig struct {
	Path string `toml:"path"`
}

// EventConfig describes an event generated every time the session starts.
// Data is merged into the event's data.object.
type EventConfig struct {
	Type string         `toml:"type"`
	Data map[string]any `toml:"data"`
}

func LoadConfig(path string) (*Config, error) {
	cfg, err := DecodeConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeConfig reads a TOML configuration without validating it, so that
// callers can fill in missing settings first.
func DecodeConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	for i, ev := range c.Events {
		if ev.Type == "" {
			return fmt.Errorf("event[%d].type is required", i)
		}
	}
	return nil
}
