package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the full TOML-driven server configuration.
type Config struct {
	Listen         string                   `toml:"listen"`
	DataDir        string                   `toml:"data_dir"`
	DefaultHandler string                   `toml:"default_handler"`
	AllowedOrigins []string                 `toml:"allowed_origins"`
	Handlers       map[string]HandlerConfig `toml:"handlers"`
}

// HandlerConfig configures one server-backed handler. Username/password here
// are optional static credentials; when absent, sessions must supply
// credentials before switching to the handler.
type HandlerConfig struct {
	Address  string `toml:"address"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// loadConfig reads a TOML config file and returns a Config with defaults
// applied.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %v", keys)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data_dir: %w", err)
	}
	cfg.DataDir = abs
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Listen:         ":8980",
		DataDir:        "data",
		DefaultHandler: "sqlite",
		Handlers:       make(map[string]HandlerConfig),
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	desc, err := describeHandler(c.DefaultHandler)
	if err != nil {
		return fmt.Errorf("default_handler: %w", err)
	}
	// The default handler must be usable without a credentials exchange,
	// otherwise fresh sessions could never initialize.
	if desc.Capabilities.Credentials {
		hc, ok := c.Handlers[c.DefaultHandler]
		if !ok || hc.Username == "" {
			return fmt.Errorf("default_handler %q requires credentials; configure handlers.%s.username", c.DefaultHandler, c.DefaultHandler)
		}
	}

	for name, hc := range c.Handlers {
		d, err := describeHandler(name)
		if err != nil {
			return fmt.Errorf("handlers.%s: %w", name, err)
		}
		if d.Capabilities.Credentials && hc.Address == "" {
			return fmt.Errorf("handlers.%s.address is required", name)
		}
	}
	return nil
}
