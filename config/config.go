// Package config handles configuration persistence for taglink.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	PollRate   time.Duration    `yaml:"poll_rate"`
	Tags       []TagConfig      `yaml:"tags,omitempty"`
	MQTT       MQTTConfig       `yaml:"mqtt,omitempty"`
	LogLevel   string           `yaml:"log_level,omitempty"` // debug, info, warn, error
}

// ControllerConfig identifies one target controller and how to reach it.
type ControllerConfig struct {
	Address string        `yaml:"address"`            // IP or hostname
	Port    uint16        `yaml:"port,omitempty"`     // default 44818
	Slot    *int          `yaml:"slot,omitempty"`     // backplane CPU slot, nil for direct targets
	Route   []byte        `yaml:"route,omitempty"`    // raw route path, overrides slot
	Timeout time.Duration `yaml:"timeout,omitempty"`  // per-transaction deadline
	Payload int           `yaml:"payload,omitempty"`  // CIP payload limit override in bytes
}

// TagConfig is one tag in the poll list.
type TagConfig struct {
	Name     string `yaml:"name"`
	Elements uint16 `yaml:"elements,omitempty"` // default 1
	Alias    string `yaml:"alias,omitempty"`    // publish name, defaults to Name
}

// MQTTConfig holds MQTT publisher configuration.
type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Broker    string `yaml:"broker"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	ClientID  string `yaml:"client_id"`
	RootTopic string `yaml:"root_topic,omitempty"` // default "taglink"
	UseTLS    bool   `yaml:"use_tls,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			Port:    44818,
			Timeout: 5 * time.Second,
		},
		PollRate: time.Second,
		MQTT: MQTTConfig{
			Port:      1883,
			RootTopic: "taglink",
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the default configuration file path (~/.taglink/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".taglink", "config.yaml")
}

// Load reads configuration from a YAML file, applying defaults for
// fields the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating the directory
// if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	if c.Controller.Port == 0 {
		c.Controller.Port = 44818
	}
	if c.Controller.Timeout == 0 {
		c.Controller.Timeout = 5 * time.Second
	}
	if c.PollRate == 0 {
		c.PollRate = time.Second
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.RootTopic == "" {
		c.MQTT.RootTopic = "taglink"
	}
	for i := range c.Tags {
		if c.Tags[i].Elements == 0 {
			c.Tags[i].Elements = 1
		}
		if c.Tags[i].Alias == "" {
			c.Tags[i].Alias = c.Tags[i].Name
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Controller.Address == "" {
		return fmt.Errorf("controller address is required")
	}
	if c.Controller.Slot != nil && (*c.Controller.Slot < 0 || *c.Controller.Slot > 255) {
		return fmt.Errorf("controller slot must be 0-255, got %d", *c.Controller.Slot)
	}
	if len(c.Controller.Route)%2 != 0 {
		return fmt.Errorf("route path must be an even number of bytes, got %d", len(c.Controller.Route))
	}
	if c.Controller.Payload < 0 {
		return fmt.Errorf("payload limit must not be negative, got %d", c.Controller.Payload)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	for i, t := range c.Tags {
		if t.Name == "" {
			return fmt.Errorf("tag %d: name is required", i)
		}
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker is required when mqtt is enabled")
		}
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt client_id is required when mqtt is enabled")
		}
	}
	return nil
}
