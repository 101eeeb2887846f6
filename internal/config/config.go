package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"` // e.g. :8080; empty disables the server
}

type MQTT struct {
	Broker      string `yaml:"broker"` // e.g. tcp://localhost:1883; empty disables the bridge
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type Config struct {
	Protocol      string `yaml:"protocol"`  // "40h"
	Transport     string `yaml:"transport"` // "serial" | "uart" | "sim"
	Device        string `yaml:"device"`    // e.g. /dev/ttyUSB0
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	Intensity     int    `yaml:"intensity"`
	LogLevel      string `yaml:"log_level"`

	HTTP HTTP `yaml:"http,omitempty"`
	MQTT MQTT `yaml:"mqtt,omitempty"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Protocol:  "40h",
		Transport: "serial",
		Device:    "/dev/ttyUSB0",
		Baud:      115200,
		Intensity: -1,
		LogLevel:  "info",
		MQTT: MQTT{
			ClientID:    "grid40h",
			TopicPrefix: "grid40h",
		},
	}
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// Load reads path over the defaults, so a partial file only overrides
// what it sets.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
