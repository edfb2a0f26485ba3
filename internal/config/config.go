// Package config loads the process-wide configuration for a host running
// one or more Engine sessions, and can watch the backing file for changes.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/relaymesh/engine/internal/telemetry"
)

// Config is the top-level process configuration. It is intentionally thin:
// almost everything an Engine session needs (display_manager, trace_ctx,
// telemetry_label) is session configuration passed to Start, not process
// configuration.
type Config struct {
	// Telemetry configures the shared OpenTelemetry exporter.
	Telemetry telemetry.Config `yaml:"telemetry"`
	// KeepAliveTimeoutSeconds is parsed and checked to be >= 0. Neither the
	// Engine nor the demo transport reads it; the Engine itself has no
	// notion of wall-clock keep-alive.
	KeepAliveTimeoutSeconds int `yaml:"keepAliveTimeoutSeconds"`
	// DisplayManager is the default for new sessions that don't override it.
	DisplayManager bool `yaml:"displayManager"`
	// LogLevel is the starting logrus level.
	LogLevel string `yaml:"log"`
}

var ErrNoConfigEnvVar = errors.New("CONFIG environment variable not set")

// LoadConfig tries the CONFIG environment variable first, then falls back
// to the file at path.
func LoadConfig(path string) (*Config, error) {
	config, err := LoadConfigFromEnv()
	if err != nil {
		if !errors.Is(err, ErrNoConfigEnvVar) {
			return nil, err
		}
		return LoadConfigFromPath(path)
	}
	return config, nil
}

func LoadConfigFromEnv() (*Config, error) {
	configEnv := os.Getenv("CONFIG")
	if configEnv == "" {
		return nil, ErrNoConfigEnvVar
	}
	return LoadConfigFromString(configEnv)
}

func LoadConfigFromPath(path string) (*Config, error) {
	logrus.WithField("path", path).Info("loading config")

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return LoadConfigFromString(string(file))
}

func LoadConfigFromString(configString string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(configString), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML config: %w", err)
	}

	if config.KeepAliveTimeoutSeconds < 0 {
		return nil, errors.New("invalid config: keepAliveTimeoutSeconds must be >= 0")
	}

	return &config, nil
}
