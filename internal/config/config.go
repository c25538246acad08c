// Package config loads the service settings from the environment and
// the source manifest from YAML.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds all service settings, populated from environment
// variables with the PANEL_ prefix.
type Settings struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	ManifestPath string `envconfig:"MANIFEST_PATH" default:"manifest.yaml"`
	ConfigDBPath string `envconfig:"CONFIG_DB_PATH" default:"column_config.db"`
	ArtifactPath string `envconfig:"ARTIFACT_PATH" default:"master.csv"`

	DebounceInterval time.Duration `envconfig:"DEBOUNCE_INTERVAL" default:"2s"`

	// Optional Kafka audit sink; disabled when no brokers are set.
	AuditBrokers []string `envconfig:"AUDIT_BROKERS"`
	AuditTopic   string   `envconfig:"AUDIT_TOPIC" default:"panel-audit-reports"`
}

// Load reads settings from the environment, applying defaults where
// unset.
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("panel", &s); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if s.ShutdownTimeout <= 0 {
		return nil, errors.New("PANEL_SHUTDOWN_TIMEOUT must be positive")
	}
	if s.DebounceInterval <= 0 {
		return nil, errors.New("PANEL_DEBOUNCE_INTERVAL must be positive")
	}
	if len(s.AuditBrokers) > 0 && s.AuditTopic == "" {
		return nil, errors.New("PANEL_AUDIT_TOPIC is required when PANEL_AUDIT_BROKERS is set")
	}
	return &s, nil
}
