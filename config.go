package batcher

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/batcher/service/messaging"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the batcher configuration. It can
// be populated from YAML or JSON; zero values inherit the package defaults.
type Config struct {
	Workers int           `json:"workers" yaml:"workers"`
	Queue   QueueConfig   `json:"queue" yaml:"queue"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// QueueConfig selects the inbox/outbox transport
type QueueConfig struct {
	Type         messaging.Vendor `json:"type" yaml:"type"`
	BasePath     string           `json:"basePath,omitempty" yaml:"basePath,omitempty"`
	PollInterval time.Duration    `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
}

type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// DefaultConfig returns a Config populated with the default values. Callers
// may modify the returned struct before passing it to NewFromConfig.
func DefaultConfig() *Config {
	return &Config{
		Workers: 5,
		Queue: QueueConfig{
			Type:         messaging.VendorMemory,
			PollInterval: 10 * time.Millisecond,
		},
		Tracing: TracingConfig{
			ServiceName:    "batcher",
			ServiceVersion: "0.1.0",
		},
		Metrics: MetricsConfig{
			Namespace: "batcher",
		},
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers: %w", ErrInvalidWorkers)
	}
	switch c.Queue.Type {
	case "", messaging.VendorMemory:
	case messaging.VendorFS:
		if c.Queue.BasePath == "" {
			return fmt.Errorf("queue.basePath is required for %v queue", c.Queue.Type)
		}
	default:
		return fmt.Errorf("queue.type %q: %w", c.Queue.Type, ErrUnsupportedType)
	}
	return nil
}

// LoadConfig reads YAML configuration from any afs location, unset fields
// keep their default values.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return config, nil
}
