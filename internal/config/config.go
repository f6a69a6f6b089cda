// Package config handles configuration for the port scanner. Configuration
// is loaded from an optional YAML file layered over built-in defaults and
// validated before any scan work starts.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/r1b/port-scanner/internal/errors"
)

const (
	// DefaultProbeConcurrency bounds in-flight connect probes system-wide.
	DefaultProbeConcurrency = 32

	// DefaultProbeTimeout is the per-probe connect timeout. This is the
	// dominant cost driver for filtered classifications.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultDiscoveryConcurrency bounds in-flight liveness probes,
	// independently of the probe ceiling.
	DefaultDiscoveryConcurrency = 16

	// DefaultDiscoveryTimeout is the per-host liveness probe timeout.
	DefaultDiscoveryTimeout = 2 * time.Second

	configFilePerm = 0644
	configDirPerm  = 0755
)

// Config represents the complete scanner configuration.
type Config struct {
	// Scan configuration
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Discovery configuration
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// DNS configuration
	DNS DNSConfig `yaml:"dns" json:"dns"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ScanConfig holds connect-scan settings.
type ScanConfig struct {
	// Maximum number of simultaneous in-flight connect probes
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=1,max=4096"`

	// Per-probe connect timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=1ms"`

	// Skip host discovery and probe every expanded host
	SkipDiscovery bool `yaml:"skip_discovery" json:"skip_discovery"`

	// Protocol used for service-name lookups
	Protocol string `yaml:"protocol" json:"protocol" validate:"oneof=tcp udp"`

	// Maximum probes dispatched per second (0 = unlimited)
	RateLimit int `yaml:"rate_limit" json:"rate_limit" validate:"min=0"`
}

// DiscoveryConfig holds host-discovery settings.
type DiscoveryConfig struct {
	// Maximum number of simultaneous liveness probes
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"min=1,max=1024"`

	// Per-host liveness probe timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=1ms"`

	// Use a privileged (raw socket) ICMP probe instead of UDP datagrams
	Privileged bool `yaml:"privileged" json:"privileged"`
}

// DNSConfig holds hostname resolution settings.
type DNSConfig struct {
	// Custom DNS server as host:port; empty uses the system resolver
	Server string `yaml:"server" json:"server"`

	// Per-query timeout for the custom resolver
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=1ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	// Enable metrics collection
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Serve Prometheus metrics on this host:port while a scan runs; empty
	// disables the listener
	Address string `yaml:"address" json:"address"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Concurrency:   DefaultProbeConcurrency,
			Timeout:       DefaultProbeTimeout,
			SkipDiscovery: false,
			Protocol:      "tcp",
			RateLimit:     0,
		},
		Discovery: DiscoveryConfig{
			Concurrency: DefaultDiscoveryConcurrency,
			Timeout:     DefaultDiscoveryTimeout,
			Privileged:  false,
		},
		DNS: DNSConfig{
			Server:  "",
			Timeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "",
		},
	}
}

// Load loads configuration from a file, layered over defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to parse YAML config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to create config directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"Failed to write config file", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("Configuration failed %q validation", first.Tag()),
				first.Namespace(), first.Value())
		}
		return errors.WrapConfigError(errors.CodeValidation,
			"Configuration validation failed", err)
	}

	if c.DNS.Server != "" {
		if _, _, err := net.SplitHostPort(c.DNS.Server); err != nil {
			return errors.ErrConfigInvalid("dns.server", c.DNS.Server)
		}
	}

	if c.Metrics.Address != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			return errors.ErrConfigInvalid("metrics.address", c.Metrics.Address)
		}
	}

	return nil
}
