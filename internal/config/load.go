package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given on the command line.
const DefaultConfigFile = "farmctl.yaml"

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile returns path if non-empty, else the default file if it
// exists in the working directory.
func FindConfigFile(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err != nil {
		return "", fmt.Errorf("no config file specified and %s not found", DefaultConfigFile)
	}
	return DefaultConfigFile, nil
}

// ApplyDefaults fills in the optional fields of the configuration.
func (c *Config) ApplyDefaults() {
	if c.Connection.Port == 0 {
		c.Connection.Port = 8006
	}
	if c.Deployment.Network.Mode == "" {
		c.Deployment.Network.Mode = NetworkDHCP
	}
	if c.Deployment.Network.Bridge == "" {
		c.Deployment.Network.Bridge = "vmbr0"
	}
	if c.Deployment.Network.DNS == "" {
		c.Deployment.Network.DNS = "8.8.8.8"
	}
	if c.Deployment.StoragePool == "" {
		c.Deployment.StoragePool = "local"
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.StorePath == "" {
		c.StorePath = "farmctl.db"
	}
	for i := range c.Deployment.SharedMounts {
		m := &c.Deployment.SharedMounts[i]
		if m.MountPath == "" {
			switch m.Kind {
			case "cifs":
				m.MountPath = "/mnt/samba"
			default:
				m.MountPath = "/mnt/shared"
			}
		}
	}
}
