package mediator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigurationMissing is returned by Config.Validate when a required
// field is absent (§7's ConfigurationMissing kind).
var ErrConfigurationMissing = errors.New("mediator: configuration missing required field")

// Config is the typed configuration schema from §6, populated by flags,
// by a caller embedding the bridge as a library, or by LoadConfig from a
// YAML file.
type Config struct {
	SerialPort     string   `yaml:"serial_port"`
	SerialBaudRate int      `yaml:"serial_baudrate"`
	NTRIPHost      string   `yaml:"ntrip_host"`
	NTRIPPort      int      `yaml:"ntrip_port"`
	NTRIPMount     string   `yaml:"ntrip_mountpoint"`
	NTRIPUsername  string   `yaml:"ntrip_username"`
	NTRIPPassword  string   `yaml:"ntrip_password"`
	NTRIPMock      bool     `yaml:"ntrip_mock"`
	EnabledNMEA    []string `yaml:"enabled_nmea_messages"`
	KeepaliveSec   float64  `yaml:"keepalive_seconds"`
}

// DefaultConfig returns a Config populated with §6's defaults.
func DefaultConfig() Config {
	return Config{
		SerialBaudRate: 115200,
		NTRIPPort:      2101,
		EnabledNMEA:    []string{"GGA", "RMC", "GLL"},
		KeepaliveSec:   2,
	}
}

// LoadConfig reads a YAML document at path into a Config seeded with
// DefaultConfig, so unspecified keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("mediator: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("mediator: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate refuses to start the mediator with an unusable configuration.
func (c Config) Validate() error {
	if c.SerialPort == "" {
		return fmt.Errorf("%w: serial_port", ErrConfigurationMissing)
	}
	if !c.NTRIPMock && c.NTRIPHost == "" {
		return fmt.Errorf("%w: ntrip_host", ErrConfigurationMissing)
	}
	if c.SerialBaudRate <= 0 {
		return fmt.Errorf("%w: serial_baudrate", ErrConfigurationMissing)
	}
	if len(c.EnabledNMEA) == 0 {
		return fmt.Errorf("%w: enabled_nmea_messages", ErrConfigurationMissing)
	}
	return nil
}

// enabledSet turns EnabledNMEA into the lookup set the parser wants.
func (c Config) enabledSet() map[string]bool {
	out := make(map[string]bool, len(c.EnabledNMEA))
	for _, t := range c.EnabledNMEA {
		out[t] = true
	}
	return out
}
