package survey

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SensorConfig defines one sensor from the config file.
type SensorConfig struct {
	ID    int    `yaml:"id" json:"id"`
	Topic string `yaml:"topic" json:"topic"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"` // hex color for rendering
}

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	MQTT      MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	Reference *int           `yaml:"reference,omitempty" json:"reference,omitempty"` // optional anchor sensor id
	Threshold int            `yaml:"threshold,omitempty" json:"threshold,omitempty"` // overlap threshold, default 12
	Sensors   []SensorConfig `yaml:"sensors" json:"sensors"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if len(config.Sensors) == 0 {
		return nil, fmt.Errorf("at least one sensor must be defined")
	}
	seen := make(map[int]bool, len(config.Sensors))
	for i, sc := range config.Sensors {
		if sc.Topic == "" {
			return nil, fmt.Errorf("sensor[%d].topic is required for sensor %d", i, sc.ID)
		}
		if seen[sc.ID] {
			return nil, fmt.Errorf("duplicate sensor id %d", sc.ID)
		}
		seen[sc.ID] = true
	}
	if config.Threshold < 0 {
		return nil, fmt.Errorf("threshold must be positive, got %d", config.Threshold)
	}
	if config.Reference != nil && !seen[*config.Reference] {
		return nil, fmt.Errorf("reference sensor %d is not in the sensors list", *config.Reference)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// GetSensorByID returns the sensor config for the given id, or nil.
func (c *Config) GetSensorByID(id int) *SensorConfig {
	for i := range c.Sensors {
		if c.Sensors[i].ID == id {
			return &c.Sensors[i]
		}
	}
	return nil
}

// EffectiveThreshold returns the configured overlap threshold or the default.
func (c *Config) EffectiveThreshold() int {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return DefaultThreshold
}

// CorrelatorConfig translates the file configuration into correlator tunables.
func (c *Config) CorrelatorConfig() CorrelatorConfig {
	cfg := CorrelatorConfig{Threshold: c.EffectiveThreshold(), Reference: -1}
	if c.Reference != nil {
		cfg.Reference = *c.Reference
	}
	return cfg
}
