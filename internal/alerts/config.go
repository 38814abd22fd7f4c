package alerts

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the alerts section of a service configuration.
type Config struct {
	Definitions    DefinitionTable      `yaml:"definitions"`
	Alarms         []Reference          `yaml:"alarms"`
	Global         []Reference          `yaml:"global"`
	Function       []Reference          `yaml:"function"`
	Topics         Topics               `yaml:"topics"`
	NameTemplate   *string              `yaml:"nameTemplate"`
	PrefixTemplate *string              `yaml:"prefixTemplate"`
	Stages         []string             `yaml:"stages"`
	Dashboards     *Dashboards          `yaml:"dashboards"`
	ExternalStack  *ExternalStackConfig `yaml:"externalStack"`
}

// ExternalStackConfig moves alert resources into a separate stack.
type ExternalStackConfig struct {
	NameSuffix string `yaml:"nameSuffix"`
}

// ParseConfig decodes an alerts config from YAML or JSON.
func ParseConfig(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse alerts config: %w", err)
	}
	return &cfg, nil
}
