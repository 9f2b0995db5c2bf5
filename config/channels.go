package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"datahub-exporter/models"
)

// Channels is the channel configuration loaded from the YAML file: the list
// of channel codes to probe during token discovery, and the email domain
// exclusion list used by the filtered email report mode.
type Channels struct {
	Channels         []models.Channel `yaml:"channels"`
	ExclusionDomains []string         `yaml:"exclusion_domains"`
}

// LoadChannels reads and validates the channel configuration file.
func LoadChannels(path string) (*Channels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("channels: read %q: %w", path, err)
	}

	var ch Channels
	if err := yaml.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("channels: parse %q: %w", path, err)
	}

	if len(ch.Channels) == 0 {
		return nil, fmt.Errorf("channels: %q lists no channels", path)
	}
	for i, c := range ch.Channels {
		if c.Code == "" {
			return nil, fmt.Errorf("channels: entry %d has no code", i)
		}
	}

	return &ch, nil
}

// Codes returns the channel codes to probe, in file order.
func (c *Channels) Codes() []string {
	codes := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		codes = append(codes, ch.Code)
	}
	return codes
}

// ByName returns the channel with the given name, or nil.
func (c *Channels) ByName(name string) *models.Channel {
	for i := range c.Channels {
		if c.Channels[i].Name == name {
			return &c.Channels[i]
		}
	}
	return nil
}
