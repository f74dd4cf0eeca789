package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const dumpIndent = 2

// Dump writes the effective configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(dumpIndent)

	err := enc.Encode(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}
