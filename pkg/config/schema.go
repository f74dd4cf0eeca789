package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchema is returned when a config file does not match the schema.
var ErrSchema = errors.New("config does not match schema")

//go:embed schema.json
var schemaJSON []byte

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return schemaJSON
}

// ValidateFile checks the YAML file at path against the schema.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return ValidateYAML(data)
}

// ValidateYAML checks raw YAML against the schema. An empty document is valid.
func ValidateYAML(data []byte) error {
	var doc map[string]any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if doc == nil {
		doc = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
