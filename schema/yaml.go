package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSchema is the on-disk declaration format:
//
//	name: person
//	settings:
//	  index:
//	    number_of_shards: 1
//	attributes:
//	  - name: admin
//	    type: boolean
//	    default: false
type yamlSchema struct {
	Name       string          `yaml:"name"`
	Settings   map[string]any  `yaml:"settings,omitempty"`
	Attributes []yamlAttribute `yaml:"attributes"`
}

type yamlAttribute struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Default yaml.Node      `yaml:"default,omitempty"`
	Mapping map[string]any `yaml:"mapping,omitempty"`
}

// ParseYAML builds a Schema from a YAML declaration.
func ParseYAML(data []byte) (*Schema, error) {
	var decl yamlSchema
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	b := NewBuilder(decl.Name)
	if decl.Settings != nil {
		b.Settings(decl.Settings)
	}
	for _, attr := range decl.Attributes {
		kind, err := ParseKind(attr.Type)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		var opts []Option
		if attr.Default.Kind != 0 {
			var def any
			if err := attr.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("attribute %q default: %w", attr.Name, err)
			}
			opts = append(opts, WithDefault(def))
		}
		if attr.Mapping != nil {
			opts = append(opts, WithMapping(attr.Mapping))
		}
		if err := b.Declare(attr.Name, kind, opts...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// LoadYAML reads and parses a schema declaration file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseYAML(data)
}
