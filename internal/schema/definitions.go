package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition declares a table in YAML:
//
//	- name: offices
//	  alias: o
//	  fields: [id, name, country_iso]
//	  relations:
//	    - table: c
//	      foreign_key: country_iso
//
// Omitted fields are read from the database when the table is declared.
type Definition struct {
	Name       string        `yaml:"name"`
	Alias      string        `yaml:"alias,omitempty"`
	Fields     StringList    `yaml:"fields,omitempty"`
	PrimaryKey string        `yaml:"primary_key,omitempty"`
	Relations  []RelationDef `yaml:"relations,omitempty"`
}

// RelationDef declares one relationship of a Definition. Table is the key
// (alias) of the related table.
type RelationDef struct {
	Table      string `yaml:"table"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
	PrimaryKey string `yaml:"primary_key,omitempty"`
}

// Keys returns the relationship keys.
func (r RelationDef) Keys() Keys {
	return Keys{Foreign: r.ForeignKey, Primary: r.PrimaryKey}
}

// StringList is a YAML value that is either a single string or a list.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// LoadDefinitions parses a YAML list of table definitions.
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	var defs []Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse table definitions: %w", err)
	}
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("parse table definitions: entry %d has no name", i)
		}
	}
	return defs, nil
}

// LoadDefinitionsFile reads table definitions from a YAML file.
func LoadDefinitionsFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read table definitions: %w", err)
	}
	defer f.Close()
	return LoadDefinitions(f)
}
