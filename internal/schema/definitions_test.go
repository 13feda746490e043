package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const officesYAML = `
- name: offices
  alias: o
  fields: [id, name, country_iso]
  relations:
    - table: c
- name: countries
  alias: c
  fields: [iso, name]
  primary_key: iso
- name: regions
  fields: id
`

func TestLoadDefinitions(t *testing.T) {
	defs, err := LoadDefinitions(strings.NewReader(officesYAML))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "offices", defs[0].Name)
	assert.Equal(t, "o", defs[0].Alias)
	assert.Equal(t, StringList{"id", "name", "country_iso"}, defs[0].Fields)
	require.Len(t, defs[0].Relations, 1)
	assert.Equal(t, Keys{}, defs[0].Relations[0].Keys())
	assert.Equal(t, "c", defs[0].Relations[0].Table)

	assert.Equal(t, "iso", defs[1].PrimaryKey)
	assert.Equal(t, StringList{"id"}, defs[2].Fields)
}

func TestLoadDefinitions_Empty(t *testing.T) {
	defs, err := LoadDefinitions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadDefinitions_Invalid(t *testing.T) {
	_, err := LoadDefinitions(strings.NewReader("- alias: o\n"))
	assert.ErrorContains(t, err, "entry 0 has no name")

	_, err = LoadDefinitions(strings.NewReader("- name: offices\n  colour: red\n"))
	assert.ErrorContains(t, err, "parse table definitions")

	_, err = LoadDefinitions(strings.NewReader("- name: offices\n  fields: {a: b}\n"))
	assert.Error(t, err)
}

func TestLoadDefinitionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(officesYAML), 0o600))

	defs, err := LoadDefinitionsFile(path)
	require.NoError(t, err)
	assert.Len(t, defs, 3)

	_, err = LoadDefinitionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read table definitions")
}
