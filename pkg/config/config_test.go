package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "expanded")
	s := sample{Count: 3}
	require.NoError(t, Load(write(t, "name: ${SAMPLE_NAME}\n"), &s))
	assert.Equal(t, sample{Name: "expanded", Count: 3}, s)
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	assert.ErrorContains(t, Load(write(t, "count: -1\n"), &s), "validation failed")
	assert.ErrorContains(t, Load(write(t, "count: [\n"), &s), "parse config file")
	assert.ErrorIs(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &s), os.ErrNotExist)
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "default", s.Name)

	bad := sample{Count: -5}
	_, err = LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad)
	assert.Error(t, err, "defaults are validated too")

	found, err = LoadOptional(write(t, "name: file\n"), &s)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "file", s.Name)
}
