package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromPathCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, Default().LLM.FastModel, cfg.LLM.FastModel)
	assert.FileExists(t, path)
}

func TestLoadFromPathHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	t.Setenv("NEURO_LLM_FAST_MODEL", "llama3.1:8b")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", cfg.LLM.FastModel)
}

func TestExpandPathHandlesTilde(t *testing.T) {
	expanded := expandPath("~/.neuro/raptor")
	assert.NotContains(t, expanded, "~")
}
