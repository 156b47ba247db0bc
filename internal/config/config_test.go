package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3210, cfg.Port)
	assert.Equal(t, "data/clawpm.db", cfg.DBPath)
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 8080, "db_path": "/tmp/x.db"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 3210, cfg.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("CLAWPM_PORT", "4321")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4321, cfg.Port)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": -1}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
