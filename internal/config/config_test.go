package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bir/internal/vm"
)

func TestDefaults(t *testing.T) {
	cfg, err := Resolve(New())
	require.NoError(t, err)

	assert.Equal(t, Config{
		MaxCallDepth: vm.DefaultMaxCallDepth,
		MemorySize:   vm.DefaultMemorySize,
		Target:       DefaultTarget,
		Format:       "text",
	}, cfg)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BIR_MAX_CALL_DEPTH", "16")
	t.Setenv("BIR_MEMORY_SIZE", "4096")
	t.Setenv("BIR_TARGET", "noop")
	t.Setenv("BIR_DB", "/tmp/bir.db")
	t.Setenv("BIR_NO_COLOR", "true")

	cfg, err := Resolve(New())
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.MaxCallDepth)
	assert.Equal(t, uint64(4096), cfg.MemorySize)
	assert.Equal(t, "noop", cfg.Target)
	assert.Equal(t, "/tmp/bir.db", cfg.DB)
	assert.True(t, cfg.NoColor)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bir.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max-call-depth: 32\nformat: JSON\ndb: cache.db\n"), 0644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Resolve(v)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.MaxCallDepth)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "cache.db", cfg.DB)
}

func TestReadFileEmptyPathIsNoop(t *testing.T) {
	require.NoError(t, ReadFile(New(), ""))
}

func TestReadFileMissing(t *testing.T) {
	err := ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bir.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max-call-depth: 32\nmemory-size: 8192\n"), 0644))
	t.Setenv("BIR_MAX_CALL_DEPTH", "64")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int(KeyMaxCallDepth, 0, "")
	fs.String("unrelated", "", "")
	require.NoError(t, fs.Parse([]string{"--max-call-depth=128"}))

	v := New()
	require.NoError(t, ReadFile(v, path))
	require.NoError(t, BindFlags(v, fs))

	cfg, err := Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.MaxCallDepth, "flag beats env and file")
	assert.Equal(t, uint64(8192), cfg.MemorySize, "file beats default")
}

func TestUnchangedFlagDoesNotOverrideEnv(t *testing.T) {
	t.Setenv("BIR_TARGET", "noop")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyTarget, DefaultTarget, "")
	require.NoError(t, fs.Parse(nil))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, "noop", cfg.Target)
}

func TestValidate(t *testing.T) {
	cfg := Config{MaxCallDepth: 0, MemorySize: 8, Target: "", Format: "yaml"}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "max-call-depth must be positive")
	assert.Contains(t, msg, "memory-size must be at least 64")
	assert.Contains(t, msg, "target must not be empty")
	assert.Contains(t, msg, `format must be text or json, got "yaml"`)
}

func TestVMOptions(t *testing.T) {
	cfg := Config{MaxCallDepth: 8, MemorySize: 4096}
	assert.Len(t, cfg.VMOptions(), 2)
}
