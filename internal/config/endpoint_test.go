package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/littletreat/internal/config"
)

func TestEndpoint_Resolve(t *testing.T) {
	dir := t.TempDir()
	overrideFile := filepath.Join(dir, "endpoint")

	e := config.NewEndpoint("https://default.example/exec", overrideFile)
	u, err := e.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://default.example/exec", u)

	require.NoError(t, os.WriteFile(overrideFile, []byte("  https://override.example/exec\n"), 0o600))
	u, err = e.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://override.example/exec", u)

	require.NoError(t, os.WriteFile(overrideFile, []byte("\n"), 0o600))
	u, err = e.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://default.example/exec", u, "a blank override falls back to the default")
}

func TestEndpoint_Missing(t *testing.T) {
	e := config.NewEndpoint("", filepath.Join(t.TempDir(), "endpoint"))

	_, err := e.Resolve()

	require.ErrorIs(t, err, config.ErrEndpointMissing)
	assert.False(t, e.Configured())
}

func TestEndpoint_Override(t *testing.T) {
	overrideFile := filepath.Join(t.TempDir(), "endpoint")
	e := config.NewEndpoint("", overrideFile)

	require.NoError(t, e.Override(" https://script.google.com/macros/s/xyz/exec "))

	assert.True(t, e.Configured())
	u, err := e.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://script.google.com/macros/s/xyz/exec", u)

	other := config.NewEndpoint("", overrideFile)
	u, err = other.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "https://script.google.com/macros/s/xyz/exec", u, "the override survives a restart")
}

func TestEndpoint_OverrideRejects(t *testing.T) {
	e := config.NewEndpoint("", filepath.Join(t.TempDir(), "endpoint"))

	require.ErrorIs(t, e.Override("ftp://example.com"), config.ErrInvalidEndpoint)
	require.ErrorIs(t, e.Override(""), config.ErrInvalidEndpoint)

	noFile := config.NewEndpoint("", "")
	require.ErrorIs(t, noFile.Override("https://example.com"), config.ErrEndpointMissing)
}
