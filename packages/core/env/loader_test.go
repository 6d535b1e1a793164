package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, "http-client.env.json", `{
  "dev": {"host": "http://localhost:8080", "port": 8080, "debug": true, "nested": {"a": 1}},
  "prod": {"host": "https://api.example.com"}
}`)

	env, err := LoadEnvironment(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", env.Name)
	assert.Equal(t, "http://localhost:8080", env.Variables["host"])
	assert.Equal(t, "8080", env.Variables["port"])
	assert.Equal(t, "true", env.Variables["debug"])
	assert.Equal(t, `{"a":1}`, env.Variables["nested"])
}

func TestLoadEnvironment_PrivateOverrides(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, dir, "http-client.env.json", `{"dev": {"host": "http://h", "token": "public"}}`)
	writeEnvFile(t, dir, "http-client.private.env.json", `{"dev": {"token": "secret"}}`)

	env, err := LoadEnvironment(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "http://h", env.Variables["host"])
	assert.Equal(t, "secret", env.Variables["token"])
}

func TestLoadEnvironment_NoName(t *testing.T) {
	env, err := LoadEnvironment(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, env.Variables)
}

func TestLoadEnvironment_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadEnvironment(t.TempDir(), "dev")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEnvironmentNotFound)
	})

	t.Run("unknown environment", func(t *testing.T) {
		dir := t.TempDir()
		writeEnvFile(t, dir, "http-client.env.json", `{"prod": {}, "dev": {}}`)

		_, err := LoadEnvironment(dir, "staging")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEnvironmentNotFound)
		assert.Contains(t, err.Error(), "dev, prod")
	})

	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		writeEnvFile(t, dir, "http-client.env.json", `{not json`)

		_, err := LoadEnvironment(dir, "dev")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEnvironmentNotFound)
	})
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(
		map[string]string{"a": "1", "b": "1"},
		nil,
		map[string]string{"b": "2"},
	)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("HTTPIPE_VAR_token", "abc")
	t.Setenv("HTTPIPE_VAR_", "ignored")

	got := LoadSystemEnv("HTTPIPE_VAR_")
	assert.Equal(t, "abc", got["token"])
	_, ok := got[""]
	assert.False(t, ok)

	assert.Empty(t, LoadSystemEnv(""))
}
