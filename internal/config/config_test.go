package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, c.Debounce)
	assert.Equal(t, DefaultListenAddr, c.ListenAddr)
	assert.Equal(t, "json", c.Format)
	assert.Equal(t, "warn", c.LogLevel)
	assert.False(t, c.Remote())
	assert.NotEmpty(t, c.DataDir)
	assert.Empty(t, c.File)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "data_dir: /tmp/notes\npage: inbox\ndebounce: 2s\nformat: yaml\n")
	t.Setenv("OUTLINER_PAGE", "journal")

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/notes", c.DataDir)
	assert.Equal(t, "journal", c.Page, "environment wins over the file")
	assert.Equal(t, 2*time.Second, c.Debounce)
	assert.Equal(t, "yaml", c.Format)
	assert.Equal(t, path, c.File)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Config{DataDir: "x", Debounce: time.Second, LogLevel: "info", Format: "edn"}
	require.NoError(t, ok.Validate())

	for name, mut := range map[string]func(*Config){
		"debounce":   func(c *Config) { c.Debounce = 0 },
		"log level":  func(c *Config) { c.LogLevel = "loud" },
		"format":     func(c *Config) { c.Format = "xml" },
		"server url": func(c *Config) { c.ServerURL = "localhost:3340" },
		"data dir":   func(c *Config) { c.DataDir = "" },
	} {
		c := ok
		mut(&c)
		assert.Error(t, c.Validate(), name)
	}

	remote := ok
	remote.DataDir = ""
	remote.ServerURL = "http://127.0.0.1:3340"
	assert.NoError(t, remote.Validate(), "remote mode needs no data dir")
}
