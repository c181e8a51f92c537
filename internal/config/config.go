// Package config resolves settings from flags, OUTLINER_* environment variables and
// $HOME/.config/outliner/config.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"outliner-cli/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "OUTLINER"

// Keys.
const (
	KeyDataDir    = "data_dir"
	KeyServerURL  = "server_url"
	KeyPage       = "page"
	KeyDebounce   = "debounce"
	KeyLogLevel   = "log_level"
	KeyLogFile    = "log_file"
	KeyListenAddr = "listen_addr"
	KeyFormat     = "format"
	KeyReadOnly   = "read_only"
)

const (
	DefaultDebounce   = 750 * time.Millisecond
	DefaultListenAddr = "127.0.0.1:3340"
	DefaultLogLevel   = "warn"
	DefaultFormat     = "json"
)

type Config struct {
	DataDir    string        `yaml:"data_dir"`
	ServerURL  string        `yaml:"server_url,omitempty"`
	Page       string        `yaml:"page,omitempty"`
	Debounce   time.Duration `yaml:"debounce"`
	LogLevel   string        `yaml:"log_level"`
	LogFile    string        `yaml:"log_file,omitempty"`
	ListenAddr string        `yaml:"listen_addr"`
	Format     string        `yaml:"format"`
	ReadOnly   bool          `yaml:"read_only,omitempty"`

	// File is the config file that was read, if any.
	File string `yaml:"-"`
}

// Remote reports whether notes live behind an HTTP server rather than the local store.
func (c Config) Remote() bool { return strings.TrimSpace(c.ServerURL) != "" }

func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "outliner")
}

// defaultDataDir prefers a project-local .outliner directory over the per-user one.
func defaultDataDir() string {
	if dir, err := store.DefaultDir(); err == nil {
		return dir
	}
	return ".outliner"
}

// New returns a viper instance with defaults and environment binding. Callers bind their flags
// to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyServerURL, "")
	v.SetDefault(KeyPage, "")
	v.SetDefault(KeyDebounce, DefaultDebounce)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyListenAddr, DefaultListenAddr)
	v.SetDefault(KeyFormat, DefaultFormat)
	v.SetDefault(KeyReadOnly, false)
	return v
}

// Load reads file (or the default config file when file is "") into v and returns the effective
// settings. A missing default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else if dir := DefaultDir(); dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	c := Config{
		DataDir:    strings.TrimSpace(v.GetString(KeyDataDir)),
		ServerURL:  strings.TrimSpace(v.GetString(KeyServerURL)),
		Page:       strings.TrimSpace(v.GetString(KeyPage)),
		Debounce:   v.GetDuration(KeyDebounce),
		LogLevel:   strings.TrimSpace(v.GetString(KeyLogLevel)),
		LogFile:    strings.TrimSpace(v.GetString(KeyLogFile)),
		ListenAddr: strings.TrimSpace(v.GetString(KeyListenAddr)),
		Format:     strings.TrimSpace(v.GetString(KeyFormat)),
		ReadOnly:   v.GetBool(KeyReadOnly),
		File:       v.ConfigFileUsed(),
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.DataDir == "" && !c.Remote() {
		return errors.New("config: data_dir is empty")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("config: debounce must be positive, got %s", c.Debounce)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch c.Format {
	case "json", "edn", "yaml":
	default:
		return fmt.Errorf("config: unknown format %q (want json|edn|yaml)", c.Format)
	}
	if c.Remote() && !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("config: server_url must be an http(s) URL, got %q", c.ServerURL)
	}
	return nil
}
