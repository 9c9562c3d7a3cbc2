package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "MARKS"
)

// Config keys.
const (
	KeyDataDir       = "data_dir"
	KeyAssetDir      = "asset_dir"
	KeyDatabase      = "database"
	KeyPageSize      = "page_size"
	KeySortKey       = "sort_key"
	KeySortDesc      = "sort_desc"
	KeyServerAddr    = "server.addr"
	KeyNotifyURL     = "server.notify_url"
	KeySkipIncognito = "capture.skip_incognito"
	KeyConcurrency   = "refresh.concurrency"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# marks configuration

# Where the library lives. Defaults to the config directory.
# data_dir:

# Screenshot storage. Defaults to <data_dir>/assets.
# asset_dir:

# Storage backend: auto, sqlite or json
database: auto

page_size: 21
sort_key: dateCreated
sort_desc: true

server:
  addr: 127.0.0.1:9494
  # Websocket the TUI subscribes to for capture notifications.
  notify_url: ws://127.0.0.1:9494/ws

capture:
  skip_incognito: false

refresh:
  concurrency: 8
`

// Config holds application configuration.
type Config struct {
	DataDir  string        `mapstructure:"data_dir"`
	AssetDir string        `mapstructure:"asset_dir"`
	Database string        `mapstructure:"database"`
	PageSize int           `mapstructure:"page_size"`
	SortKey  string        `mapstructure:"sort_key"`
	SortDesc bool          `mapstructure:"sort_desc"`
	Server   ServerConfig  `mapstructure:"server"`
	Capture  CaptureConfig `mapstructure:"capture"`
	Refresh  RefreshConfig `mapstructure:"refresh"`
}

// ServerConfig configures the capture server and its push endpoint.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	NotifyURL string `mapstructure:"notify_url"`
}

// CaptureConfig configures capture handling.
type CaptureConfig struct {
	SkipIncognito bool `mapstructure:"skip_incognito"`
}

// RefreshConfig configures bulk asset refresh.
type RefreshConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DefaultConfigDir returns ~/.config/marks.
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "marks"), nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault(KeyDataDir, configDir)
	v.SetDefault(KeyAssetDir, "")
	v.SetDefault(KeyDatabase, BackendAuto)
	v.SetDefault(KeyPageSize, 21)
	v.SetDefault(KeySortKey, "dateCreated")
	v.SetDefault(KeySortDesc, true)
	v.SetDefault(KeyServerAddr, "127.0.0.1:9494")
	v.SetDefault(KeyNotifyURL, "ws://127.0.0.1:9494/ws")
	v.SetDefault(KeySkipIncognito, false)
	v.SetDefault(KeyConcurrency, 8)
}

// NewViper returns a viper instance reading config.yaml from configDir, with
// MARKS_ environment overrides (MARKS_SERVER_ADDR for server.addr). The
// directory and a default config.yaml are created on first run.
func NewViper(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v, configDir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ConfigFromViper decodes v into a Config and fills derived defaults.
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.AssetDir = expandHome(cfg.AssetDir)
	if cfg.AssetDir == "" {
		cfg.AssetDir = filepath.Join(cfg.DataDir, "assets")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 21
	}
	if cfg.Refresh.Concurrency <= 0 {
		cfg.Refresh.Concurrency = 1
	}
	return &cfg, nil
}

// LoadConfig reads the configuration from configDir.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(configDir string) (*Config, error) {
	v, err := NewViper(configDir)
	if err != nil {
		return nil, err
	}
	return ConfigFromViper(v)
}

// SQLitePath returns the SQLite database path inside the data directory.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "marks.db")
}

// JSONPath returns the JSON library path inside the data directory.
func (c *Config) JSONPath() string {
	return filepath.Join(c.DataDir, "marks.json")
}

// LogPath returns the log file used while the TUI owns the terminal.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "marks.log")
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
