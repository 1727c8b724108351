package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/schardosin/formstudio/pkg/placement"
)

// Defaults for values the config file leaves empty.
const (
	DefaultPort           = 9393
	DefaultHost           = "localhost"
	DefaultDragThreshold  = 5.0
	DefaultBackupSchedule = "@daily"
	DefaultLogLevel       = "info"
)

type AppConfig struct {
	General   GeneralConfig             `yaml:"general"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Server    ServerConfig              `yaml:"server"`
	Storage   StorageConfig             `yaml:"storage"`
	Builder   BuilderConfig             `yaml:"builder"`
	Backup    BackupConfig              `yaml:"backup"`
}

type GeneralConfig struct {
	DefaultProvider string `yaml:"default_provider"`
	DefaultModel    string `yaml:"default_model"`
	LogLevel        string `yaml:"log_level,omitempty"`
}

type ProviderConfig map[string]string

type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	// WebDir serves the builder UI from disk instead of the embedded build.
	WebDir string `yaml:"web_dir,omitempty"`
}

type StorageConfig struct {
	DBPath     string `yaml:"db_path,omitempty"`
	HistoryDir string `yaml:"history_dir,omitempty"`
}

type BuilderConfig struct {
	DragThreshold   float64 `yaml:"drag_threshold,omitempty"`
	AllowNestedRows bool    `yaml:"allow_nested_rows"`
	MaxDepth        int     `yaml:"max_depth,omitempty"`
}

type BackupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule,omitempty"`
	Dir      string `yaml:"dir,omitempty"`
	// Format is "json" or "yaml".
	Format string `yaml:"format,omitempty"`
}

// Policy is the placement policy configured for the builder.
func (b BuilderConfig) Policy() placement.Policy {
	return placement.Policy{AllowNestedRows: b.AllowNestedRows, MaxDepth: b.MaxDepth}
}

func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "formstudio"), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ApplyDefaults fills empty values. Relative storage paths and empty ones
// resolve inside dir, the directory holding the config file.
func (c *AppConfig) ApplyDefaults(dir string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = DefaultLogLevel
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Builder.DragThreshold <= 0 {
		c.Builder.DragThreshold = DefaultDragThreshold
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = DefaultBackupSchedule
	}
	if c.Backup.Format == "" {
		c.Backup.Format = "json"
	}
	c.Storage.DBPath = resolve(dir, c.Storage.DBPath, "forms.db")
	c.Storage.HistoryDir = resolve(dir, c.Storage.HistoryDir, "history")
	c.Backup.Dir = resolve(dir, c.Backup.Dir, "backups")
}

func resolve(dir, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) || dir == "" {
		return value
	}
	return filepath.Join(dir, value)
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults(filepath.Dir(path))
	return &cfg, nil
}

func LoadAppConfig() (*AppConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes cfg to path, creating the directory when needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func SaveAppConfig(cfg *AppConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return Save(path, cfg)
}
