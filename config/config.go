// Package config loads the portal configuration from a YAML or TOML
// file, then applies MUSICPORTAL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	EnvListenAddr    = "MUSICPORTAL_LISTEN_ADDR"
	EnvDBDriver      = "MUSICPORTAL_DB_DRIVER"
	EnvDBDSN         = "MUSICPORTAL_DB_DSN"
	EnvStorageDir    = "MUSICPORTAL_STORAGE_DIR"
	EnvStorageSecret = "MUSICPORTAL_STORAGE_SECRET"
	EnvWebhookURL    = "MUSICPORTAL_NOTIFY_WEBHOOK"
	EnvLogLevel      = "MUSICPORTAL_LOG_LEVEL"
)

type Config struct {
	HttpListenAddr string
	LogLevel       string
	Database       DatabaseConfig
	Storage        StorageConfig
	Artwork        ArtworkConfig
	Auth           AuthConfig
	Notify         NotifyConfig
}

type DatabaseConfig struct {
	Driver string // sqlite | postgres
	DSN    string
}

type StorageConfig struct {
	FileDir          string
	BaseUrl          string
	SigningSecret    string
	URLExpiryMinutes int
	MaxUploadMB      int
}

// ArtworkConfig bounds the side length of square cover art, in pixels.
type ArtworkConfig struct {
	MinPixels int
	MaxPixels int
}

type AuthConfig struct {
	SessionTTLHours        int
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

type NotifyConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

func Default() *Config {
	return &Config{
		HttpListenAddr: ":8086",
		LogLevel:       "info",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "musicportal.db",
		},
		Storage: StorageConfig{
			FileDir:          "objects",
			URLExpiryMinutes: 15,
			MaxUploadMB:      200,
		},
		Artwork: ArtworkConfig{
			MinPixels: 1400,
			MaxPixels: 6000,
		},
		Auth: AuthConfig{
			SessionTTLHours: 72,
		},
		Notify: NotifyConfig{
			TimeoutSeconds: 5,
		},
	}
}

// Load reads the config file at path on top of Default().
// An empty path skips the file. The format follows the extension:
// .toml for TOML, anything else is YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if isToml(path) {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MUSICPORTAL_* environment variables.
func (c *Config) ApplyEnv() {
	envString(EnvListenAddr, &c.HttpListenAddr)
	envString(EnvDBDriver, &c.Database.Driver)
	envString(EnvDBDSN, &c.Database.DSN)
	envString(EnvStorageDir, &c.Storage.FileDir)
	envString(EnvStorageSecret, &c.Storage.SigningSecret)
	envString(EnvWebhookURL, &c.Notify.WebhookURL)
	envString(EnvLogLevel, &c.LogLevel)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn is empty")
	}
	if c.Storage.FileDir == "" {
		return errors.New("config: storage file dir is empty")
	}
	if c.Artwork.MinPixels <= 0 || c.Artwork.MaxPixels < c.Artwork.MinPixels {
		return fmt.Errorf("config: invalid artwork bounds [%d, %d]",
			c.Artwork.MinPixels, c.Artwork.MaxPixels)
	}
	if c.Storage.URLExpiryMinutes <= 0 {
		return errors.New("config: storage url expiry must be positive")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return errors.New("config: storage max upload size must be positive")
	}
	return nil
}

func (c *Config) Write(dst io.Writer) error {
	enc := yaml.NewEncoder(dst)
	if err := enc.Encode(&c); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFile writes c to path in the format its extension asks for.
func (c *Config) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isToml(path) {
		return toml.NewEncoder(f).Encode(c)
	}
	return c.Write(f)
}

func isToml(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// EnvBool reads a boolean environment variable, falling back when
// it is unset or unparsable.
func EnvBool(key string, fallback bool) bool {
	if e, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(e); err == nil {
			return b
		}
	}
	return fallback
}
