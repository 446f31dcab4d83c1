// Package config loads campuscal settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen         = "127.0.0.1:8080"
	defaultDBPath         = "campuscal.db"
	defaultLogLevel       = "info"
	defaultAPIURL         = "http://127.0.0.1:8080"
	defaultRequestTimeout = 15 * time.Second

	envPrefix = "CAMPUSCAL_"
)

// BasicAuthConfig protects the API server. PasswordHash is a bcrypt hash,
// as printed by `campuscal hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type Config struct {
	// Server side.
	Listen    string           `yaml:"listen"`
	DBPath    string           `yaml:"db_path"`
	WSOrigins []string         `yaml:"ws_origins,omitempty"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
	// TrustProxy honours CF-Connecting-IP and X-Forwarded-For when keying
	// rate limits.
	TrustProxy bool `yaml:"trust_proxy,omitempty"`

	// Shared.
	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`

	// Client side.
	APIURL         string        `yaml:"api_url"`
	APIUsername    string        `yaml:"api_username,omitempty"`
	APIPassword    string        `yaml:"api_password,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		DBPath:         defaultDBPath,
		Timezone:       "Local",
		LogLevel:       defaultLogLevel,
		APIURL:         defaultAPIURL,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Normalize fills empty fields with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyEnv overrides fields from CAMPUSCAL_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str("LISTEN", &c.Listen)
	str("DB_PATH", &c.DBPath)
	str("TIMEZONE", &c.Timezone)
	str("LOG_LEVEL", &c.LogLevel)
	str("API_URL", &c.APIURL)
	str("API_USERNAME", &c.APIUsername)
	str("API_PASSWORD", &c.APIPassword)

	if v := getenv(envPrefix + "TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTRUST_PROXY: %w", envPrefix, err)
		}
		c.TrustProxy = b
	}

	if v := getenv(envPrefix + "REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		c.RequestTimeout = d
	}

	user := getenv(envPrefix + "AUTH_USERNAME")
	hash := getenv(envPrefix + "AUTH_PASSWORD_HASH")
	if user != "" || hash != "" {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		if user != "" {
			c.BasicAuth.Username = user
		}
		if hash != "" {
			c.BasicAuth.PasswordHash = hash
		}
	}

	c.Normalize()
	return nil
}

// Load reads the config at path. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions; it may hold
// credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".campuscal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
