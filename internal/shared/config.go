package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	DevelopmentRemoteURL = "http://localhost:5173"
	ProductionRemoteURL  = "https://app.edjs.art"
)

// Remote status request modes.
const (
	ModeAuto         = "auto"
	ModeCredentialed = "credentialed"
	ModeCallback     = "callback"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Site       SiteConfig        `toml:"site"`
	Remote     RemoteConfig      `toml:"remote"`
	Auth       AuthConfig        `toml:"auth"`
	Session    SessionConfig     `toml:"session"`
	Storage    StorageConfig     `toml:"storage"`
	Database   DatabaseConfig    `toml:"database"`
	Server     ServerConfig      `toml:"server"`
	Log        LogConfig         `toml:"log"`
	Spectacles []SpectacleConfig `toml:"spectacles"`
}

// SiteConfig describes the marketing site the session is mirrored for.
type SiteConfig struct {
	Host    string `toml:"host"`
	PageURL string `toml:"page_url"`
}

// RemoteConfig contains settings for the remote authentication service.
type RemoteConfig struct {
	BaseURL    string   `toml:"base_url"`
	Mode       string   `toml:"mode"`
	Credential string   `toml:"credential"`
	Timeout    Duration `toml:"timeout"`
}

// AuthConfig controls reconciliation behavior.
type AuthConfig struct {
	RemoteFallback  bool     `toml:"remote_fallback"`
	RecheckInterval Duration `toml:"recheck_interval"`
	LoginTimeout    Duration `toml:"login_timeout"`
}

// SessionConfig names the storage scope standing in for a browser tab.
type SessionConfig struct {
	Scope string `toml:"scope"`
}

// StorageConfig selects the session storage backend.
type StorageConfig struct {
	Driver string `toml:"driver"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local callback listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// SpectacleConfig is a catalogue entry rendered as a reservation button.
type SpectacleConfig struct {
	ID    string `toml:"id"`
	Title string `toml:"title"`
}

// Duration wraps [time.Duration] so it can be written as "10s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// RemoteURL returns the auth service base URL, selected once from the site host unless configured explicitly.
func (c *Config) RemoteURL() string {
	if c.Remote.BaseURL != "" {
		return strings.TrimRight(c.Remote.BaseURL, "/")
	}
	return ResolveRemoteURL(c.Site.Host)
}

// ListenAddr returns host:port for the local callback listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CallbackURL returns the login return URL served by the local listener.
func (c *Config) CallbackURL() string {
	return fmt.Sprintf("http://%s/callback", c.ListenAddr())
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.Remote.Mode {
	case ModeAuto, ModeCredentialed, ModeCallback:
	default:
		return fmt.Errorf("%w: remote.mode must be auto, credentialed or callback, got %q", ErrInvalidConfig, c.Remote.Mode)
	}

	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w: storage.driver must be sqlite or memory, got %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Session.Scope == "" {
		return fmt.Errorf("%w: session.scope is required", ErrInvalidConfig)
	}
	if c.Remote.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: remote.timeout must be positive", ErrInvalidConfig)
	}
	if c.Auth.RecheckInterval.Duration < 0 {
		return fmt.Errorf("%w: auth.recheck_interval must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ResolveRemoteURL selects the development auth service for local hosts and production otherwise.
func ResolveRemoteURL(host string) string {
	hostname := host
	if h, _, ok := strings.Cut(host, ":"); ok {
		hostname = h
	}

	switch strings.ToLower(hostname) {
	case "localhost", "127.0.0.1":
		return DevelopmentRemoteURL
	default:
		return ProductionRemoteURL
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv loads a .env file when present and applies EDJS_* overrides to the config.
func ApplyEnv(config *Config) error {
	if err := godotenv.Load(); err != nil {
		_ = err // a missing .env file is the normal case
	}

	if v := os.Getenv("EDJS_REMOTE_URL"); v != "" {
		config.Remote.BaseURL = v
	}
	if v := os.Getenv("EDJS_SITE_HOST"); v != "" {
		config.Site.Host = v
	}
	if v := os.Getenv("EDJS_SESSION_SCOPE"); v != "" {
		config.Session.Scope = v
	}
	if v := os.Getenv("EDJS_STORAGE_DRIVER"); v != "" {
		config.Storage.Driver = v
	}
	if v := os.Getenv("EDJS_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("EDJS_REMOTE_CREDENTIAL"); v != "" {
		config.Remote.Credential = v
	}

	return config.Validate()
}
