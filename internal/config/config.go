package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.schemacanvas/schemacanvas.yaml"
	DefaultDataDir = "~/.schemacanvas"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
	DriverRemote   = "remote"
)

// Config is the top-level configuration.
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Storage StorageConfig `yaml:"storage"`
	Editor  EditorConfig  `yaml:"editor,omitempty"`
	Source  SourceConfig  `yaml:"source,omitempty"`
	Logging LogConfig     `yaml:"logging,omitempty"`
}

// ServerConfig defines the HTTP server used by the canvas client.
type ServerConfig struct {
	Port    int  `yaml:"port,omitempty"` // default 8230
	DevMode bool `yaml:"dev_mode,omitempty"`
}

// StorageConfig selects where projects are persisted.
type StorageConfig struct {
	Driver        string `yaml:"driver"`              // file, postgres, mongodb or remote
	Directory     string `yaml:"directory,omitempty"` // file driver, default ~/.schemacanvas/projects/
	PostgresURL   string `yaml:"postgres_url,omitempty"`
	MongoURI      string `yaml:"mongo_uri,omitempty"`
	MongoDatabase string `yaml:"mongo_database,omitempty"` // default schemacanvas
	RemoteURL     string `yaml:"remote_url,omitempty"`
	RemoteToken   string `yaml:"remote_token,omitempty"`
	CacheSize     int    `yaml:"cache_size,omitempty"` // default 64, negative disables
}

// EditorConfig holds editing defaults.
type EditorConfig struct {
	// AutoForeignKey is the default for new relationships; nil means true.
	AutoForeignKey *bool  `yaml:"auto_foreign_key,omitempty"`
	DBProvider     string `yaml:"db_provider,omitempty"` // default postgresql
}

// SourceConfig defines a live PostgreSQL database to discover a schema from.
type SourceConfig struct {
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Database       string `yaml:"database,omitempty"`
	Schema         string `yaml:"schema,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	SSL            bool   `yaml:"ssl,omitempty"`
	TypeMap        string `yaml:"type_map,omitempty"` // optional YAML overrides file
	MaxConnections int    `yaml:"max_connections,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.schemacanvas/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// AutoForeignKeyDefault reports whether new relationships create a foreign key by default.
func (e EditorConfig) AutoForeignKeyDefault() bool {
	return e.AutoForeignKey == nil || *e.AutoForeignKey
}

// Default returns a configuration that stores projects as files under the data directory.
func Default() *Config {
	cfg := &Config{
		Version: CurrentVersion,
		Storage: StorageConfig{Driver: DriverFile},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the selected storage driver has what it needs.
func (c *Config) Validate() error {
	s := c.Storage
	switch s.Driver {
	case DriverFile:
	case DriverPostgres:
		if s.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres driver")
		}
	case DriverMongo:
		if s.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongodb driver")
		}
	case DriverRemote:
		if s.RemoteURL == "" {
			return fmt.Errorf("storage.remote_url is required for the remote driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8230
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFile
	}
	if c.Storage.Directory == "" {
		c.Storage.Directory = ExpandHome(DefaultDataDir + "/projects/")
	}
	c.Storage.Directory = ExpandHome(c.Storage.Directory)
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "schemacanvas"
	}
	if c.Storage.CacheSize == 0 {
		c.Storage.CacheSize = 64
	}
	if c.Editor.DBProvider == "" {
		c.Editor.DBProvider = "postgresql"
	}
	if c.Source.Port == 0 {
		c.Source.Port = 5432
	}
	if c.Source.MaxConnections == 0 {
		c.Source.MaxConnections = 4
	}
	if c.Source.MaxConnections > 20 {
		c.Source.MaxConnections = 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome(DefaultDataDir + "/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	fields := []struct {
		name string
		val  *string
	}{
		{"storage postgres_url", &c.Storage.PostgresURL},
		{"storage mongo_uri", &c.Storage.MongoURI},
		{"storage remote_token", &c.Storage.RemoteToken},
		{"source password", &c.Source.Password},
	}
	for _, f := range fields {
		v, err := ResolveValue(*f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.val = v
	}
	return nil
}

// ResolveValue resolves every secret reference embedded in val, so a value
// like "postgres://app:${ENV:PG_PASS}@db/app" works as well as a bare reference.
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(match string) string {
		if firstErr != nil {
			return match
		}
		m := secretPattern.FindStringSubmatch(match)
		v, err := resolveRef(m[1], m[2])
		if err != nil {
			firstErr = err
			return match
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveRef(provider, ref string) (string, error) {
	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
