package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	// OpsAPIKey protects the service-to-service /api/v1/ops routes.
	// Participant and coach identity arrives as gateway headers.
	OpsAPIKey string `yaml:"ops_api_key"`
}

type ArchiveConfig struct {
	// Dir holds the SQLite results archive. Empty disables archiving.
	Dir string `yaml:"dir"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix CLASSPULSE_ and underscore-separated paths:
//
//	CLASSPULSE_SERVER_HOST, CLASSPULSE_SERVER_PORT,
//	CLASSPULSE_DB_HOST, CLASSPULSE_DB_PORT, CLASSPULSE_DB_NAME,
//	CLASSPULSE_DB_USER, CLASSPULSE_DB_PASSWORD, CLASSPULSE_DB_SSLMODE,
//	CLASSPULSE_AUTH_OPS_API_KEY, CLASSPULSE_ARCHIVE_DIR,
//	CLASSPULSE_TS_ENABLED, CLASSPULSE_TS_HOSTNAME, CLASSPULSE_TS_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLASSPULSE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CLASSPULSE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CLASSPULSE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("CLASSPULSE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("CLASSPULSE_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("CLASSPULSE_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("CLASSPULSE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("CLASSPULSE_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("CLASSPULSE_AUTH_OPS_API_KEY"); v != "" {
		cfg.Auth.OpsAPIKey = v
	}
	if v := os.Getenv("CLASSPULSE_ARCHIVE_DIR"); v != "" {
		cfg.Archive.Dir = v
	}
	if v := os.Getenv("CLASSPULSE_TS_ENABLED"); v != "" {
		cfg.Tailscale.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CLASSPULSE_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("CLASSPULSE_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.OpsAPIKey == "" {
		return fmt.Errorf("auth.ops_api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
