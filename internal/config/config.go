package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig   `mapstructure:"server"`
	Database       DatabaseConfig `mapstructure:"database"`
	APIToken       string         `mapstructure:"api_token"`
	DefaultTZ      string         `mapstructure:"default_tz"`
	AllowedOrigins string         `mapstructure:"allowed_origins"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for the SQLite database file
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite (the default).
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "" || d.Driver == "sqlite"
}

// Origins splits the comma separated allow-list. Blank and malformed entries
// are dropped; a "*" anywhere allows every origin and is returned alone.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return []string{"*"}
		}
		if normalized, ok := NormalizeOrigin(o); ok {
			origins = append(origins, normalized)
		}
	}
	return origins
}

// NormalizeOrigin accepts only bare http(s)://host[:port] origins and
// returns them lowercased.
func NormalizeOrigin(o string) (string, bool) {
	if o == "" {
		return "", false
	}
	u, err := url.Parse(o)
	if err != nil || u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), true
}

// Load reads tracker.yaml (optional) and the environment.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("tracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "tracker")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("api_token", "")
	v.SetDefault("default_tz", "UTC")
	v.SetDefault("allowed_origins", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Platform-style names used by existing deployments.
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")
	_ = v.BindEnv("api_token", "API_TOKEN")
	_ = v.BindEnv("default_tz", "DEFAULT_TZ")
	_ = v.BindEnv("allowed_origins", "ALLOWED_ORIGINS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
