package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env        string        `yaml:"env"`
	BaseURL    string        `yaml:"base_url"`
	StaticDir  string        `yaml:"static_dir"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	ShortCode  `yaml:"short_code"`
	HTTPServer `yaml:"http_server"`
	SQLite     `yaml:"sqlite"`
}

type ShortCode struct {
	Length      int `yaml:"length"`
	MaxAttempts int `yaml:"max_attempts"`
}

var defaultShortCode = ShortCode{
	Length:      6,
	MaxAttempts: 10,
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8000,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type SQLite struct {
	Path            string        `yaml:"path"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultSQLite = SQLite{
	Path:            "urls.db",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    2,
	MaxOpenConns:    10,
}

// DSN builds the mattn/go-sqlite3 connection string. The busy timeout keeps
// concurrent writers queuing instead of failing with SQLITE_BUSY.
func (s *SQLite) DSN() string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", s.Path)
}

// Load reads the YAML config at path, layering it over the defaults. An empty
// path yields pure defaults, so the server can start without a config file.
// BASE_URL and SQLITE_PATH environment variables override the file last.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8000"
	cfg.StaticDir = "static"
	cfg.CacheTTL = 5 * time.Minute
	cfg.ShortCode = defaultShortCode
	cfg.HTTPServer = defaultHTTPServer
	cfg.SQLite = defaultSQLite
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
}
