// Package config loads the server's runtime settings from YAML with VS_
// environment overrides. Gameplay numbers live in tuning.yaml, not here.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	SessionID string `mapstructure:"session_id"`
	Seed      int64  `mapstructure:"seed"`
	// AdminHTTP exposes /admin/v1/* to loopback clients.
	AdminHTTP bool `mapstructure:"admin_http"`
	PprofHTTP bool `mapstructure:"pprof_http"`
	// LevelLoopbackOnly restricts /v1/level to loopback clients.
	LevelLoopbackOnly bool          `mapstructure:"level_loopback_only"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type PathsConfig struct {
	Configs string `mapstructure:"configs"`
	Data    string `mapstructure:"data"`
	// Tuning defaults to <configs>/tuning.yaml.
	Tuning string `mapstructure:"tuning"`
	// Level is loaded at boot; empty means the newest file under
	// <data>/levels when LoadLatest is set, else a generated planet.
	Level      string `mapstructure:"level"`
	LoadLatest bool   `mapstructure:"load_latest"`
}

func (p PathsConfig) TuningPath() string {
	if p.Tuning != "" {
		return p.Tuning
	}
	return filepath.Join(p.Configs, "tuning.yaml")
}

func (p PathsConfig) LevelsDir() string { return filepath.Join(p.Data, "levels") }

type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type EventLogConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// EventsOnly skips ticks that produced no events.
	EventsOnly bool `mapstructure:"events_only"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is json or console.
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Index    IndexConfig    `mapstructure:"index"`
	EventLog EventLogConfig `mapstructure:"event_log"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

func (c Config) IndexPath() string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(c.Paths.Data, "index", "siege.sqlite")
}

func (c Config) Validate() error {
	var errs []string
	if c.Server.Addr == "" {
		errs = append(errs, "server.addr must not be empty")
	}
	if c.Server.SessionID == "" {
		errs = append(errs, "server.session_id must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout))
	}
	if c.Paths.Configs == "" {
		errs = append(errs, "paths.configs must not be empty")
	}
	if c.Paths.Data == "" {
		errs = append(errs, "paths.data must not be empty")
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads path (optional when empty), applies VS_ environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

func LoadFromViper(v *viper.Viper) (Config, error) {
	if v == nil {
		return Config{}, errors.New("nil viper")
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.session_id", "SIEGE")
	v.SetDefault("server.seed", 1337)
	v.SetDefault("server.admin_http", true)
	v.SetDefault("server.pprof_http", false)
	v.SetDefault("server.level_loopback_only", false)
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("paths.configs", "./configs")
	v.SetDefault("paths.data", "./data")
	v.SetDefault("paths.tuning", "")
	v.SetDefault("paths.level", "")
	v.SetDefault("paths.load_latest", true)

	v.SetDefault("index.enabled", true)
	v.SetDefault("index.path", "")

	v.SetDefault("event_log.enabled", true)
	v.SetDefault("event_log.events_only", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
