package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Store types accepted by users.store
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common" envPrefix:"USERDIR_"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() error {
	LoadDefault()

	configFile := os.Getenv("USERDIR_CONFIG_FILE")
	if configFile == "" {
		configFile = "userdir.yaml"
	}

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file %s: %v, using defaults", configFile, err)
	}

	if err := ApplyEnvOverrides(); err != nil {
		return err
	}

	return _loaded.Validate()
}

// LoadDefault resets the configuration to the defaults
func LoadDefault() {
	cfg := defaultConfig
	_loaded = &cfg
}

// LoadFromFile loads configuration from a YAML file merged over the defaults
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	_loaded = &cfg
	return nil
}

// ApplyEnvOverrides overrides loaded values with USERDIR_* environment variables
func ApplyEnvOverrides() error {
	if _loaded == nil {
		LoadDefault()
	}

	if err := env.Parse(_loaded); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Common.Http.Port <= 0 {
		return fmt.Errorf("http.port must be a positive integer")
	}
	if c.Common.Users.MinAdultAge < 0 {
		return fmt.Errorf("users.min_adult_age must not be negative")
	}
	switch c.Common.Users.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("users.store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Common.Users.Store)
	}
	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Postgres: postgresConfig{
			User:               "postgres",
			Password:           "postgres",
			Host:               "localhost",
			Port:               5432,
			Database:           "userdir",
			MaxOpenConnections: 10,
		},
		Users: usersConfig{
			MinAdultAge: 18,
			Store:       StorePostgres,
		},
	},
}

type Common struct {
	Log      logConfig      `yaml:"log" envPrefix:"LOG_"`
	Http     httpConfig     `yaml:"http" envPrefix:"HTTP_"`
	Postgres postgresConfig `yaml:"postgres" envPrefix:"DB_"`
	Users    usersConfig    `yaml:"users" envPrefix:"USERS_"`
}

type logConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type httpConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Addr returns the listen address
func (c httpConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type postgresConfig struct {
	User               string `yaml:"user" env:"USER"`
	Password           string `yaml:"password" env:"PASSWORD"`
	Host               string `yaml:"host" env:"HOST"`
	Port               int    `yaml:"port" env:"PORT"`
	Database           string `yaml:"database" env:"NAME"`
	MaxOpenConnections int    `yaml:"max_open_connections" env:"MAX_OPEN_CONNECTIONS"`
}

// DSN builds a pgdriver connection URL
func (c postgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type usersConfig struct {
	MinAdultAge int    `yaml:"min_adult_age" env:"MIN_ADULT_AGE"` // minimum age in full years to register
	Store       string `yaml:"store" env:"STORE"`                 // "postgres" or "memory"
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

func Users() usersConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Users
}

func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}
