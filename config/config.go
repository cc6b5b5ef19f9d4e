package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: PAGETAGS_JWT__SECRET sets jwt.secret.
const EnvPrefix = "PAGETAGS_"

// Load builds the configuration from code defaults, the optional YAML file
// at path and PAGETAGS_* environment variables, in that order of precedence.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else {
			log.Printf("config file %s not found, using defaults", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	conf := Default()
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return conf, nil
}

// MustLoad loads the configuration or exits.
func MustLoad(path string) *AppConfig {
	conf, err := Load(path)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return conf
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate rejects configurations that are unsafe to serve with.
func (c *AppConfig) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return fmt.Errorf("unsupported cache.backend %q", c.Cache.Backend)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server.mode %q", c.Server.Mode)
	}
	if c.Pagination.MaxPerPage < 1 {
		return errors.New("pagination.max_per_page must be positive")
	}
	if c.Server.Mode == "release" {
		if c.JWT.Secret == "" || c.JWT.Secret == defaultSecret {
			return errors.New("jwt.secret must be set in release mode")
		}
		if c.Session.Secret == "" || c.Session.Secret == defaultSecret {
			return errors.New("session.secret must be set in release mode")
		}
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
