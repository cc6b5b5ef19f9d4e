package config

import "time"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"

	defaultSecret = "change-me"
)

type AppConfig struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Session    SessionConfig    `koanf:"session"`
	JWT        JWTConfig        `koanf:"jwt"`
	Pagination PaginationConfig `koanf:"pagination"`
	Cache      CacheConfig      `koanf:"cache"`
	CORS       CORSConfig       `koanf:"cors"`
	Security   SecurityConfig   `koanf:"security"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	Mode string `koanf:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver"` // sqlite, postgres
	DSN      string `koanf:"dsn"`
	LogLevel string `koanf:"log_level"` // silent, error, warn, info
}

type SessionConfig struct {
	Name   string `koanf:"name"`
	Secret string `koanf:"secret"`
	MaxAge int    `koanf:"max_age"` // seconds
}

type JWTConfig struct {
	Secret      string `koanf:"secret"`
	ExpireHours int    `koanf:"expire_hours"` // 0 issues tokens without exp
}

type PaginationConfig struct {
	FrontPageItemCount int `koanf:"front_page_item_count"`
	TagPostsPerPage    int `koanf:"tag_posts_per_page"`
	TagsPerPage        int `koanf:"tags_per_page"`
	CategoriesPerPage  int `koanf:"categories_per_page"`
	AdminPerPage       int `koanf:"admin_per_page"`
	MaxPerPage         int `koanf:"max_per_page"`
}

type CacheConfig struct {
	Backend string        `koanf:"backend"` // none, file, redis
	Dir     string        `koanf:"dir"`
	TTL     time.Duration `koanf:"ttl"`
	Redis   RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
}

type SecurityConfig struct {
	BcryptCost int `koanf:"bcrypt_cost"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host: "",
			Port: 8080,
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			DSN:      "pagetags.db?_foreign_keys=on",
			LogLevel: "warn",
		},
		Session: SessionConfig{
			Name:   "pagetags-session",
			Secret: defaultSecret,
			MaxAge: 86400 * 7,
		},
		JWT: JWTConfig{
			Secret:      defaultSecret,
			ExpireHours: 0,
		},
		Pagination: PaginationConfig{
			FrontPageItemCount: 10,
			TagPostsPerPage:    10,
			TagsPerPage:        10,
			CategoriesPerPage:  10,
			AdminPerPage:       20,
			MaxPerPage:         100,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     "cache",
			TTL:     10 * time.Minute,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "pagetags:page:",
			},
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:8080"},
		},
		Security: SecurityConfig{
			BcryptCost: 12,
		},
	}
}
