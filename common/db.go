package common

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pagetags/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDb opens the database named by the configuration. Driver errors
// such as unique violations are translated into gorm sentinels so callers
// can match them with errors.Is.
func ConnectDb(conf config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(conf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(conf.LogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Println("Error opening database: " + err.Error())
		return nil, fmt.Errorf("open %s database: %w", conf.Driver, err)
	}

	if conf.Driver == config.DriverSQLite {
		// sqlite ignores foreign keys unless asked on every connection
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Printf("opened %s database", conf.Driver)
	return db, nil
}

func dialectorFor(conf config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case config.DriverSQLite, "":
		if dir := filepath.Dir(sqliteFile(conf.DSN)); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqlite.Open(conf.DSN), nil
	case config.DriverPostgres:
		return postgres.Open(conf.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}

func sqliteFile(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}

// NewLogger maps a textual level onto the gorm logger.
func NewLogger(level string) logger.Interface {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Default.LogMode(logger.Silent)
	case "error":
		return logger.Default.LogMode(logger.Error)
	case "info":
		return logger.Default.LogMode(logger.Info)
	default:
		return logger.Default.LogMode(logger.Warn)
	}
}
