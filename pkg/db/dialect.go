package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/offsession/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect resolves the gorm dialector. DATABASE_URL wins over the discrete
// DATABASE_* fields. MySQL is not offered: the stores depend on ON CONFLICT.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dbType := strings.ToLower(strings.TrimSpace(cfg.DBType))
	dsn := strings.TrimSpace(cfg.DatabaseURL)

	switch dbType {
	case "postgres", "postgresql", "":
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
				cfg.DBHost,
				cfg.DBUser,
				cfg.DBPassword,
				cfg.DBName,
				cfg.DBPort,
				cfg.DBSSLMode,
			)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		if dsn == "" {
			dsn = "offsession.db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

// IsPostgres reports whether cfg selects the postgres dialect.
func IsPostgres(cfg config.Config) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case "postgres", "postgresql", "":
		return true
	default:
		return false
	}
}
