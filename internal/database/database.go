package database

import (
	"errors"
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var errMissingDatabaseURL = errors.New("database url is required")

// Open establishes a connection for the given URL, migrates the supplied models
// and applies pending one-shot migrations.
//
// postgres:// and postgresql:// URLs select PostgreSQL; sqlite:// URLs and bare
// paths select SQLite.
func Open(databaseURL string, logger *zap.Logger, models ...any) (*gorm.DB, error) {
	dialector, dialect, target, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, err
		}
	}

	if err := db.AutoMigrate(&migrationRecord{}); err != nil {
		return nil, err
	}
	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	logger.Info("database initialized", zap.String("dialect", dialect), zap.String("target", target))
	return db, nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, string, error) {
	trimmed := strings.TrimSpace(databaseURL)
	if trimmed == "" {
		return nil, "", "", errMissingDatabaseURL
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(trimmed), DialectPostgres, redactURL(trimmed), nil
	case strings.HasPrefix(lower, "sqlite:///"):
		path := trimmed[len("sqlite:///"):]
		if path == "" {
			return nil, "", "", fmt.Errorf("%w: sqlite path missing", errMissingDatabaseURL)
		}
		return sqlite.Open(path), DialectSQLite, path, nil
	case strings.HasPrefix(lower, "sqlite://"):
		path := trimmed[len("sqlite://"):]
		if path == "" {
			return nil, "", "", fmt.Errorf("%w: sqlite path missing", errMissingDatabaseURL)
		}
		return sqlite.Open(path), DialectSQLite, path, nil
	default:
		return sqlite.Open(trimmed), DialectSQLite, trimmed, nil
	}
}

// redactURL hides credentials so the connection target can be logged.
func redactURL(value string) string {
	schemeEnd := strings.Index(value, "://")
	at := strings.LastIndex(value, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return value
	}
	return value[:schemeEnd+3] + "***" + value[at:]
}
