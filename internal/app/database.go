package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/hyperx/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/hyperx/internal/store/memstore"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
	driverMemory   = "memory"
)

// Store persists the token pair and the wallet cache mirror.
type Store interface {
	gateway.TokenStore
	wallet.Cache
}

// OpenStore opens the store named by dsn and returns a cleanup function.
func OpenStore(ctx context.Context, dsn string) (Store, func() error, error) {
	if strings.EqualFold(strings.TrimSpace(dsn), DatabaseMemory) {
		return memstore.New(), func() error { return nil }, nil
	}
	db, cleanup, driver, err := openDatabase(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("database open: %w", err)
	}
	store := gormstore.New(db)
	if err := prepareSchema(ctx, store, driver); err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	cfg := &gorm.Config{}
	switch driver {
	case driverPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case driverSQLite:
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return "", "", fmt.Errorf("database url is required")
	}
	if strings.EqualFold(trimmed, DatabaseMemory) {
		return driverMemory, "", nil
	}
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		return driverPostgres, "", nil
	}
	if strings.HasPrefix(trimmed, "sqlite://") {
		u, err := url.Parse(trimmed)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Host + u.Path
		if path == "" || path == "/" {
			path = "hyperx.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return driverSQLite, sqlitePath, err
	}
	sqlitePath, err := normalizeSQLitePath(trimmed)
	return driverSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func prepareSchema(ctx context.Context, store *gormstore.Store, driver string) error {
	if driver != driverSQLite && driver != driverPostgres {
		return fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
