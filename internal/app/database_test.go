package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MarkoPoloResearchLab/hyperx/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/hyperx/internal/store/memstore"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
)

func TestResolveDriver(test *testing.T) {
	test.Parallel()
	dir := test.TempDir()
	testCases := []struct {
		name           string
		dsn            string
		expectedDriver string
		expectedPath   string
	}{
		{name: "postgres", dsn: "postgres://user@localhost/hyperx", expectedDriver: driverPostgres},
		{name: "postgresql", dsn: "postgresql://user@localhost/hyperx", expectedDriver: driverPostgres},
		{name: "memory", dsn: "memory", expectedDriver: driverMemory},
		{name: "absolute sqlite url", dsn: "sqlite://" + filepath.Join(dir, "a", "wallet.db"), expectedDriver: driverSQLite, expectedPath: filepath.Join(dir, "a", "wallet.db")},
		{name: "bare absolute path", dsn: filepath.Join(dir, "b.db"), expectedDriver: driverSQLite, expectedPath: filepath.Join(dir, "b.db")},
		{name: "in-memory sqlite", dsn: ":memory:", expectedDriver: driverSQLite, expectedPath: ":memory:"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			driver, path, err := resolveDriver(testCase.dsn)
			if err != nil {
				test.Fatalf("resolve failed: %v", err)
			}
			if driver != testCase.expectedDriver || path != testCase.expectedPath {
				test.Fatalf("expected %s %q, got %s %q", testCase.expectedDriver, testCase.expectedPath, driver, path)
			}
		})
	}
	if _, _, err := resolveDriver(" "); err == nil {
		test.Fatalf("expected error for empty dsn")
	}
}

func TestOpenStoreMemory(test *testing.T) {
	test.Parallel()
	store, cleanup, err := OpenStore(context.Background(), "MEMORY")
	if err != nil {
		test.Fatalf("open failed: %v", err)
	}
	defer func() { _ = cleanup() }()
	if _, ok := store.(*memstore.Store); !ok {
		test.Fatalf("expected memstore, got %T", store)
	}
}

func TestOpenStoreSQLite(test *testing.T) {
	test.Parallel()
	ctx := context.Background()
	dsn := "sqlite://" + filepath.Join(test.TempDir(), "nested", "hyperx.db")
	store, cleanup, err := OpenStore(ctx, dsn)
	if err != nil {
		test.Fatalf("open failed: %v", err)
	}
	defer func() { _ = cleanup() }()
	if _, ok := store.(*gormstore.Store); !ok {
		test.Fatalf("expected gormstore, got %T", store)
	}
	if _, err := store.Get(ctx, wallet.CacheKeyAssets); !errors.Is(err, wallet.ErrCacheMiss) {
		test.Fatalf("expected cache miss on a fresh database, got %v", err)
	}
	if err := store.Save(ctx, gateway.TokenPair{AccessToken: "a"}); err != nil {
		test.Fatalf("save failed: %v", err)
	}
	pair, err := store.Load(ctx)
	if err != nil || pair.AccessToken != "a" {
		test.Fatalf("unexpected pair %+v err=%v", pair, err)
	}
}
