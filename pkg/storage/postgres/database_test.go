package postgres_test

import (
	"testing"

	"klinecache/pkg/storage/postgres"
)

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBName = "test_kline_cache_db"

	// Running twice exercises the "already exists" path.
	for i := 0; i < 2; i++ {
		if err := postgres.CreateDatabase(cfg, "dev"); err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
	}
}
