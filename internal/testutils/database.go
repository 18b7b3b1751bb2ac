// Package testutils opens the ledger store against a throwaway PostgreSQL
// schema for integration tests.
package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/householdledger/server/internal/config"
	"github.com/householdledger/server/internal/repository"
	"github.com/householdledger/server/internal/utils"
	"github.com/lib/pq"
)

// TestDatabaseConfig returns the configuration used by integration tests.
// Tests are skipped when the PG* environment variables are not set.
func TestDatabaseConfig(t *testing.T) *config.Config {
	t.Helper()

	config.LoadEnvFile()
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("skipping database test: %v", err)
	}

	// Use the dedicated test database when one is configured
	if cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	}
	return cfg
}

// ResetSchema drops and recreates schema so each test starts empty
func ResetSchema(t *testing.T, cfg *config.Config, schema string) {
	t.Helper()

	db, err := config.Connect(cfg.Database)
	if err != nil {
		t.Skipf("skipping database test: %v", err)
	}
	defer db.Close()

	quoted := pq.QuoteIdentifier(schema)
	if _, err := db.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", quoted)); err != nil {
		t.Fatalf("drop schema %s: %v", schema, err)
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE SCHEMA %s", quoted)); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}
}

// SetupTestRepository returns a bootstrapped store living in its own
// empty schema. Each test package passes a distinct schema name so
// packages can run in parallel against one database.
func SetupTestRepository(t *testing.T, schema string) *repository.PostgresRepository {
	t.Helper()

	cfg := TestDatabaseConfig(t)
	ResetSchema(t, cfg, schema)
	cfg.Database.SearchPath = schema

	repo, err := config.SetupDatabase(context.Background(), cfg, utils.NopLogger())
	if err != nil {
		t.Fatalf("set up test database: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}
