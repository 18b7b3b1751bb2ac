package config

import (
	"context"
	"fmt"

	"github.com/householdledger/server/internal/repository"
	"github.com/householdledger/server/internal/utils"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Connect opens a new database handle and checks it with a ping
func Connect(cfg DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// SetupDatabase builds the ledger store and bootstraps its schema
func SetupDatabase(ctx context.Context, cfg *Config, logger *utils.Logger) (*repository.PostgresRepository, error) {
	dbCfg := cfg.Database
	repo, err := repository.NewPostgresRepository(func() (*sqlx.DB, error) {
		return Connect(dbCfg)
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := repo.Bootstrap(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}
