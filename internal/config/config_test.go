package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setPGEnv(t *testing.T) {
	t.Setenv("PGDATABASE", "ledger")
	t.Setenv("PGUSER", "ledger")
	t.Setenv("PGPASSWORD", "secret")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "5433")
}

func TestLoadConfig(t *testing.T) {
	setPGEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "ledger", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadConfigMissingEnv(t *testing.T) {
	setPGEnv(t)
	t.Setenv("PGHOST", "")
	t.Setenv("PGPASSWORD", "")

	cfg, err := LoadConfig()
	assert.Nil(t, cfg)

	var missing *MissingEnvError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"PGHOST", "PGPASSWORD"}, missing.Keys)
	assert.Contains(t, err.Error(), "PGHOST, PGPASSWORD")
}

func TestLoadConfigInvalidPort(t *testing.T) {
	setPGEnv(t)
	t.Setenv("PGPORT", "five")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "invalid PGPORT")
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host:       "localhost",
		Port:       5432,
		Username:   "postgres",
		Password:   "it's a secret",
		DBName:     "ledger",
		SSLMode:    "disable",
		SearchPath: "repository_test",
	}

	assert.Equal(t,
		`host=localhost port=5432 user=postgres password='it\'s a secret' dbname=ledger sslmode=disable search_path=repository_test`,
		c.GetDSN())

	c.Password = ""
	c.SearchPath = ""
	assert.Equal(t,
		`host=localhost port=5432 user=postgres password='' dbname=ledger sslmode=disable`,
		c.GetDSN())
}
