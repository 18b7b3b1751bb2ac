package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DBName     string
	SSLMode    string
	SearchPath string // Optional schema search path, used to isolate tests
	TestDBName string // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string
}

// MissingEnvError lists required environment variables that are not set
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	parts := []string{
		"host=" + quoteDSNValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + quoteDSNValue(c.Username),
		"password=" + quoteDSNValue(c.Password),
		"dbname=" + quoteDSNValue(c.DBName),
		"sslmode=" + quoteDSNValue(c.SSLMode),
	}
	if c.SearchPath != "" {
		parts = append(parts, "search_path="+quoteDSNValue(c.SearchPath))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a key=value connection string value when needed
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// LoadEnvFile loads a .env file into the environment if one exists
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads the configuration from environment variables. The
// PostgreSQL connection parameters are required.
func LoadConfig() (*Config, error) {
	missing := map[string]bool{}
	require := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing[key] = true
		}
		return v
	}

	dbName := require("PGDATABASE")
	user := require("PGUSER")
	password := require("PGPASSWORD")
	host := require("PGHOST")
	portStr := require("PGPORT")

	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, &MissingEnvError{Keys: keys}
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PGPORT %q: %w", portStr, err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:       host,
			Port:       port,
			Username:   user,
			Password:   password,
			DBName:     dbName,
			SSLMode:    getEnv("PGSSLMODE", "disable"),
			TestDBName: getEnv("TEST_PGDATABASE", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
