package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	OAuth    OAuthConfig    `json:"oauth"`
	Analysis AnalysisConfig `json:"analysis"`
	Sync     SyncConfig     `json:"sync"`
	Deploy   DeployConfig   `json:"deploy"`
	Security SecurityConfig `json:"security"`
	Session  SessionConfig  `json:"session"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// OAuthConfig configures the OAuth broker and the connection flow.
type OAuthConfig struct {
	// BrokerURL is the base URL of the OAuth broker collaborator. When empty
	// the service generates authorization URLs locally (development mode).
	BrokerURL string `json:"broker_url"`
	// AllowedOrigins is the allow-list for callback completion messages.
	// Messages from any other origin are ignored.
	AllowedOrigins []string `json:"allowed_origins"`
	// ConnectTimeout bounds how long a single connection attempt may stay in
	// the connecting state.
	ConnectTimeout time.Duration `json:"connect_timeout"`
	// PollInterval is how often the waiter re-checks the popup-closed report
	// and the persisted-credential fallback.
	PollInterval time.Duration `json:"poll_interval"`
}

// AnalysisConfig configures the AI analysis collaborator.
type AnalysisConfig struct {
	// Endpoint of the analysis service. When empty a deterministic stub is
	// used instead.
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
}

// SyncConfig configures the data-sync setup collaborator.
type SyncConfig struct {
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
}

// DeployConfig configures the code-generation/deployment collaborator.
type DeployConfig struct {
	Endpoint       string        `json:"endpoint"`
	Timeout        time.Duration `json:"timeout"`
	SnapshotBucket string        `json:"snapshot_bucket"`
	Target         string        `json:"target"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// SessionConfig controls onboarding session retention.
type SessionConfig struct {
	TTL time.Duration `json:"ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "opsai_onboarding",
			SSLMode: "disable",
		},
		OAuth: OAuthConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			ConnectTimeout: 5 * time.Minute,
			PollInterval:   2 * time.Second,
		},
		Analysis: AnalysisConfig{
			Timeout: 30 * time.Second,
		},
		Sync: SyncConfig{
			Timeout: 15 * time.Second,
		},
		Deploy: DeployConfig{
			Timeout: 2 * time.Minute,
			Target:  "opsai-cloud",
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		Session: SessionConfig{
			TTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if broker := os.Getenv("OAUTH_BROKER_URL"); broker != "" {
		config.OAuth.BrokerURL = broker
	}
	if origins := os.Getenv("OAUTH_ALLOWED_ORIGINS"); origins != "" {
		config.OAuth.AllowedOrigins = strings.Split(origins, ",")
	}
	if endpoint := os.Getenv("ANALYSIS_ENDPOINT"); endpoint != "" {
		config.Analysis.Endpoint = endpoint
	}
	if endpoint := os.Getenv("SYNC_ENDPOINT"); endpoint != "" {
		config.Sync.Endpoint = endpoint
	}
	if endpoint := os.Getenv("DEPLOY_ENDPOINT"); endpoint != "" {
		config.Deploy.Endpoint = endpoint
	}
	if bucket := os.Getenv("SNAPSHOT_BUCKET"); bucket != "" {
		config.Deploy.SnapshotBucket = bucket
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
