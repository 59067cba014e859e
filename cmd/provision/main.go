package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/opsai/onboarding-backend/internal/auth"
	"github.com/opsai/onboarding-backend/internal/config"
	"github.com/opsai/onboarding-backend/internal/connect"
	"github.com/opsai/onboarding-backend/internal/onboarding"
)

// provision creates or migrates the database schema and verifies the
// applications table the sqlx repository expects.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&auth.User{}, &connect.Credential{}, &onboarding.SessionArchive{}); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// The applications table is managed by hand because the apps repository
	// uses raw SQL rather than gorm.
	createApplications := `
		CREATE TABLE IF NOT EXISTS applications (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			website_url TEXT NOT NULL,
			app_url TEXT NOT NULL DEFAULT '',
			snapshot_key TEXT NOT NULL DEFAULT '',
			providers TEXT[] NOT NULL DEFAULT '{}',
			config JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_applications_owner ON applications (owner_id, created_at DESC);
	`
	if err := db.Exec(createApplications).Error; err != nil {
		logger.Fatal("Failed to create applications table", zap.Error(err))
	}

	// Insert and delete a throwaway row to verify write access before the
	// API binary ever starts.
	probeID := uuid.New()
	now := time.Now()
	insertProbe := db.Exec(
		`INSERT INTO applications (id, owner_id, tenant_id, name, website_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		probeID, uuid.New(), "provision-probe", "provision probe", "https://probe.invalid", now, now)
	if insertProbe.Error != nil {
		logger.Fatal("Write-access probe insert failed", zap.Error(insertProbe.Error))
	}
	if err := db.Exec(`DELETE FROM applications WHERE id = ?`, probeID).Error; err != nil {
		logger.Fatal("Write-access probe delete failed", zap.Error(err))
	}

	logger.Info("Database provisioned",
		zap.String("database", cfg.Database.DBName))
}
