package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionArchive is the persisted snapshot of a wizard session, written once
// when the user saves the generated application to their account. Last write
// wins; no versioning.
type SessionArchive struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   string         `gorm:"index" json:"tenant_id"`
	WebsiteURL string         `json:"website_url"`
	State      datatypes.JSON `gorm:"type:jsonb" json:"state"`
	SavedAt    time.Time      `json:"saved_at"`
}

// Archiver persists session snapshots.
type Archiver interface {
	Archive(ctx context.Context, sess *Session) error
}

// GormArchiveRepository stores session archives in Postgres.
type GormArchiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) *GormArchiveRepository {
	return &GormArchiveRepository{db: db}
}

func (r *GormArchiveRepository) Archive(ctx context.Context, sess *Session) error {
	state := sess.State()
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	archive := SessionArchive{
		ID:         sess.ID,
		TenantID:   sess.TenantID,
		WebsiteURL: state.WebsiteURL,
		State:      datatypes.JSON(blob),
		SavedAt:    time.Now(),
	}

	if err := r.db.WithContext(ctx).Save(&archive).Error; err != nil {
		return fmt.Errorf("failed to archive session %s: %w", sess.ID, err)
	}
	return nil
}
