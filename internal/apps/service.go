package apps

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/pkg/storage"
)

// snapshotURLTTL bounds how long a handed-out config download link stays
// valid.
const snapshotURLTTL = 15 * time.Minute

// Service manages saved applications.
type Service struct {
	repo      Repository
	snapshots storage.SnapshotStore
	logger    *zap.Logger
}

// NewService creates an application service.
func NewService(repo Repository, snapshots storage.SnapshotStore, logger *zap.Logger) *Service {
	return &Service{repo: repo, snapshots: snapshots, logger: logger}
}

// Register persists a newly generated application. ID and timestamps are
// filled in when absent.
func (s *Service) Register(ctx context.Context, app *Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	now := time.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now

	if err := s.repo.Create(ctx, app); err != nil {
		return err
	}

	s.logger.Info("Application saved",
		zap.String("app_id", app.ID.String()),
		zap.String("owner_id", app.OwnerID.String()),
		zap.String("tenant_id", app.TenantID))

	return nil
}

// Get returns one application, restricted to its owner. When the app has a
// stored config snapshot, a short-lived download link is attached; a signing
// failure only drops the link.
func (s *Service) Get(ctx context.Context, id, ownerID uuid.UUID) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	if app.SnapshotKey != "" {
		url, err := s.snapshots.PresignedURL(ctx, app.SnapshotKey, snapshotURLTTL)
		if err != nil {
			s.logger.Warn("Failed to presign config snapshot",
				zap.String("app_id", app.ID.String()),
				zap.Error(err))
		} else {
			app.SnapshotURL = url
		}
	}
	return app, nil
}

// List returns the owner's applications, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*Application, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Delete removes an application owned by the given user. The stored config
// snapshot is cleaned up best-effort once the row is gone.
func (s *Service) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if app.OwnerID != ownerID {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	if app.SnapshotKey != "" {
		if err := s.snapshots.Delete(ctx, app.SnapshotKey); err != nil {
			s.logger.Warn("Failed to delete config snapshot",
				zap.String("app_id", app.ID.String()),
				zap.String("key", app.SnapshotKey),
				zap.Error(err))
		}
	}
	return nil
}
