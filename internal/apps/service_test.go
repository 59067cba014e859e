package apps

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsai/onboarding-backend/pkg/storage"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, app *Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Application), args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Application, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]*Application), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func TestRegisterFillsDefaults(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, storage.NewMemorySnapshots(), zap.NewNop())

	repo.On("Create", mock.Anything, mock.AnythingOfType("*apps.Application")).Return(nil)

	app := &Application{OwnerID: uuid.New(), TenantID: "tenant-1", Name: "Acme"}
	require.NoError(t, svc.Register(context.Background(), app))

	assert.NotEqual(t, uuid.Nil, app.ID)
	assert.False(t, app.CreatedAt.IsZero())
	assert.False(t, app.UpdatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, storage.NewMemorySnapshots(), zap.NewNop())

	owner := uuid.New()
	stored := &Application{ID: uuid.New(), OwnerID: owner}
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	app, err := svc.Get(context.Background(), stored.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, app.ID)

	_, err = svc.Get(context.Background(), stored.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAttachesSnapshotURL(t *testing.T) {
	repo := new(MockRepository)
	snapshots := storage.NewMemorySnapshots()
	svc := NewService(repo, snapshots, zap.NewNop())

	owner := uuid.New()
	key := "sessions/abc/config.json"
	require.NoError(t, snapshots.Put(context.Background(), key, strings.NewReader(`{}`)))

	stored := &Application{ID: uuid.New(), OwnerID: owner, SnapshotKey: key}
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	app, err := svc.Get(context.Background(), stored.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "memory://"+key, app.SnapshotURL)
}

func TestGetToleratesMissingSnapshot(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, storage.NewMemorySnapshots(), zap.NewNop())

	owner := uuid.New()
	stored := &Application{ID: uuid.New(), OwnerID: owner, SnapshotKey: "sessions/gone/config.json"}
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	app, err := svc.Get(context.Background(), stored.ID, owner)
	require.NoError(t, err)
	assert.Empty(t, app.SnapshotURL)
}

func TestDeleteRemovesSnapshot(t *testing.T) {
	repo := new(MockRepository)
	snapshots := storage.NewMemorySnapshots()
	svc := NewService(repo, snapshots, zap.NewNop())

	owner := uuid.New()
	key := "sessions/abc/config.json"
	require.NoError(t, snapshots.Put(context.Background(), key, strings.NewReader(`{}`)))

	stored := &Application{ID: uuid.New(), OwnerID: owner, SnapshotKey: key}
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	repo.On("Delete", mock.Anything, stored.ID, owner).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), stored.ID, owner))

	_, err := snapshots.Get(context.Background(), key)
	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, storage.NewMemorySnapshots(), zap.NewNop())

	stored := &Application{ID: uuid.New(), OwnerID: uuid.New()}
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	err := svc.Delete(context.Background(), stored.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
