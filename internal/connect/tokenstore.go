package connect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is a provider token obtained through the OAuth broker. One row
// per tenant and provider; reconnecting overwrites the previous token.
type Credential struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     string    `gorm:"uniqueIndex:idx_tenant_provider" json:"tenant_id"`
	Provider     string    `gorm:"uniqueIndex:idx_tenant_provider" json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenStore persists provider credentials. Lookup is also the fallback used
// by the connection waiter when the completion message never arrives.
type TokenStore interface {
	Save(ctx context.Context, cred *Credential) error
	Lookup(ctx context.Context, tenantID, provider string) (*Credential, bool, error)
}

// GormTokenStore stores credentials in Postgres.
type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) Save(ctx context.Context, cred *Credential) error {
	existing := Credential{}
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", cred.TenantID, cred.Provider).
		First(&existing).Error
	switch {
	case err == nil:
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		cred.ID = uuid.New()
	default:
		return fmt.Errorf("failed to look up credential: %w", err)
	}

	if err := s.db.WithContext(ctx).Save(cred).Error; err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *GormTokenStore) Lookup(ctx context.Context, tenantID, provider string) (*Credential, bool, error) {
	var cred Credential
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, provider).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up credential: %w", err)
	}
	return &cred, true, nil
}

// MemoryTokenStore keeps credentials in memory for tests and development.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{creds: make(map[string]*Credential)}
}

func memKey(tenantID, provider string) string {
	return tenantID + "/" + provider
}

func (s *MemoryTokenStore) Save(ctx context.Context, cred *Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	s.mu.Lock()
	s.creds[memKey(cred.TenantID, cred.Provider)] = cred
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Lookup(ctx context.Context, tenantID, provider string) (*Credential, bool, error) {
	s.mu.RLock()
	cred, ok := s.creds[memKey(tenantID, provider)]
	s.mu.RUnlock()
	return cred, ok, nil
}
