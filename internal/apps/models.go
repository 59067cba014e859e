package apps

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Application is a generated application saved to a user's account. The full
// wizard configuration rides along as jsonb so the app can be regenerated or
// inspected later.
type Application struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	OwnerID     uuid.UUID      `db:"owner_id" json:"owner_id"`
	TenantID    string         `db:"tenant_id" json:"tenant_id"`
	Name        string         `db:"name" json:"name"`
	WebsiteURL  string         `db:"website_url" json:"website_url"`
	AppURL      string         `db:"app_url" json:"app_url,omitempty"`
	SnapshotKey string         `db:"snapshot_key" json:"snapshot_key,omitempty"`
	SnapshotURL string         `db:"-" json:"snapshot_url,omitempty"`
	Providers   pq.StringArray `db:"providers" json:"providers"`
	Config      types.JSONText `db:"config" json:"config"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
