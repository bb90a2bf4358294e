package billing

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is a received billing webhook, stored for idempotency.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"not null"`
	Data        string    `gorm:"type:jsonb"`
	Processed   bool      `gorm:"default:false"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
