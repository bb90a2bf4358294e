package history

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is one persisted generation: what was asked, what came back.
// Records are written only for generations that succeeded at the provider.
type Record struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `json:"tenant_id" gorm:"type:uuid;not null;index:idx_history_tenant_created,priority:1"`
	ToolType      string          `json:"tool_type" gorm:"not null"`
	InputPayload  json.RawMessage `json:"input_payload" gorm:"type:jsonb"`
	OutputPayload json.RawMessage `json:"output_payload" gorm:"type:jsonb"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index:idx_history_tenant_created,priority:2,sort:desc"`
}

// TableName returns the database table name.
func (Record) TableName() string {
	return "generation_history"
}

// NewRecord creates a history record for a completed generation.
func NewRecord(tenantID uuid.UUID, toolType string, input, output json.RawMessage) *Record {
	return &Record{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ToolType:      toolType,
		InputPayload:  input,
		OutputPayload: output,
	}
}
