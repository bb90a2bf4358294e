package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for webhook event storage.
type Repository interface {
	EventExists(ctx context.Context, eventID string) (bool, error)
	CreateEvent(ctx context.Context, eventID, eventType, data string) error
	MarkProcessed(ctx context.Context, eventID string, processErr error) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) EventExists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return count > 0, nil
}

func (r *repository) CreateEvent(ctx context.Context, eventID, eventType, data string) error {
	event := &WebhookEvent{
		ID:      uuid.New(),
		EventID: eventID,
		Type:    eventType,
		Data:    data,
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("store webhook event: %w", err)
	}
	return nil
}

func (r *repository) MarkProcessed(ctx context.Context, eventID string, processErr error) error {
	now := time.Now()
	updates := map[string]any{
		"processed":    processErr == nil,
		"processed_at": &now,
	}
	if processErr != nil {
		msg := processErr.Error()
		updates["error"] = &msg
	}

	err := r.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
