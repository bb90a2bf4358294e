package events

import "github.com/google/uuid"

// Event is the interface that all domain events implement.
type Event interface {
	// EventID returns the unique identifier for this event instance.
	EventID() uuid.UUID

	// EventType returns the type name of the event (e.g., "PlanChanged").
	EventType() string
}

// BaseEvent carries the identity fields every event needs. Embed it in
// concrete event types.
type BaseEvent struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
}

// EventID returns the unique identifier for this event instance.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type name of the event.
func (e BaseEvent) EventType() string {
	return e.Type
}

// NewBaseEvent creates a new BaseEvent of the given type.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		ID:   uuid.New(),
		Type: eventType,
	}
}

// Handler is the interface for event handlers.
type Handler interface {
	// Handles returns the list of event types this handler can process.
	Handles() []string

	// Handle processes the given event.
	// Implementations should be idempotent - handling the same event twice
	// should not produce duplicate side effects.
	Handle(event Event) error
}
