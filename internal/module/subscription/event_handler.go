package subscription

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/draftforge/server/internal/module/plan"
	"github.com/draftforge/server/internal/shared/events"
)

const eventHandlerTimeout = 10 * time.Second

// EventHandler applies billing-originated plan changes to subscriptions.
type EventHandler struct {
	service ServiceInterface
	logger  *zap.Logger
}

// NewEventHandler creates a new subscription event handler.
func NewEventHandler(service ServiceInterface, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

// Handles returns the list of event types this handler can process.
func (h *EventHandler) Handles() []string {
	return []string{
		events.PlanChangedType,
	}
}

// Handle processes the given event.
func (h *EventHandler) Handle(event events.Event) error {
	switch e := event.(type) {
	case *events.PlanChangedEvent:
		return h.handlePlanChanged(e)
	default:
		h.logger.Warn("unhandled event type",
			zap.String("event_type", event.EventType()),
		)
		return nil
	}
}

func (h *EventHandler) handlePlanChanged(event *events.PlanChangedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), eventHandlerTimeout)
	defer cancel()

	sub, err := h.service.ApplyUpgrade(ctx, event.TenantID, plan.Type(event.NewPlan), event.ExternalBillingRef)
	if err != nil {
		h.logger.Error("failed to apply plan change",
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("new_plan", event.NewPlan),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("plan change applied",
		zap.String("tenant_id", event.TenantID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", string(sub.PlanID)),
	)
	return nil
}
