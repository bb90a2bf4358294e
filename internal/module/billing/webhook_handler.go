package billing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/draftforge/server/internal/shared/events"
)

// WebhookHandler receives Stripe webhook events and turns plan-affecting
// ones into PlanChanged events on the bus.
type WebhookHandler struct {
	repo          Repository
	bus           *events.Bus
	webhookSecret string
	logger        *zap.Logger
}

// NewWebhookHandler creates a new billing webhook handler.
func NewWebhookHandler(repo Repository, bus *events.Bus, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		repo:          repo,
		bus:           bus,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook handles incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("invalid webhook signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ctx := c.Request.Context()

	exists, err := h.repo.EventExists(ctx, event.ID)
	if err != nil {
		h.logger.Error("failed to check event existence", zap.Error(err))
		// Continue processing - better to process twice than miss
	}
	if exists {
		h.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}

	if err := h.repo.CreateEvent(ctx, event.ID, string(event.Type), string(payload)); err != nil {
		h.logger.Error("failed to store webhook event", zap.Error(err))
	}

	var processErr error
	switch event.Type {
	case "checkout.session.completed":
		processErr = h.handleCheckoutCompleted(&event)
	case "customer.subscription.created", "customer.subscription.updated":
		processErr = h.handleSubscriptionChanged(&event)
	case "customer.subscription.deleted":
		processErr = h.handleSubscriptionDeleted(&event)
	default:
		h.logger.Debug("unhandled webhook event type", zap.String("type", string(event.Type)))
	}

	if err := h.repo.MarkProcessed(ctx, event.ID, processErr); err != nil {
		h.logger.Error("failed to mark event processed", zap.Error(err))
	}

	if processErr != nil {
		h.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(processErr),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *WebhookHandler) handleCheckoutCompleted(event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}

	tenantID, newPlan, err := planChangeFromMetadata(session.Metadata)
	if err != nil {
		return err
	}

	var billingRef string
	if session.Subscription != nil {
		billingRef = session.Subscription.ID
	}

	h.bus.Publish(events.NewPlanChangedEvent(tenantID, newPlan, billingRef))
	return nil
}

func (h *WebhookHandler) handleSubscriptionChanged(event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	tenantID, newPlan, err := planChangeFromMetadata(sub.Metadata)
	if err != nil {
		return err
	}

	h.bus.Publish(events.NewPlanChangedEvent(tenantID, newPlan, sub.ID))
	return nil
}

// handleSubscriptionDeleted reverts the tenant to the free plan.
func (h *WebhookHandler) handleSubscriptionDeleted(event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	raw, ok := sub.Metadata["tenant_id"]
	if !ok {
		return fmt.Errorf("subscription %s missing tenant_id metadata", sub.ID)
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid tenant_id metadata %q: %w", raw, err)
	}

	h.bus.Publish(events.NewPlanChangedEvent(tenantID, "free", ""))
	return nil
}

// planChangeFromMetadata extracts the tenant and target plan we attach to
// checkout sessions and subscriptions as Stripe metadata.
func planChangeFromMetadata(metadata map[string]string) (uuid.UUID, string, error) {
	rawTenant, ok := metadata["tenant_id"]
	if !ok {
		return uuid.Nil, "", fmt.Errorf("event missing tenant_id metadata")
	}
	tenantID, err := uuid.Parse(rawTenant)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid tenant_id metadata %q: %w", rawTenant, err)
	}

	newPlan, ok := metadata["plan"]
	if !ok || newPlan == "" {
		return uuid.Nil, "", fmt.Errorf("event missing plan metadata")
	}

	return tenantID, newPlan, nil
}
