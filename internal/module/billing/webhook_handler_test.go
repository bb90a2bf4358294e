package billing

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/draftforge/server/internal/shared/events"
)

const testSecret = "whsec_test_secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryRepository struct {
	mu     sync.Mutex
	events map[string]*WebhookEvent
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{events: make(map[string]*WebhookEvent)}
}

func (m *memoryRepository) EventExists(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *memoryRepository) CreateEvent(ctx context.Context, eventID, eventType, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[eventID] = &WebhookEvent{ID: uuid.New(), EventID: eventID, Type: eventType, Data: data}
	return nil
}

func (m *memoryRepository) MarkProcessed(ctx context.Context, eventID string, processErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[eventID]; ok {
		e.Processed = processErr == nil
	}
	return nil
}

// captureHandler records PlanChanged events published on the bus.
type captureHandler struct {
	mu     sync.Mutex
	events []*events.PlanChangedEvent
}

func (c *captureHandler) Handles() []string {
	return []string{events.PlanChangedType}
}

func (c *captureHandler) Handle(event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := event.(*events.PlanChangedEvent); ok {
		c.events = append(c.events, e)
	}
	return nil
}

func (c *captureHandler) captured() []*events.PlanChangedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

func newTestRouter(repo Repository, capture *captureHandler) *gin.Engine {
	bus := events.NewBus(zap.NewNop())
	bus.Register(capture)

	handler := NewWebhookHandler(repo, bus, testSecret, zap.NewNop())
	router := gin.New()
	handler.RegisterRoutes(router.Group("/webhooks"))
	return router
}

func signedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testSecret)
	header := fmt.Sprintf("t=%d,v1=%x", now.Unix(), sig)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	return req
}

func checkoutPayload(eventID string, tenantID uuid.UUID, plan string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "%s",
		"object": "event",
		"api_version": "`+stripe.APIVersion+`",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"subscription": {"id": "sub_test_1"},
				"metadata": {"tenant_id": "%s", "plan": "%s"}
			}
		}
	}`, eventID, tenantID, plan))
}

func TestWebhookHandler_HandleStripeWebhook(t *testing.T) {
	t.Run("rejects missing signature", func(t *testing.T) {
		router := newTestRouter(newMemoryRepository(), &captureHandler{})

		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		router := newTestRouter(newMemoryRepository(), &captureHandler{})

		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("checkout completion publishes plan change", func(t *testing.T) {
		capture := &captureHandler{}
		repo := newMemoryRepository()
		router := newTestRouter(repo, capture)

		tenantID := uuid.New()
		payload := checkoutPayload("evt_1", tenantID, "pro")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))

		assert.Equal(t, http.StatusOK, w.Code)

		captured := capture.captured()
		require.Len(t, captured, 1)
		assert.Equal(t, tenantID, captured[0].TenantID)
		assert.Equal(t, "pro", captured[0].NewPlan)
		assert.Equal(t, "sub_test_1", captured[0].ExternalBillingRef)

		exists, err := repo.EventExists(context.Background(), "evt_1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate event is not reprocessed", func(t *testing.T) {
		capture := &captureHandler{}
		router := newTestRouter(newMemoryRepository(), capture)

		tenantID := uuid.New()
		payload := checkoutPayload("evt_dup", tenantID, "pro")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "already_processed")

		assert.Len(t, capture.captured(), 1)
	})

	t.Run("subscription deletion reverts to free", func(t *testing.T) {
		capture := &captureHandler{}
		router := newTestRouter(newMemoryRepository(), capture)

		tenantID := uuid.New()
		payload := []byte(fmt.Sprintf(`{
			"id": "evt_del",
			"object": "event",
			"api_version": "`+stripe.APIVersion+`",
			"type": "customer.subscription.deleted",
			"data": {
				"object": {
					"id": "sub_gone",
					"object": "subscription",
					"metadata": {"tenant_id": "%s"}
				}
			}
		}`, tenantID))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))

		assert.Equal(t, http.StatusOK, w.Code)
		captured := capture.captured()
		require.Len(t, captured, 1)
		assert.Equal(t, "free", captured[0].NewPlan)
	})

	t.Run("missing metadata fails processing", func(t *testing.T) {
		capture := &captureHandler{}
		router := newTestRouter(newMemoryRepository(), capture)

		payload := []byte(`{
			"id": "evt_bad",
			"object": "event",
			"api_version": "` + stripe.APIVersion + `",
			"type": "checkout.session.completed",
			"data": {
				"object": {
					"id": "cs_test_2",
					"object": "checkout.session",
					"metadata": {}
				}
			}
		}`)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, capture.captured())
	})

	t.Run("unhandled event types are acknowledged", func(t *testing.T) {
		capture := &captureHandler{}
		router := newTestRouter(newMemoryRepository(), capture)

		payload := []byte(`{
			"id": "evt_other",
			"object": "event",
			"api_version": "` + stripe.APIVersion + `",
			"type": "invoice.paid",
			"data": {"object": {}}
		}`)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, capture.captured())
	})
}
