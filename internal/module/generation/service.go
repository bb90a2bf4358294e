package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/server/internal/module/history"
	"github.com/draftforge/server/internal/module/usage"
	"github.com/draftforge/server/internal/shared/metrics"
)

// UsageCounter is the quota enforcement contract the orchestrator needs.
type UsageCounter interface {
	CheckAndReserve(ctx context.Context, tenantID uuid.UUID) (*usage.Reservation, error)
	Rollback(ctx context.Context, token *usage.Reservation) error
	Status(ctx context.Context, tenantID uuid.UUID) (*usage.Status, error)
}

// HistoryAppender is the audit log contract the orchestrator needs.
type HistoryAppender interface {
	Append(ctx context.Context, tenantID uuid.UUID, toolType string, input, output json.RawMessage) (*history.Record, error)
}

// Result is what a successful generation returns to the caller.
type Result struct {
	Content string        `json:"content"`
	Model   string        `json:"model"`
	Usage   *usage.Status `json:"usage"`
}

// Service orchestrates a generation request: quota reservation, provider
// call, audit append. Quota is reserved before the provider is called and
// returned if the provider fails, so a failed attempt costs nothing.
type Service struct {
	counter         UsageCounter
	provider        Provider
	histories       HistoryAppender
	metrics         *metrics.Metrics
	logger          *zap.Logger
	providerTimeout time.Duration
	rollbackTimeout time.Duration
}

// NewService creates a new generation service. metrics may be nil.
func NewService(counter UsageCounter, provider Provider, histories HistoryAppender, m *metrics.Metrics, logger *zap.Logger, providerTimeout time.Duration) *Service {
	if providerTimeout == 0 {
		providerTimeout = 60 * time.Second
	}
	return &Service{
		counter:         counter,
		provider:        provider,
		histories:       histories,
		metrics:         m,
		logger:          logger,
		providerTimeout: providerTimeout,
		rollbackTimeout: 10 * time.Second,
	}
}

// Generate runs the full orchestration sequence for one request.
func (s *Service) Generate(ctx context.Context, tenantID uuid.UUID, toolType ToolType, language string, input json.RawMessage) (*Result, error) {
	if !ValidTool(toolType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidToolType, toolType)
	}

	token, err := s.counter.CheckAndReserve(ctx, tenantID)
	if err != nil {
		// No provider call, no history. Only real denials count as
		// quota_denied; backend failures are tracked separately.
		if errors.Is(err, usage.ErrQuotaExceeded) {
			s.recordOutcome(toolType, "quota_denied", 0)
		} else {
			s.recordOutcome(toolType, "reserve_error", 0)
		}
		return nil, err
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := time.Now()
	provResult, err := s.provider.Generate(providerCtx, &ProviderRequest{
		ToolType: toolType,
		Language: language,
		Input:    input,
	})
	elapsed := time.Since(start)

	if err != nil {
		// The reservation must not survive a failed attempt.
		s.rollback(ctx, token)
		s.recordOutcome(toolType, "provider_error", elapsed)
		return nil, s.mapProviderError(ctx, err)
	}

	s.appendHistory(ctx, tenantID, toolType, input, provResult)
	s.recordOutcome(toolType, "success", elapsed)

	status, err := s.counter.Status(ctx, tenantID)
	if err != nil {
		// The generation already succeeded; return it without the snapshot.
		s.logger.Warn("failed to read usage status after generation",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		status = nil
	}

	return &Result{
		Content: provResult.Content,
		Model:   provResult.Model,
		Usage:   status,
	}, nil
}

// GetUsage returns the tenant's quota snapshot.
func (s *Service) GetUsage(ctx context.Context, tenantID uuid.UUID) (*usage.Status, error) {
	return s.counter.Status(ctx, tenantID)
}

// rollback returns the reserved slot. It must run even when the request
// context is already canceled or timed out.
func (s *Service) rollback(ctx context.Context, token *usage.Reservation) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollbackTimeout)
	defer cancel()

	if err := s.counter.Rollback(rbCtx, token); err != nil {
		s.logger.Error("failed to roll back reservation",
			zap.String("tenant_id", token.TenantID.String()),
			zap.Error(err))
	}
}

// appendHistory records the completed generation. A failed append is
// retried once, then logged; it never fails the response.
func (s *Service) appendHistory(ctx context.Context, tenantID uuid.UUID, toolType ToolType, input json.RawMessage, result *ProviderResult) {
	output, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal generation output",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}

	_, err = s.histories.Append(ctx, tenantID, string(toolType), input, output)
	if err != nil {
		_, err = s.histories.Append(ctx, tenantID, string(toolType), input, output)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.HistoryAppendFailuresTotal.Inc()
		}
		s.logger.Warn("history append failed after retry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("tool_type", string(toolType)),
			zap.Error(err))
	}
}

// mapProviderError normalizes provider and context failures into the
// error taxonomy callers handle.
func (s *Service) mapProviderError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrProviderRateLimited),
		errors.Is(err, ErrProviderPaymentRequired):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timed out", ErrProviderUnknown)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrProviderUnknown):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrProviderUnknown, err)
	}
}

func (s *Service) recordOutcome(toolType ToolType, status string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordGeneration(string(toolType), status, elapsed)
}
