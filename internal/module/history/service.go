package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceInterface defines the history service interface.
type ServiceInterface interface {
	Append(ctx context.Context, tenantID uuid.UUID, toolType string, input, output json.RawMessage) (*Record, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Record, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
	Export(ctx context.Context, tenantID uuid.UUID) (*ExportResult, error)
}

// ExportResult describes a completed history export.
type ExportResult struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Records   int       `json:"records"`
}

// Service implements the generation audit log.
type Service struct {
	repo    Repository
	exports ExportStore
	logger  *zap.Logger
	clock   func() time.Time
}

// NewService creates a new history service. exports may be nil when no
// object storage is configured; Export then fails with ErrExportUnavailable.
func NewService(repo Repository, exports ExportStore, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		exports: exports,
		logger:  logger,
		clock:   time.Now,
	}
}

// Append persists one generation record. Storage failures are surfaced,
// never swallowed; the caller decides whether they are fatal.
func (s *Service) Append(ctx context.Context, tenantID uuid.UUID, toolType string, input, output json.RawMessage) (*Record, error) {
	record := NewRecord(tenantID, toolType, input, output)
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return record, nil
}

// List returns the tenant's records, most recent first. Each call re-scans
// persistent storage.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Record, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit, offset)
}

// Delete removes one record and reports whether it existed.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return s.repo.Delete(ctx, tenantID, id)
}

// Export snapshots the tenant's full history to object storage and
// returns a time-limited download URL.
func (s *Service) Export(ctx context.Context, tenantID uuid.UUID) (*ExportResult, error) {
	if s.exports == nil {
		return nil, ErrExportUnavailable
	}

	records, err := s.repo.ListByTenant(ctx, tenantID, 0, 0)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	data, err := marshalExport(tenantID, now, records)
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	url, expiresAt, err := s.exports.Upload(ctx, exportKey(tenantID, now), data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("history export created",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("records", len(records)))

	return &ExportResult{
		URL:       url,
		ExpiresAt: expiresAt,
		Records:   len(records),
	}, nil
}
