package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, record *Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Record, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Record), args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

type mockExportStore struct {
	mock.Mock
}

func (m *mockExportStore) Upload(ctx context.Context, key string, data []byte) (string, time.Time, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func TestService_Append(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	input := json.RawMessage(`{"prompt":"hello"}`)
	output := json.RawMessage(`{"content":"world"}`)

	t.Run("persists a record", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Create", ctx, mock.MatchedBy(func(r *Record) bool {
			return r.TenantID == tenantID && r.ToolType == "blog_post"
		})).Return(nil)

		svc := NewService(repo, nil, zap.NewNop())
		record, err := svc.Append(ctx, tenantID, "blog_post", input, output)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, record.ID)
		assert.Equal(t, input, record.InputPayload)
		repo.AssertExpectations(t)
	})

	t.Run("wraps storage failures", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Create", ctx, mock.Anything).Return(assert.AnError)

		svc := NewService(repo, nil, zap.NewNop())
		_, err := svc.Append(ctx, tenantID, "blog_post", input, output)

		assert.ErrorIs(t, err, ErrPersistence)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	recordID := uuid.New()

	t.Run("reports existing record deleted", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Delete", ctx, tenantID, recordID).Return(true, nil)

		svc := NewService(repo, nil, zap.NewNop())
		deleted, err := svc.Delete(ctx, tenantID, recordID)

		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("reports missing record", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Delete", ctx, tenantID, recordID).Return(false, nil)

		svc := NewService(repo, nil, zap.NewNop())
		deleted, err := svc.Delete(ctx, tenantID, recordID)

		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("uploads snapshot and returns URL", func(t *testing.T) {
		records := []*Record{
			NewRecord(tenantID, "blog_post", json.RawMessage(`{}`), json.RawMessage(`{}`)),
		}
		repo := new(mockRepository)
		repo.On("ListByTenant", ctx, tenantID, 0, 0).Return(records, nil)

		expiry := time.Now().Add(15 * time.Minute)
		store := new(mockExportStore)
		store.On("Upload", ctx, mock.MatchedBy(func(key string) bool {
			return len(key) > 0
		}), mock.Anything).Return("https://storage.example/exports/x.json", expiry, nil)

		svc := NewService(repo, store, zap.NewNop())
		result, err := svc.Export(ctx, tenantID)

		require.NoError(t, err)
		assert.Equal(t, "https://storage.example/exports/x.json", result.URL)
		assert.Equal(t, 1, result.Records)
		store.AssertExpectations(t)
	})

	t.Run("fails when storage not configured", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		_, err := svc.Export(ctx, tenantID)
		assert.ErrorIs(t, err, ErrExportUnavailable)
	})
}

func TestMarshalExport(t *testing.T) {
	tenantID := uuid.New()
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	records := []*Record{
		NewRecord(tenantID, "tagline", json.RawMessage(`{"a":1}`), json.RawMessage(`{"b":2}`)),
	}

	data, err := marshalExport(tenantID, now, records)
	require.NoError(t, err)

	var payload exportPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, tenantID.String(), payload.TenantID)
	assert.Len(t, payload.Records, 1)
	assert.Equal(t, "tagline", payload.Records[0].ToolType)
}
