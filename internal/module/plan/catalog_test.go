package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Resolve(t *testing.T) {
	catalog := NewCatalog()

	t.Run("resolves free plan", func(t *testing.T) {
		def, err := catalog.Resolve(TypeFree)
		require.NoError(t, err)
		assert.Equal(t, TypeFree, def.ID)
		assert.Equal(t, int64(10), def.GenerationLimit)
		assert.False(t, def.IsUnlimited())
	})

	t.Run("resolves pro plan", func(t *testing.T) {
		def, err := catalog.Resolve(TypePro)
		require.NoError(t, err)
		assert.Equal(t, int64(500), def.GenerationLimit)
		assert.True(t, def.HasFeature(FeatureAdvancedTools))
	})

	t.Run("business plan is unlimited", func(t *testing.T) {
		def, err := catalog.Resolve(TypeBusiness)
		require.NoError(t, err)
		assert.True(t, def.IsUnlimited())
		assert.True(t, def.HasFeature(FeaturePriorityQueue))
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := catalog.Resolve(Type("enterprise"))
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})
}

func TestCatalog_All(t *testing.T) {
	catalog := NewCatalog()

	plans := catalog.All()
	require.Len(t, plans, 3)
	assert.Equal(t, TypeFree, plans[0].ID)
	assert.Equal(t, TypePro, plans[1].ID)
	assert.Equal(t, TypeBusiness, plans[2].ID)
}

func TestDefinition_HasFeature(t *testing.T) {
	catalog := NewCatalog()

	free, err := catalog.Resolve(TypeFree)
	require.NoError(t, err)
	assert.True(t, free.HasFeature(FeatureBasicTools))
	assert.False(t, free.HasFeature(FeatureHistoryExport))
}

func TestDefinition_FeatureList(t *testing.T) {
	catalog := NewCatalog()

	pro, err := catalog.Resolve(TypePro)
	require.NoError(t, err)
	assert.Equal(t, []string{"basic_tools", "advanced_tools", "history_export"}, pro.FeatureList())
}

func TestCatalog_ConcurrentReads(t *testing.T) {
	catalog := NewCatalog()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, err := catalog.Resolve(TypeBusiness)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
