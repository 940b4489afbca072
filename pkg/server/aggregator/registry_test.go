package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-oracle/pkg/server/sources"
)

func TestRegistry_ConfigureReplacesWholesale(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Configure("LUNC/USD", sources.SourceDirectFeed, "direct:a", 6000, 2*time.Minute))
	require.NoError(t, registry.SetActive("LUNC/USD", sources.SourceDirectFeed, false))

	// Re-configuring replaces every field and reactivates the source; nothing
	// carries over from the prior entry.
	require.NoError(t, registry.Configure("LUNC/USD", sources.SourceDirectFeed, "direct:b", 4000, time.Minute))

	cfg := registry.GetConfig("LUNC/USD", sources.SourceDirectFeed)
	assert.Equal(t, "direct:b", cfg.AdapterRef)
	assert.Equal(t, uint32(4000), cfg.WeightBPS)
	assert.Equal(t, time.Minute, cfg.MaxStaleness)
	assert.True(t, cfg.Active)
}

func TestRegistry_ConfigureRejectsOverweight(t *testing.T) {
	registry := NewRegistry()

	err := registry.Configure("LUNC/USD", sources.SourceDirectFeed, "direct:a", BasisPointsTotal+1, time.Minute)
	require.ErrorIs(t, err, ErrInvalidWeight)

	cfg := registry.GetConfig("LUNC/USD", sources.SourceDirectFeed)
	assert.Equal(t, SourceConfig{}, cfg)
}

func TestRegistry_SetActiveOnlyTogglesFlag(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Configure("LUNC/USD", sources.SourceDirectFeed, "direct:a", 10000, time.Minute))

	require.NoError(t, registry.SetActive("LUNC/USD", sources.SourceDirectFeed, false))

	cfg := registry.GetConfig("LUNC/USD", sources.SourceDirectFeed)
	assert.False(t, cfg.Active)
	assert.Equal(t, "direct:a", cfg.AdapterRef)
	assert.Equal(t, uint32(10000), cfg.WeightBPS)
	assert.Equal(t, time.Minute, cfg.MaxStaleness)
}

func TestRegistry_SetActiveUnconfigured(t *testing.T) {
	registry := NewRegistry()

	err := registry.SetActive("LUNC/USD", sources.SourceDirectFeed, true)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRegistry_UpdateWeights(t *testing.T) {
	setup := func(t *testing.T) *Registry {
		t.Helper()
		registry := NewRegistry()
		require.NoError(t, registry.Configure("LUNC/USD", sources.SourceDirectFeed, "direct:a", 5000, time.Minute))
		require.NoError(t, registry.Configure("LUNC/USD", sources.SourceRegistryFeedA, "registry:a", 5000, time.Minute))
		return registry
	}

	both := []sources.SourceID{sources.SourceDirectFeed, sources.SourceRegistryFeedA}

	t.Run("success", func(t *testing.T) {
		registry := setup(t)
		require.NoError(t, registry.UpdateWeights("LUNC/USD", both, []uint32{7000, 3000}))
		assert.Equal(t, uint32(7000), registry.GetConfig("LUNC/USD", sources.SourceDirectFeed).WeightBPS)
		assert.Equal(t, uint32(3000), registry.GetConfig("LUNC/USD", sources.SourceRegistryFeedA).WeightBPS)
	})

	t.Run("length mismatch", func(t *testing.T) {
		registry := setup(t)
		err := registry.UpdateWeights("LUNC/USD", both, []uint32{10000})
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("sum below total", func(t *testing.T) {
		registry := setup(t)
		err := registry.UpdateWeights("LUNC/USD", both, []uint32{4999, 5000})
		require.ErrorIs(t, err, ErrInvalidWeight)
		assert.Equal(t, uint32(5000), registry.GetConfig("LUNC/USD", sources.SourceDirectFeed).WeightBPS)
	})

	t.Run("sum above total", func(t *testing.T) {
		registry := setup(t)
		err := registry.UpdateWeights("LUNC/USD", both, []uint32{5001, 5000})
		assert.ErrorIs(t, err, ErrInvalidWeight)
	})

	t.Run("unconfigured source leaves batch unapplied", func(t *testing.T) {
		registry := setup(t)
		err := registry.UpdateWeights("LUNC/USD",
			[]sources.SourceID{sources.SourceDirectFeed, sources.SourceRegistryFeedB},
			[]uint32{6000, 4000})
		require.ErrorIs(t, err, ErrNotConfigured)
		// The configured source keeps its old weight too.
		assert.Equal(t, uint32(5000), registry.GetConfig("LUNC/USD", sources.SourceDirectFeed).WeightBPS)
	})

	t.Run("subset summing to total", func(t *testing.T) {
		registry := setup(t)
		// Only the passed subset is checked against the total; the omitted
		// source keeps its weight.
		require.NoError(t, registry.UpdateWeights("LUNC/USD",
			[]sources.SourceID{sources.SourceDirectFeed}, []uint32{10000}))
		assert.Equal(t, uint32(10000), registry.GetConfig("LUNC/USD", sources.SourceDirectFeed).WeightBPS)
		assert.Equal(t, uint32(5000), registry.GetConfig("LUNC/USD", sources.SourceRegistryFeedA).WeightBPS)
	})
}

func TestRegistry_GetConfigAbsent(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, SourceConfig{}, registry.GetConfig("LUNC/USD", sources.SourceRegistryFeedB))
}

func TestPriorityList_Replace(t *testing.T) {
	list := NewPriorityList([]sources.SourceID{sources.SourceDirectFeed})

	err := list.Replace(nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	err = list.Replace([]sources.SourceID{"bogus_feed"})
	assert.ErrorIs(t, err, ErrUnknownSource)

	// Failed replacements leave the order untouched.
	assert.Equal(t, []sources.SourceID{sources.SourceDirectFeed}, list.List())

	next := []sources.SourceID{sources.SourceRegistryFeedA, sources.SourceDirectFeed}
	require.NoError(t, list.Replace(next))
	assert.Equal(t, next, list.List())
}

func TestPriorityList_DuplicatesPreserved(t *testing.T) {
	list := NewPriorityList(nil)

	order := []sources.SourceID{
		sources.SourceDirectFeed,
		sources.SourceDirectFeed,
		sources.SourceRegistryFeedA,
	}
	require.NoError(t, list.Replace(order))
	assert.Equal(t, order, list.List())
}

func TestPriorityList_ListReturnsCopy(t *testing.T) {
	list := NewPriorityList([]sources.SourceID{sources.SourceDirectFeed, sources.SourceRegistryFeedA})

	got := list.List()
	got[0] = sources.SourceRegistryFeedB

	assert.Equal(t, []sources.SourceID{sources.SourceDirectFeed, sources.SourceRegistryFeedA}, list.List())
}

func TestStaticACL(t *testing.T) {
	acl := NewStaticACL([]string{"admin"}, []string{"feeder"})

	assert.True(t, acl.Allow("admin", PermAdmin))
	assert.True(t, acl.Allow("admin", PermOperator), "admin implies operator")
	assert.True(t, acl.Allow("feeder", PermOperator))
	assert.False(t, acl.Allow("feeder", PermAdmin))
	assert.False(t, acl.Allow("stranger", PermOperator))
	assert.False(t, acl.Allow("stranger", PermAdmin))

	assert.True(t, AllowAll{}.Allow("anyone", PermAdmin))
}
