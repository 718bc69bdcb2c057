package registry_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-mdm/atlas-mdm/internal/registry"
	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type navKey string

func TestResolveBeforeInitialize(t *testing.T) {
	reg := registry.New[navKey]()

	_, err := reg.Resolve("dashboard")
	require.ErrorIs(t, err, registry.ErrNotInitialized)

	_, err = reg.ResolveReverse(uuid.New())
	require.ErrorIs(t, err, registry.ErrNotInitialized)
}

func TestInitializeTwice(t *testing.T) {
	reg := registry.New[navKey]()
	require.NoError(t, reg.Initialize(map[navKey]uuid.UUID{"dashboard": uuid.New()}))

	err := reg.Initialize(map[navKey]uuid.UUID{"products": uuid.New()})
	require.ErrorIs(t, err, registry.ErrAlreadyInitialized)
}

func TestRoundTrip(t *testing.T) {
	mappings := map[navKey]uuid.UUID{
		"dashboard": uuid.New(),
		"products":  uuid.New(),
		"suppliers": uuid.New(),
	}
	reg := registry.New[navKey]()
	require.NoError(t, reg.Initialize(mappings))
	require.Equal(t, len(mappings), reg.Len())

	for key, id := range mappings {
		resolved, err := reg.Resolve(key)
		require.NoError(t, err)
		assert.Equal(t, id, resolved)

		back, err := reg.ResolveReverse(id)
		require.NoError(t, err)
		assert.Equal(t, key, back)
	}
}

func TestUnknownLookups(t *testing.T) {
	reg := registry.New[navKey]()
	require.NoError(t, reg.Initialize(map[navKey]uuid.UUID{"dashboard": uuid.New()}))

	_, err := reg.Resolve("missing")
	assert.ErrorIs(t, err, registry.ErrUnknownKey)

	_, err = reg.ResolveReverse(uuid.New())
	assert.ErrorIs(t, err, registry.ErrUnknownID)
}

func TestRejectsDuplicateIDs(t *testing.T) {
	id := uuid.New()
	reg := registry.New[navKey]()
	err := reg.Initialize(map[navKey]uuid.UUID{"a": id, "b": id})
	require.Error(t, err)
	assert.False(t, reg.Initialized())
}

func TestConcurrentInitializeSingleWinner(t *testing.T) {
	reg := registry.New[navKey]()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = reg.Initialize(map[navKey]uuid.UUID{"dashboard": uuid.New()})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, registry.ErrAlreadyInitialized)
		}
	}
	assert.Equal(t, 1, winners)
}
