package schema

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type mapCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
	getErr error
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Write(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.writes++
	return nil
}

type countingLister struct {
	calls  atomic.Int32
	tables map[string][]string
}

func (l *countingLister) list(_ context.Context, table string) ([]string, error) {
	l.calls.Add(1)
	fields, ok := l.tables[table]
	if !ok {
		return nil, errors.New("no such table")
	}
	return fields, nil
}

func newLister() *countingLister {
	return &countingLister{tables: map[string][]string{
		"offices":   {"id", "name", "country_iso"},
		"countries": {"iso", "name"},
	}}
}

func TestLoader_MissThenHit(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	lister := newLister()
	loader := NewLoader(cache, lister.list)

	got, err := loader.Fields(ctx, "offices_model", "offices", "countries")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "country_iso"}, got["offices"])
	assert.Equal(t, []string{"iso", "name"}, got["countries"])
	assert.EqualValues(t, 2, lister.calls.Load())
	assert.Equal(t, 1, cache.writes)

	got, err = loader.Fields(ctx, "offices_model", "countries")
	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "name"}, got["countries"])
	assert.EqualValues(t, 2, lister.calls.Load(), "second load must be served by the cache")
	assert.Equal(t, 1, cache.writes)
}

func TestLoader_EntryFormat(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	loader := NewLoader(cache, newLister().list)

	_, err := loader.Fields(ctx, "m", "countries")
	require.NoError(t, err)

	raw, ok := cache.data["table_structure/m"]
	require.True(t, ok)

	var decoded map[string][]string
	require.NoError(t, msgpack.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string][]string{"countries": {"iso", "name"}}, decoded)
}

func TestLoader_ExtendsEntry(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	lister := newLister()
	loader := NewLoader(cache, lister.list)

	_, err := loader.Fields(ctx, "m", "offices")
	require.NoError(t, err)
	_, err = loader.Fields(ctx, "m", "offices", "countries")
	require.NoError(t, err)

	assert.EqualValues(t, 2, lister.calls.Load())
	assert.Equal(t, 2, cache.writes)
}

func TestLoader_NilCache(t *testing.T) {
	lister := newLister()
	loader := NewLoader(nil, lister.list)

	for i := 0; i < 2; i++ {
		_, err := loader.Fields(context.Background(), "m", "offices")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, lister.calls.Load())
}

func TestLoader_Errors(t *testing.T) {
	ctx := context.Background()

	loader := NewLoader(newMapCache(), newLister().list)
	_, err := loader.Fields(ctx, "m", "missing")
	assert.ErrorContains(t, err, "list fields of missing")

	broken := newMapCache()
	broken.getErr = errors.New("down")
	loader = NewLoader(broken, newLister().list)
	_, err = loader.Fields(ctx, "m", "offices")
	assert.ErrorContains(t, err, "read table_structure/m: down")

	garbage := newMapCache()
	garbage.data["table_structure/m"] = []byte{0xc1}
	loader = NewLoader(garbage, newLister().list)
	_, err = loader.Fields(ctx, "m", "offices")
	assert.ErrorContains(t, err, "decode table_structure/m")
}

func TestLoader_ResultIsPrivate(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(newMapCache(), newLister().list)

	got, err := loader.Fields(ctx, "m", "offices")
	require.NoError(t, err)
	got["offices"][0] = "changed"

	again, err := loader.Fields(ctx, "m", "offices")
	require.NoError(t, err)
	assert.Equal(t, "id", again["offices"][0])
}

func TestLoader_Concurrent(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(newMapCache(), newLister().list)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := loader.Fields(ctx, "m", "offices", "countries")
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()
}

func TestLoader_ConcurrentTablesShareEntry(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	base := newLister()

	// Listing offices waits for the countries load to start, so both loads
	// overlap unless the loader serializes them.
	started := make(chan struct{})
	list := func(ctx context.Context, table string) ([]string, error) {
		switch table {
		case "countries":
			close(started)
		case "offices":
			select {
			case <-started:
			case <-time.After(50 * time.Millisecond):
			}
		}
		return base.list(ctx, table)
	}
	loader := NewLoader(cache, list)

	var wg sync.WaitGroup
	for _, table := range []string{"offices", "countries"} {
		wg.Add(1)
		go func(table string) {
			defer wg.Done()
			_, err := loader.Fields(ctx, "m", table)
			assert.NoError(t, err)
		}(table)
	}
	wg.Wait()

	var decoded map[string][]string
	require.NoError(t, msgpack.Unmarshal(cache.data["table_structure/m"], &decoded))
	assert.Len(t, decoded, 2)

	got, err := loader.Fields(ctx, "m", "offices", "countries")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.EqualValues(t, 2, base.calls.Load(), "both tables must be served by the cache")
}
