package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// KeyPrefix prefixes every metadata cache key.
const KeyPrefix = "table_structure/"

// Cache stores encoded table metadata.
type Cache interface {
	// Get returns the value stored under key; ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Write(ctx context.Context, key string, value []byte) error
}

// FieldLister reads the column names of a table from the database.
type FieldLister func(ctx context.Context, table string) ([]string, error)

// Loader reads table columns through a cache. One cache entry holds the
// column lists of every table loaded under the same identifier. Loader is
// safe for concurrent use: identical concurrent misses share a single load,
// and loads under one identifier are serialized so no table is lost from
// the merged entry.
type Loader struct {
	cache Cache
	list  FieldLister
	group singleflight.Group
	locks sync.Map // cache key -> *sync.Mutex
}

// NewLoader returns a Loader. A nil cache always reads from the database.
func NewLoader(cache Cache, list FieldLister) *Loader {
	return &Loader{cache: cache, list: list}
}

// Fields returns the column lists for tables, keyed by table name. id names
// the cache entry; tables missing from it are listed from the database and
// the merged entry is written back.
func (l *Loader) Fields(ctx context.Context, id string, tables ...string) (map[string][]string, error) {
	key := KeyPrefix + id
	v, err, _ := l.group.Do(key+"\x00"+fmt.Sprint(tables), func() (interface{}, error) {
		return l.load(ctx, key, tables)
	})
	if err != nil {
		return nil, err
	}

	// The shared map must not leak to concurrent callers.
	all := v.(map[string][]string)
	out := make(map[string][]string, len(tables))
	for _, t := range tables {
		out[t] = append([]string(nil), all[t]...)
	}
	return out, nil
}

func (l *Loader) load(ctx context.Context, key string, tables []string) (map[string][]string, error) {
	mu, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	cached := make(map[string][]string)
	if l.cache != nil {
		raw, ok, err := l.cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			if err := msgpack.Unmarshal(raw, &cached); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}

	dirty := false
	for _, t := range tables {
		if _, ok := cached[t]; ok {
			continue
		}
		fields, err := l.list(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("list fields of %s: %w", t, err)
		}
		cached[t] = fields
		dirty = true
	}

	if dirty && l.cache != nil {
		raw, err := msgpack.Marshal(cached)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := l.cache.Write(ctx, key, raw); err != nil {
			return nil, fmt.Errorf("write %s: %w", key, err)
		}
	}
	return cached, nil
}
