package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader fills a Cache on misses. Concurrent misses for one key share a
// single load, and a load that overlapped an Invalidate of its key is
// returned to its callers but never stored.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c, gens: make(map[string]uint64)}
}

// Get returns the cached value for key or calls load. hit reports a cache hit.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (v T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	l.mu.Lock()
	gen := l.gens[key]
	l.mu.Unlock()

	res, err, _ := l.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gens[key] == gen {
			l.cache.Set(key, val)
		}
		l.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), false, nil
}

// Invalidate drops key and detaches any load already in flight for it.
func (l *Loader[T]) Invalidate(key string) {
	l.mu.Lock()
	l.gens[key]++
	l.cache.Delete(key)
	l.mu.Unlock()
	l.group.Forget(key)
}
