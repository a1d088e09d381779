// Package ttlmap provides a map whose keys are dropped when they expire in a timestore.Store.
package ttlmap

import (
	"fmt"
	"iter"
	"maps"
	"sync"
	"time"

	"github.com/ddirect/timestore"
	"github.com/ddirect/timestore/notify"
)

// DefaultTTL is the lifetime NewTimeMap gives keys when Options.TTL is zero.
const DefaultTTL = time.Second

type Options[K comparable] struct {
	// TTL applies to keys set without their own ttl. Zero means they never expire.
	TTL time.Duration

	// ExpireOnShutdown reports every key as expired when Shutdown is called.
	ExpireOnShutdown bool

	// Events receives the expired and renewed keys, after the map has been updated.
	Events timestore.Notifier[K]
}

// Map is a key value store where keys are removed once their ttl elapses.
// Setting an existing key renews its ttl. All methods are safe for concurrent use.
type Map[K comparable, V any] struct {
	store  *timestore.Store[K]
	op     sync.Mutex // serializes changes spanning store and values
	mu     sync.RWMutex
	values map[K]V

	// the key being set while op is held, guarded by mu
	setting  *K
	deferred bool // an expiration of setting arrived while it was in flight
}

// New creates a Map where, unless opts.TTL is set, keys only expire when set with their own ttl.
func New[K comparable, V any](opts Options[K]) *Map[K, V] {
	m := &Map[K, V]{
		store: timestore.New(timestore.Options[K]{
			TTL:              opts.TTL,
			ExpireOnShutdown: opts.ExpireOnShutdown,
			Mirror:           opts.Events,
		}),
		values: make(map[K]V),
	}
	m.store.Subscribe(notify.Funcs[K]{OnExpired: m.evict})
	return m
}

// NewTimeMap creates a Map whose keys expire after DefaultTTL unless opts.TTL is set.
func NewTimeMap[K comparable, V any](opts Options[K]) *Map[K, V] {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	return New[K, V](opts)
}

// FromSeq creates a Map with New and sets every pair of seq.
func FromSeq[K comparable, V any](seq iter.Seq2[K, V], opts Options[K]) *Map[K, V] {
	m := New[K, V](opts)
	for k, v := range seq {
		m.Set(k, v)
	}
	return m
}

func (m *Map[K, V]) evict(k K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setting != nil && *m.setting == k {
		m.deferred = true
		return
	}
	delete(m.values, k)
}

func (m *Map[K, V]) Set(k K, v V) {
	m.SetValue(timestore.Plain[K]{ID: k}, v)
}

// SetValue stores v under the key carried by key. A timestore.Timed key sets its own ttl.
// It reports whether the key was not present before.
func (m *Map[K, V]) SetValue(key timestore.Value[K], v V) (added bool) {
	var add func()
	switch key := key.(type) {
	case timestore.Timed[K]:
		add = func() { m.store.AddValue(key) }
	case timestore.Plain[K]:
		add = func() { m.store.Add(key.ID) }
	default:
		panic(fmt.Errorf("ttlmap: invalid key %#v", key))
	}
	k := key.Identifier()

	m.op.Lock()
	defer m.op.Unlock()

	// the value is in place before the store can expire k, and expirations of k
	// racing with the store update are settled once the store is done
	m.mu.Lock()
	_, found := m.values[k]
	m.values[k] = v
	m.setting = &k
	m.deferred = false
	m.mu.Unlock()

	add()

	m.mu.Lock()
	m.setting = nil
	deferred := m.deferred
	m.mu.Unlock()

	if deferred && !m.store.Has(k) {
		m.mu.Lock()
		delete(m.values, k)
		m.mu.Unlock()
	}
	return !found
}

// Get returns the value of k. It does not renew k.
func (m *Map[K, V]) Get(k K) (v V, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok = m.values[k]
	return
}

func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

func (m *Map[K, V]) Delete(k K) bool {
	m.op.Lock()
	defer m.op.Unlock()
	m.store.Delete(k)

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[k]
	delete(m.values, k)
	return ok
}

func (m *Map[K, V]) Clear() {
	m.op.Lock()
	defer m.op.Unlock()
	m.store.Clear()

	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
}

// Shutdown empties the map, first reporting every key as expired if the map was created
// with ExpireOnShutdown.
func (m *Map[K, V]) Shutdown() {
	m.op.Lock()
	defer m.op.Unlock()
	m.store.Shutdown()

	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

func (m *Map[K, V]) TTL() time.Duration {
	return m.store.TTL()
}

// Store returns the store tracking the keys. It must not be modified directly.
func (m *Map[K, V]) Store() *timestore.Store[K] {
	return m.store
}

// All iterates on a snapshot of the map, so the map can be modified while iterating.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	m.mu.RLock()
	snapshot := maps.Clone(m.values)
	m.mu.RUnlock()
	return maps.All(snapshot)
}

func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}
