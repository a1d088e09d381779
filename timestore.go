// Package timestore tracks identifiers that expire after a per-identifier time-to-live,
// using a single timer armed for the identifier that is due first.
package timestore

import (
	"slices"
	"sync"
	"time"

	"github.com/ddirect/timestore/internal/deadline"
)

// Entry is a snapshot of a registered identifier.
type Entry struct {
	Timestamp time.Time
	TTL       time.Duration
}

// Deadline returns the instant the entry expires, or the zero time if it never does.
func (e Entry) Deadline() time.Time {
	if e.TTL == 0 {
		return time.Time{}
	}
	return e.Timestamp.Add(e.TTL)
}

type record[K comparable] struct {
	born time.Time
	ttl  time.Duration
	slot *deadline.Item[K] // nil when ttl is zero
}

// Store is a registry of identifiers, each one expiring after its own ttl. At most one timer
// is pending at any time, armed for the identifier with the earliest deadline. When it fires
// the identifier is removed and reported to the notifiers as expired.
// All methods are safe for concurrent use.
type Store[K comparable] struct {
	mu               sync.Mutex
	ttl              time.Duration
	expireOnShutdown bool
	mirror           Notifier[K]
	subs             []subscription[K]
	lastSub          int
	records          map[K]*record[K]
	queue            deadline.Queue[K]
	current          *deadline.Item[K]
	timer            *time.Timer
	gen              uint64 // bumped every time the timer is disarmed
	now              func() time.Time
}

// New creates a Store. It panics if opts.TTL is negative.
func New[K comparable](opts Options[K]) *Store[K] {
	checkTTL(opts.TTL)
	return &Store[K]{
		ttl:              opts.TTL,
		expireOnShutdown: opts.ExpireOnShutdown,
		mirror:           opts.Mirror,
		records:          make(map[K]*record[K]),
		now:              time.Now,
	}
}

// TTL returns the default time-to-live.
func (s *Store[K]) TTL() time.Duration {
	return s.ttl
}

// Subscribe registers n for the notifications of this store.
func (s *Store[K]) Subscribe(n Notifier[K]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSub++
	id := s.lastSub
	s.subs = append(s.subs, subscription[K]{id, n})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription[K]) bool {
			return sub.id == id
		})
	}
}

// Add registers id, or renews it if already present. A renewed identifier is reported
// before any expiration caused by the rescheduling that follows.
func (s *Store[K]) Add(id K, opts ...AddOption) *Store[K] {
	o := makeAddOptions(opts)
	if !o.hasTTL {
		o.ttl = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, found := s.records[id]
	wasCurrent := found && rec.slot != nil && rec.slot == s.current
	if !found || !o.keepBirth {
		rec = s.write(id, rec, now, o.ttl)
	}
	if found {
		s.renewed(id)
	}

	switch {
	case rec.ttl == 0:
		if wasCurrent {
			s.reschedule()
		}
	case s.current == nil:
		s.arm(rec.slot, now)
	case wasCurrent || rec.slot.Deadline().Before(s.current.Deadline()):
		s.reschedule()
	}
	return s
}

// AddValue adds a Timed identifier with the ttl it carries. Any other value is ignored.
func (s *Store[K]) AddValue(v Value[K]) *Store[K] {
	t, ok := v.(Timed[K])
	if !ok {
		return s
	}
	return s.Add(t.ID, t.addOptions()...)
}

// Delete removes id, returning false if it was not registered. No notification is sent.
func (s *Store[K]) Delete(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false
	}
	delete(s.records, id)
	if rec.slot != nil {
		wasCurrent := rec.slot == s.current
		s.queue.Remove(rec.slot)
		if wasCurrent {
			s.reschedule()
		}
	}
	return true
}

func (s *Store[K]) Get(id K) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{rec.born, rec.ttl}, true
}

func (s *Store[K]) Has(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func (s *Store[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Remaining returns how long id has left. Identifiers that never expire report zero.
func (s *Store[K]) Remaining(id K) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.ttl == 0 {
		return 0, ok
	}
	return max(rec.slot.Deadline().Sub(s.now()), 0), true
}

// Scheduled returns the identifier the timer is currently armed for.
func (s *Store[K]) Scheduled() (id K, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	return s.current.Value, true
}

// Clear stops the timer and forgets every identifier without notifying anyone.
func (s *Store[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

// Shutdown is meant to be called once the application is terminating. If the store was
// created with ExpireOnShutdown, every identifier is reported as expired, in no particular
// order, before the store is cleared.
func (s *Store[K]) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expireOnShutdown {
		for id := range s.records {
			s.expired(id)
		}
	}
	s.clear()
}

func (s *Store[K]) clear() {
	s.disarm()
	s.queue.Clear()
	clear(s.records)
}

func (s *Store[K]) write(id K, rec *record[K], now time.Time, ttl time.Duration) *record[K] {
	if rec == nil {
		rec = new(record[K])
		s.records[id] = rec
	}
	rec.born = now
	rec.ttl = ttl
	switch {
	case ttl == 0 && rec.slot != nil:
		s.queue.Remove(rec.slot)
		rec.slot = nil
	case ttl > 0 && rec.slot != nil:
		s.queue.Reschedule(rec.slot, now.Add(ttl))
	case ttl > 0:
		rec.slot = s.queue.Push(now.Add(ttl), id)
	}
	return rec
}

// reschedule arms the timer for the earliest deadline, first expiring
// everything that is already overdue.
func (s *Store[K]) reschedule() {
	s.disarm()
	now := s.now()
	for it := range s.queue.Due(now) {
		delete(s.records, it.Value)
		s.expired(it.Value)
	}
	if first := s.queue.First(); first != nil {
		s.arm(first, now)
	}
}

func (s *Store[K]) arm(it *deadline.Item[K], now time.Time) {
	s.current = it
	gen := s.gen
	s.timer = time.AfterFunc(max(it.Deadline().Sub(now), 0), func() {
		s.fire(gen)
	})
}

func (s *Store[K]) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = nil
	s.gen++
}

func (s *Store[K]) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the timer was stopped or replaced after it had already fired
	if gen != s.gen || s.current == nil {
		return
	}
	it := s.current
	s.disarm()
	s.queue.Remove(it)
	delete(s.records, it.Value)
	s.expired(it.Value)
	s.reschedule()
}
