package notify

import (
	"sync"
)

type Event[K comparable] struct {
	Kind Kind
	ID   K
}

// Recorder keeps every notification it receives, in arrival order.
type Recorder[K comparable] struct {
	mu     sync.Mutex
	events []Event[K]
}

func (r *Recorder[K]) NotifyExpired(id K) {
	r.add(Expired, id)
}

func (r *Recorder[K]) NotifyRenewed(id K) {
	r.add(Renewed, id)
}

func (r *Recorder[K]) add(kind Kind, id K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event[K]{kind, id})
}

func (r *Recorder[K]) Events() []Event[K] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event[K](nil), r.events...)
}

// IDs returns the identifiers of the recorded events of the given kind.
func (r *Recorder[K]) IDs(kind Kind) (ids []K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == kind {
			ids = append(ids, e.ID)
		}
	}
	return
}

func (r *Recorder[K]) Count(kind Kind) int {
	return len(r.IDs(kind))
}

func (r *Recorder[K]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
