package timestore

// Notifier receives the identifiers leaving or being refreshed in a Store.
// Methods are called synchronously while the store is locked: they must return
// promptly and must not call back into the same Store.
type Notifier[K comparable] interface {
	NotifyExpired(id K)
	NotifyRenewed(id K)
}

type subscription[K comparable] struct {
	id int
	n  Notifier[K]
}

func (s *Store[K]) expired(id K) {
	for _, sub := range s.subs {
		sub.n.NotifyExpired(id)
	}
	if s.mirror != nil {
		s.mirror.NotifyExpired(id)
	}
}

func (s *Store[K]) renewed(id K) {
	for _, sub := range s.subs {
		sub.n.NotifyRenewed(id)
	}
	if s.mirror != nil {
		s.mirror.NotifyRenewed(id)
	}
}
