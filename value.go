package timestore

import "time"

// Value is an identifier as handed to a wrapping collection: either Plain or Timed.
type Value[K comparable] interface {
	Identifier() K
	isValue()
}

type Plain[K comparable] struct {
	ID K
}

func (p Plain[K]) Identifier() K {
	return p.ID
}

func (Plain[K]) isValue() {}

// Timed carries an identifier together with the ttl it should be added with.
type Timed[K comparable] struct {
	ID     K
	ttl    time.Duration
	hasTTL bool
}

func (t Timed[K]) Identifier() K {
	return t.ID
}

func (Timed[K]) isValue() {}

// TTL returns the override carried by t. When ok is false the store default applies.
func (t Timed[K]) TTL() (ttl time.Duration, ok bool) {
	return t.ttl, t.hasTTL
}

func (t Timed[K]) addOptions() []AddOption {
	if t.hasTTL {
		return []AddOption{WithTTL(t.ttl)}
	}
	return nil
}

// MakeTTL returns a function tagging identifiers with the ttl selected by opts.
// Only WithTTL is relevant here; without it the tagged identifiers use the store default.
func MakeTTL[K comparable](opts ...AddOption) func(K) Timed[K] {
	o := makeAddOptions(opts)
	return func(id K) Timed[K] {
		return Timed[K]{
			ID:     id,
			ttl:    o.ttl,
			hasTTL: o.hasTTL,
		}
	}
}

func IsTimed[K comparable](v Value[K]) bool {
	_, ok := v.(Timed[K])
	return ok
}
