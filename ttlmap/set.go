package ttlmap

import "github.com/ddirect/timestore"

type Setter[K comparable, V any] interface {
	Set(k K, v V)
}

// Builtin is a plain map satisfying Setter.
type Builtin[K comparable, V any] map[K]V

func (b Builtin[K, V]) Set(k K, v V) {
	b[k] = v
}

// Set stores v under k in dst. If dst is a *Map, opts select the ttl of k;
// otherwise they are ignored.
func Set[K comparable, V any](dst Setter[K, V], k K, v V, opts ...timestore.AddOption) {
	if m, ok := dst.(*Map[K, V]); ok {
		m.SetValue(timestore.MakeTTL[K](opts...)(k), v)
		return
	}
	dst.Set(k, v)
}
