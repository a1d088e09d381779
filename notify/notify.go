// Package notify provides building blocks implementing timestore.Notifier.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/ddirect/timestore"
)

type Kind int

const (
	Expired Kind = iota
	Renewed
)

func (k Kind) String() string {
	switch k {
	case Expired:
		return "expired"
	case Renewed:
		return "renewed"
	default:
		panic(fmt.Errorf("notify: invalid kind %d", int(k)))
	}
}

// Funcs adapts a pair of functions. Either may be nil.
type Funcs[K comparable] struct {
	OnExpired func(id K)
	OnRenewed func(id K)
}

func (f Funcs[K]) NotifyExpired(id K) {
	if f.OnExpired != nil {
		f.OnExpired(id)
	}
}

func (f Funcs[K]) NotifyRenewed(id K) {
	if f.OnRenewed != nil {
		f.OnRenewed(id)
	}
}

// Multi forwards every notification to each element, in order. Nil elements are skipped.
type Multi[K comparable] []timestore.Notifier[K]

func (m Multi[K]) NotifyExpired(id K) {
	for _, n := range m {
		if n != nil {
			n.NotifyExpired(id)
		}
	}
}

func (m Multi[K]) NotifyRenewed(id K) {
	for _, n := range m {
		if n != nil {
			n.NotifyRenewed(id)
		}
	}
}

// Logger writes each notification to a slog.Logger at debug level.
type Logger[K comparable] struct {
	Log  *slog.Logger
	Name string
}

func (l Logger[K]) NotifyExpired(id K) {
	l.log(Expired, id)
}

func (l Logger[K]) NotifyRenewed(id K) {
	l.log(Renewed, id)
}

func (l Logger[K]) log(kind Kind, id K) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Debug("timestore: "+kind.String(), "store", l.Name, "id", id)
}
