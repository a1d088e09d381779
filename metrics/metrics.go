// Package metrics counts store notifications and exposes them in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names.
const (
	ExpiredTotal = "timestore_expired_total"
	RenewedTotal = "timestore_renewed_total"
	Entries      = "timestore_entries"
)

const storeLabel = "store"

// Collector is a timestore.Notifier counting the notifications of one store.
type Collector[K comparable] struct {
	name    string
	size    func() int
	expired atomic.Int64
	renewed atomic.Int64
}

// New creates a Collector for the store called name. size, if not nil, reports the number of entries.
func New[K comparable](name string, size func() int) *Collector[K] {
	return &Collector[K]{name: name, size: size}
}

func (c *Collector[K]) NotifyExpired(K) {
	c.expired.Add(1)
}

func (c *Collector[K]) NotifyRenewed(K) {
	c.renewed.Add(1)
}

func (c *Collector[K]) Expired() int64 {
	return c.expired.Load()
}

func (c *Collector[K]) Renewed() int64 {
	return c.renewed.Load()
}

func (c *Collector[K]) Samples() []Sample {
	s := []Sample{
		{ExpiredTotal, dto.MetricType_COUNTER, c.name, float64(c.expired.Load())},
		{RenewedTotal, dto.MetricType_COUNTER, c.name, float64(c.renewed.Load())},
	}
	if c.size != nil {
		s = append(s, Sample{Entries, dto.MetricType_GAUGE, c.name, float64(c.size())})
	}
	return s
}

type Sample struct {
	Name  string
	Type  dto.MetricType
	Store string
	Value float64
}

type Source interface {
	Samples() []Sample
}

var help = map[string]string{
	ExpiredTotal: "Identifiers removed because their time-to-live elapsed.",
	RenewedTotal: "Identifiers added again while still registered.",
	Entries:      "Identifiers currently registered.",
}

// Families groups the samples of all sources by metric name, sorted by name.
func Families(sources ...Source) []*dto.MetricFamily {
	byName := make(map[string]*dto.MetricFamily)
	for _, src := range sources {
		for _, s := range src.Samples() {
			mf, ok := byName[s.Name]
			if !ok {
				mf = &dto.MetricFamily{
					Name: ptr(s.Name),
					Help: ptr(help[s.Name]),
					Type: s.Type.Enum(),
				}
				byName[s.Name] = mf
			}
			mf.Metric = append(mf.Metric, metric(s))
		}
	}
	names := slices.Sorted(maps.Keys(byName))
	out := make([]*dto.MetricFamily, 0, len(names))
	for _, n := range names {
		out = append(out, byName[n])
	}
	return out
}

func metric(s Sample) *dto.Metric {
	m := &dto.Metric{
		Label: []*dto.LabelPair{{Name: ptr(storeLabel), Value: ptr(s.Store)}},
	}
	switch s.Type {
	case dto.MetricType_COUNTER:
		m.Counter = &dto.Counter{Value: ptr(s.Value)}
	case dto.MetricType_GAUGE:
		m.Gauge = &dto.Gauge{Value: ptr(s.Value)}
	default:
		m.Untyped = &dto.Untyped{Value: ptr(s.Value)}
	}
	return m
}

// WriteText writes the samples of all sources in the Prometheus text exposition format.
func WriteText(w io.Writer, sources ...Source) error {
	for _, mf := range Families(sources...) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func Handler(sources ...Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := WriteText(w, sources...); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func ptr[T any](v T) *T {
	return &v
}
