package metrics_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/synctest"
	"time"

	"github.com/ddirect/timestore"
	"github.com/ddirect/timestore/metrics"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, text []byte) map[string]*dto.MetricFamily {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(bytes.NewReader(text))
	require.NoError(t, err)
	return mfs
}

func value(t *testing.T, mf *dto.MetricFamily, store string) float64 {
	require.NotNil(t, mf)
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "store" && l.GetValue() == store {
				if m.Counter != nil {
					return m.Counter.GetValue()
				}
				return m.Gauge.GetValue()
			}
		}
	}
	t.Fatalf("no sample for store %q in %s", store, mf.GetName())
	return 0
}

func Test_CountsStoreNotifications(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var s *timestore.Store[string]
		c := metrics.New[string]("sessions", func() int { return s.Len() })
		s = timestore.New(timestore.Options[string]{TTL: time.Second, Mirror: c})

		s.Add("a").Add("b").Add("a").Add("c", timestore.WithTTL(0))
		time.Sleep(time.Second)
		synctest.Wait()

		assert.Equal(t, int64(2), c.Expired())
		assert.Equal(t, int64(1), c.Renewed())

		var buf bytes.Buffer
		require.NoError(t, metrics.WriteText(&buf, c))
		mfs := parse(t, buf.Bytes())

		assert.Equal(t, 2.0, value(t, mfs[metrics.ExpiredTotal], "sessions"))
		assert.Equal(t, 1.0, value(t, mfs[metrics.RenewedTotal], "sessions"))
		assert.Equal(t, 1.0, value(t, mfs[metrics.Entries], "sessions"))
		assert.Equal(t, dto.MetricType_GAUGE, mfs[metrics.Entries].GetType())
	})
}

func Test_FamiliesMergeSources(t *testing.T) {
	a := metrics.New[int]("a", nil)
	b := metrics.New[int]("b", nil)
	a.NotifyExpired(1)
	b.NotifyExpired(1)
	b.NotifyExpired(2)

	mfs := metrics.Families(a, b)
	require.Len(t, mfs, 2)
	assert.Equal(t, metrics.ExpiredTotal, mfs[0].GetName())
	assert.Equal(t, metrics.RenewedTotal, mfs[1].GetName())
	assert.Equal(t, 1.0, value(t, mfs[0], "a"))
	assert.Equal(t, 2.0, value(t, mfs[0], "b"))
}

func Test_Handler(t *testing.T) {
	c := metrics.New[string]("h", func() int { return 3 })
	c.NotifyRenewed("x")

	rec := httptest.NewRecorder()
	metrics.Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	mfs := parse(t, rec.Body.Bytes())
	assert.Equal(t, 3.0, value(t, mfs[metrics.Entries], "h"))
	assert.Equal(t, 1.0, value(t, mfs[metrics.RenewedTotal], "h"))
}
