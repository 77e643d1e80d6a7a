// Package metrics exposes Prometheus collectors for cursor lifecycle events.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hiveframe"

// Operation kinds used as the "op" label.
const (
	OpExecute     = "execute"
	OpFetchAll    = "fetch_all"
	OpFetchChunks = "fetch_chunks"
	OpNext        = "next"
)

type Metrics struct {
	CursorsOpened prometheus.Counter
	CursorsClosed prometheus.Counter
	PagesFetched  prometheus.Counter
	RowsFetched   prometheus.Counter
	Errors        *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

// New registers the hiveframe collectors with reg.
func New(reg prometheus.Registerer) (m *Metrics, err error) {
	// promauto panics on duplicate registration
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				m = nil
				return
			}
			panic(r)
		}
	}()

	factory := promauto.With(reg)
	m = &Metrics{
		CursorsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cursors_opened_total",
			Help:      "Total number of cursors opened",
		}),
		CursorsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cursors_closed_total",
			Help:      "Total number of cursors closed",
		}),
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of result pages fetched",
		}),
		RowsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_fetched_total",
			Help:      "Total number of result rows fetched",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed cursor operations",
		}, []string{"operation"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Latency of client operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	return m, nil
}

func (m *Metrics) CursorOpened() {
	if m == nil {
		return
	}
	m.CursorsOpened.Inc()
}

func (m *Metrics) CursorClosed() {
	if m == nil {
		return
	}
	m.CursorsClosed.Inc()
}

// PageFetched records one page of n rows.
func (m *Metrics) PageFetched(n int) {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
	m.RowsFetched.Add(float64(n))
}

// Failed records a failed cursor operation such as "open" or "fetch".
func (m *Metrics) Failed(operation string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(operation).Inc()
}

// Track starts timing op. Call the returned function when op is done.
func (m *Metrics) Track(op string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
