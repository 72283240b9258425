package dispatch

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/kvbridge/rpc/correlation"
	"github.com/VictoriaMetrics/metrics"
)

// dispatchMetrics holds the metrics of one dispatcher in its own set, so several
// dispatchers can live in one process without name clashes
type dispatchMetrics struct {
	set *metrics.Set

	dispatched   *metrics.Counter
	submitErrors *metrics.Counter
	resolved     *metrics.Counter
	failed       *metrics.Counter
	cancelled    *metrics.Counter
	timedOut     *metrics.Counter
	latency      *metrics.Histogram
}

func newDispatchMetrics(name string, table *correlation.Table) *dispatchMetrics {
	set := metrics.NewSet()
	label := fmt.Sprintf(`client=%q`, name)
	outcome := func(o string) *metrics.Counter {
		return set.NewCounter(fmt.Sprintf(`kvb_dispatch_outcomes_total{%s,outcome=%q}`, label, o))
	}

	m := &dispatchMetrics{
		set:          set,
		dispatched:   set.NewCounter(fmt.Sprintf(`kvb_dispatch_requests_total{%s}`, label)),
		submitErrors: set.NewCounter(fmt.Sprintf(`kvb_dispatch_submit_errors_total{%s}`, label)),
		resolved:     outcome("resolved"),
		failed:       outcome("failed"),
		cancelled:    outcome("cancelled"),
		timedOut:     outcome("timeout"),
		latency:      set.NewHistogram(fmt.Sprintf(`kvb_dispatch_duration_seconds{%s}`, label)),
	}
	set.NewGauge(fmt.Sprintf(`kvb_dispatch_inflight{%s}`, label), func() float64 {
		return float64(table.Len())
	})
	set.NewGauge(fmt.Sprintf(`kvb_dispatch_stale_responses{%s}`, label), func() float64 {
		return float64(table.Stale())
	})
	return m
}

// observe records the outcome and latency of a settled request
func (m *dispatchMetrics) observe(state correlation.State, start time.Time) {
	switch state {
	case correlation.StateResolved:
		m.resolved.Inc()
	case correlation.StateFailed:
		m.failed.Inc()
	case correlation.StateCancelled:
		m.cancelled.Inc()
	case correlation.StateTimedOut:
		m.timedOut.Inc()
	}
	m.latency.UpdateDuration(start)
}
