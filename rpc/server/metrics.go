package server

import (
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/store"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics holds the metrics of one server in its own set
type serverMetrics struct {
	set *metrics.Set

	commands     map[string]*metrics.Counter // per catalog command
	unknown      *metrics.Counter
	errorReplies *metrics.Counter
	decodeErrors *metrics.Counter
	latency      *metrics.Histogram
}

func newServerMetrics(s store.IStore) *serverMetrics {
	set := metrics.NewSet()
	m := &serverMetrics{
		set:          set,
		commands:     make(map[string]*metrics.Counter),
		unknown:      set.NewCounter(`kvb_server_commands_total{command="unknown"}`),
		errorReplies: set.NewCounter(`kvb_server_error_replies_total`),
		decodeErrors: set.NewCounter(`kvb_server_decode_errors_total`),
		latency:      set.NewHistogram(`kvb_server_command_duration_seconds`),
	}
	for _, name := range command.Names() {
		m.commands[name] = set.NewCounter(fmt.Sprintf(`kvb_server_commands_total{command=%q}`, name))
	}
	set.NewGauge(`kvb_server_keys`, func() float64 {
		return float64(s.Len())
	})
	return m
}

// observe records an executed command
func (m *serverMetrics) observe(name string, isError bool, start time.Time) {
	if c, ok := m.commands[name]; ok {
		c.Inc()
	} else {
		m.unknown.Inc()
	}
	if isError {
		m.errorReplies.Inc()
	}
	m.latency.UpdateDuration(start)
}

func (m *serverMetrics) write(w io.Writer) {
	m.set.WritePrometheus(w)
}
