package session

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the session's optional Prometheus collectors. A Session
// with metrics == nil behaves identically, just without the bookkeeping;
// EnableMetrics turns it on.
type metrics struct {
	bytesConsumed   prometheus.Counter
	channelsPolled  prometheus.Counter
	channelsRemoved prometheus.Counter
	channelsLive    prometheus.Gauge
	eventsDropped   prometheus.Counter
}

// EnableMetrics wires up Prometheus collectors for this session. It never
// registers them against any registry itself -- callers pass the slice
// returned by Collectors to their own registry -- so importing this
// package never has a global side effect (§9's "no global mutable default
// session" caution, extended to metrics registration).
func (s *Session) EnableMetrics(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Store(&metrics{
		bytesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "binlog", Name: "bytes_consumed_total",
			Help: "Total bytes written to the consume sink.",
		}),
		channelsPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "binlog", Name: "channels_polled_total",
			Help: "Total channel-poll operations performed during Consume.",
		}),
		channelsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "binlog", Name: "channels_removed_total",
			Help: "Total channels retired after their writer closed them.",
		}),
		channelsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "binlog", Name: "channels_live",
			Help: "Number of channels currently registered with the session.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "binlog", Name: "events_dropped_total",
			Help: "Total AddEvent calls that failed even after a channel replacement attempt.",
		}),
	})
}

// Collectors returns this session's Prometheus collectors, or nil if
// EnableMetrics was never called.
func (s *Session) Collectors() []prometheus.Collector {
	m := s.metrics.Load()
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.bytesConsumed,
		m.channelsPolled,
		m.channelsRemoved,
		m.channelsLive,
		m.eventsDropped,
	}
}
