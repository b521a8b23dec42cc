package node

import "github.com/prometheus/client_golang/prometheus"

// PrometheusMetrics wires the four counters Node tracks to Prometheus,
// implementing both the Metrics interface Node consumes and
// prometheus.Collector so it can be registered directly -- grounded on
// runZeroInc-sockstats's TCPInfoCollector, which likewise hand-rolls
// Describe/Collect over a small fixed set of metrics rather than reaching
// for promauto.
type PrometheusMetrics struct {
	framesDropped     prometheus.Counter
	sessionsTimedOut  prometheus.Counter
	duplicatesDropped prometheus.Counter
	crcFailures       prometheus.Counter
}

// NewPrometheusMetrics builds a PrometheusMetrics under the given
// namespace (e.g. "gouavcan"), unregistered -- pass it to a
// prometheus.Registerer yourself.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      name,
			Help:      help,
		})
	}
	return &PrometheusMetrics{
		framesDropped:     counter("frames_dropped_total", "Outgoing frames dropped because the queue was full (out of memory on the no-allocator target)."),
		sessionsTimedOut:  counter("sessions_timed_out_total", "Reassembly sessions evicted for going silent past their timeout."),
		duplicatesDropped: counter("duplicate_transfers_dropped_total", "Transfers dropped because their transfer id repeated the last one accepted."),
		crcFailures:       counter("crc_failures_total", "Multi-frame transfers dropped for failing CRC verification."),
	}
}

func (m *PrometheusMetrics) FrameDropped()             { m.framesDropped.Inc() }
func (m *PrometheusMetrics) SessionTimedOut()          { m.sessionsTimedOut.Inc() }
func (m *PrometheusMetrics) DuplicateTransferDropped() { m.duplicatesDropped.Inc() }
func (m *PrometheusMetrics) CRCFailure()               { m.crcFailures.Inc() }

// Describe implements prometheus.Collector.
func (m *PrometheusMetrics) Describe(descs chan<- *prometheus.Desc) {
	m.framesDropped.Describe(descs)
	m.sessionsTimedOut.Describe(descs)
	m.duplicatesDropped.Describe(descs)
	m.crcFailures.Describe(descs)
}

// Collect implements prometheus.Collector.
func (m *PrometheusMetrics) Collect(metrics chan<- prometheus.Metric) {
	m.framesDropped.Collect(metrics)
	m.sessionsTimedOut.Collect(metrics)
	m.duplicatesDropped.Collect(metrics)
	m.crcFailures.Collect(metrics)
}

// Collector returns n's Metrics as a prometheus.Collector, if it is one
// (true for the PrometheusMetrics this package provides, false for a
// caller-supplied Metrics or the default noopMetrics).
func (n *Node) Collector() (prometheus.Collector, bool) {
	c, ok := n.Metrics.(prometheus.Collector)
	return c, ok
}
