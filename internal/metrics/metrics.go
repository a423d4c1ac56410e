// Package metrics exposes the ambient Prometheus counters/gauges carried
// alongside the core subsystems (§10 of SPEC_FULL.md). Nothing in the
// spec requires these to be scraped; the registry is wired so the
// daemon's behavior is observable the way the rest of the example pack
// makes its daemons observable, not because any operation depends on it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the daemon's metrics behind a single struct so callers
// don't need package-level globals.
type Registry struct {
	FramesBroadcast    prometheus.Counter
	ViewersActive      prometheus.Gauge
	GrallocBuffersLive prometheus.Gauge
	ADBBytesPumped     prometheus.Counter
}

// NewRegistry creates and registers the daemon's metrics against reg.
// Pass prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer to expose them on the default /metrics
// handler.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		FramesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redroidhostd",
			Subsystem: "streamer",
			Name:      "frames_broadcast_total",
			Help:      "Frames written to connected viewers.",
		}),
		ViewersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redroidhostd",
			Subsystem: "streamer",
			Name:      "viewers_active",
			Help:      "Currently connected frame-stream viewers.",
		}),
		GrallocBuffersLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redroidhostd",
			Subsystem: "gralloc",
			Name:      "buffers_live",
			Help:      "Allocated gralloc buffers not yet freed.",
		}),
		ADBBytesPumped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "redroidhostd",
			Subsystem: "adbforward",
			Name:      "bytes_pumped_total",
			Help:      "Bytes copied in either direction by the ADB forwarder.",
		}),
	}
	reg.MustRegister(r.FramesBroadcast, r.ViewersActive, r.GrallocBuffersLive, r.ADBBytesPumped)
	return r
}
