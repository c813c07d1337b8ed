package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the remote dispatch pipeline.
type Metrics struct {
	// Dispatches counts prompt submissions per endpoint and result.
	Dispatches *prometheus.CounterVec
	// PollCycles counts history polls issued while awaiting jobs.
	PollCycles prometheus.Counter
	// TransportFailures counts failed history polls (retried within budget).
	TransportFailures prometheus.Counter
	// UploadedBytes totals asset bytes shipped to peers before dispatch.
	UploadedBytes prometheus.Counter
	// FetchedAssets counts output assets downloaded from peers.
	FetchedAssets prometheus.Counter
}

// NewMetrics creates the metric set registered against reg. A nil reg leaves
// the metrics unregistered, which makes them effectively no-ops.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "dispatches_total",
			Help:      "Prompt submissions to remote peers.",
		}, []string{"endpoint", "result"}),
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "poll_cycles_total",
			Help:      "History polls issued while awaiting remote jobs.",
		}),
		TransportFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "poll_transport_failures_total",
			Help:      "Transport failures during history polling.",
		}),
		UploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "uploaded_bytes_total",
			Help:      "Asset bytes uploaded to remote peers.",
		}),
		FetchedAssets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "fetched_assets_total",
			Help:      "Output assets downloaded from remote peers.",
		}),
	}
}

// Nop returns an unregistered metric set.
func Nop() *Metrics {
	return NewMetrics(nil)
}
