package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes recorded on EventsTotal.
const (
	OutcomeForwarded = "forwarded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var (
	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hecrelay_requests_total",
			Help: "Total number of relay requests by response status",
		},
		[]string{"status"},
	)

	DecompressedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hecrelay_decompressed_bytes_total",
			Help: "Total bytes produced by gzip decompression",
		},
	)

	// Dispatch metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hecrelay_events_total",
			Help: "Total number of events processed by sourcetype and outcome",
		},
		[]string{"sourcetype", "outcome"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hecrelay_dispatch_duration_seconds",
			Help:    "Duration of batch dispatch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Forwarder metrics
	PacketsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hecrelay_packets_sent_total",
			Help: "Total number of datagrams written to the raw socket",
		},
		[]string{"family"},
	)

	PacketBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hecrelay_packet_bytes_total",
			Help: "Total payload bytes forwarded",
		},
	)

	SendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hecrelay_send_errors_total",
			Help: "Total number of failed raw socket sends",
		},
		[]string{"family"},
	)
)

// SourcetypeLabel bounds the sourcetype label to known values so that
// arbitrary client input cannot grow the series count.
func SourcetypeLabel(sourcetype string, known bool) string {
	if known {
		return sourcetype
	}
	return "unknown"
}
