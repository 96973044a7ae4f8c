package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxtd_read_attempts_total",
			Help: "Acquisition attempts by outcome",
		},
		[]string{"status"},
	)

	PacketsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxtd_packets_decoded_total",
			Help: "Decoded packets by packet type",
		},
		[]string{"type"},
	)

	FramesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wxtd_frames_discarded_total",
			Help: "Candidate frames dropped by structural validation",
		},
	)

	ObservationsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wxtd_observations_stored_total",
			Help: "Observations written to the archive",
		},
	)

	SnapshotsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxtd_snapshots_published_total",
			Help: "Current-conditions snapshots uploaded by outcome",
		},
		[]string{"status"},
	)
)
