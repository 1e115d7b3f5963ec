package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics, labelled per camera so independent loops never share series.
var (
	FramesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_frames_processed_total",
			Help: "Frames pushed through detect, track and classify",
		},
		[]string{"camera"},
	)

	FrameDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surveillance_frame_duration_seconds",
			Help:    "Wall time spent on one frame, delivery included",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"camera"},
	)

	FramesPerSecond = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surveillance_frames_per_second",
			Help: "Throughput measured over the last 30 frames",
		},
		[]string{"camera"},
	)

	DetectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_detections_rejected_total",
			Help: "Malformed detections skipped by the tracker",
		},
		[]string{"camera"},
	)

	DetectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_detector_errors_total",
			Help: "Frames on which the detector failed",
		},
		[]string{"camera"},
	)

	ActiveTracks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surveillance_active_tracks",
			Help: "Tracks alive after the latest frame",
		},
		[]string{"camera"},
	)

	EventsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_events_classified_total",
			Help: "Events emitted by the behavior classifier",
		},
		[]string{"camera", "behavior"},
	)

	EventsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_events_suppressed_total",
			Help: "Events dropped by the delivery cooldown",
		},
		[]string{"camera", "behavior"},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_events_delivered_total",
			Help: "Events handed to the sink without error",
		},
		[]string{"camera", "behavior"},
	)

	DeliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveillance_delivery_errors_total",
			Help: "Sink failures",
		},
		[]string{"camera", "behavior"},
	)

	AlertViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "surveillance_alert_viewers",
			Help: "Connected alert WebSocket clients",
		},
	)
)

// RecordFrame records one processed frame.
func RecordFrame(camera string, duration time.Duration, tracks int) {
	FramesProcessed.WithLabelValues(camera).Inc()
	FrameDuration.WithLabelValues(camera).Observe(duration.Seconds())
	ActiveTracks.WithLabelValues(camera).Set(float64(tracks))
}
