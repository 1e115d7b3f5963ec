package surveillance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/metrics"
	"cctvmonitor/internal/service/behavior"
	"cctvmonitor/internal/service/tracking"

	"github.com/google/uuid"
)

// fpsWindow is how many frames one FPS sample spans.
const fpsWindow = 30

// pruneEvery is how often (in frames) stale cooldown entries are dropped.
const pruneEvery = 300

// Stats are the loop's running totals.
type Stats struct {
	Camera             string  `json:"camera"`
	Frames             int     `json:"frames"`
	ActiveTracks       int     `json:"active_tracks"`
	RejectedDetections int     `json:"rejected_detections"`
	DetectorErrors     int     `json:"detector_errors"`
	Classified         int     `json:"classified"`
	Suppressed         int     `json:"suppressed"`
	Delivered          int     `json:"delivered"`
	DeliveryErrors     int     `json:"delivery_errors"`
	FPS                float64 `json:"fps"`
}

// Loop drives one camera: read a frame, detect, track, classify, deliver.
// Every stage of frame N completes before frame N+1 is read. The tracker,
// classifier and delivery cooldown belong to this Loop alone.
type Loop[F any] struct {
	camera     string
	source     FrameSource[F]
	detector   Detector[F]
	sink       Sink[F]
	tracker    *tracking.Tracker
	classifier *behavior.Classifier
	cooldown   *deliveryCooldown
	logger     *logger.Logger
	now        func() time.Time

	frame    int
	fpsStart time.Time

	stop      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once

	statsMu sync.Mutex
	stats   Stats
}

// NewLoop wires a pipeline for one camera with fresh tracker and classifier state.
func NewLoop[F any](camera string, source FrameSource[F], detector Detector[F], sink Sink[F], tuning config.Tuning, log *logger.Logger) *Loop[F] {
	return &Loop[F]{
		camera:     camera,
		source:     source,
		detector:   detector,
		sink:       sink,
		tracker:    tracking.NewTracker(tuning),
		classifier: behavior.NewClassifier(tuning),
		cooldown:   newDeliveryCooldown(tuning.DeliveryCooldown),
		logger:     log.With(camera),
		now:        time.Now,
		stop:       make(chan struct{}),
		stats:      Stats{Camera: camera},
	}
}

// Camera returns the camera name.
func (l *Loop[F]) Camera() string { return l.camera }

// Stop asks Run to return before the next frame. Safe to call more than once.
func (l *Loop[F]) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Run processes frames until Stop, ctx cancellation, or a failed read. The
// frame source is closed exactly once on return. A stop request returns nil;
// a failed read returns ErrFrameUnavailable.
func (l *Loop[F]) Run(ctx context.Context) error {
	defer l.release()

	l.logger.Info("Surveillance loop started")
	l.fpsStart = l.now()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Surveillance loop cancelled after %d frames", l.frame)
			return nil
		case <-l.stop:
			l.logger.Info("Surveillance loop stopped after %d frames", l.frame)
			return nil
		default:
		}

		frame, ok := l.source.Read(ctx)
		if !ok {
			if ctx.Err() != nil {
				l.logger.Info("Surveillance loop cancelled during read after %d frames", l.frame)
				return nil
			}
			l.logger.Error("Failed to read frame %d", l.frame+1)
			return fmt.Errorf("camera %s: %w", l.camera, ErrFrameUnavailable)
		}

		l.ProcessFrame(ctx, frame)
	}
}

// release closes the frame source once, whichever path ends the loop.
func (l *Loop[F]) release() {
	l.closeOnce.Do(func() {
		if err := l.source.Close(); err != nil {
			l.logger.Error("Failed to release frame source: %v", err)
			return
		}
		l.logger.Info("Frame source released")
	})
}

// ProcessFrame runs one full iteration on an already acquired frame and
// returns the alerts that reached the sink.
func (l *Loop[F]) ProcessFrame(ctx context.Context, frame F) []Alert {
	started := l.now()
	if l.fpsStart.IsZero() {
		l.fpsStart = started
	}
	l.frame++
	frameNumber := l.frame

	detections, err := l.detector.Detect(ctx, frame)
	if err != nil {
		// Tracks still age on a blind frame.
		l.logger.Error("Detector failed on frame %d: %v", frameNumber, err)
		metrics.DetectorErrors.WithLabelValues(l.camera).Inc()
		l.addStats(func(s *Stats) { s.DetectorErrors++ })
		detections = nil
	}

	rejected := 0
	if err := l.tracker.Update(detections, frameNumber); err != nil {
		rejected = len(unwrapJoined(err))
		l.logger.Warning("Frame %d: rejected %d detection(s): %v", frameNumber, rejected, err)
		metrics.DetectionsRejected.WithLabelValues(l.camera).Add(float64(rejected))
	}

	tracks := l.tracker.Tracks()
	events := l.classifier.Classify(tracks, frameNumber)

	var delivered []Alert
	suppressed, failed := 0, 0
	for _, event := range events {
		kind := string(event.Kind)
		metrics.EventsClassified.WithLabelValues(l.camera, kind).Inc()

		now := l.now()
		if !l.cooldown.allow(event.TrackID, event.Kind, now) {
			suppressed++
			metrics.EventsSuppressed.WithLabelValues(l.camera, kind).Inc()
			l.logger.Debug("Suppressed %s for track %d (delivery cooldown)", kind, event.TrackID)
			continue
		}

		alert := Alert{
			ID:        uuid.NewString(),
			Camera:    l.camera,
			Event:     event,
			Timestamp: now,
		}
		if err := l.sink.Deliver(ctx, alert, frame); err != nil {
			failed++
			metrics.DeliveryErrors.WithLabelValues(l.camera, kind).Inc()
			l.logger.Error("Failed to deliver %s for track %d: %v", kind, event.TrackID, err)
			continue
		}

		metrics.EventsDelivered.WithLabelValues(l.camera, kind).Inc()
		l.logger.Info("🚨 %s: track %d %s (confidence %.2f) at (%.0f, %.0f)",
			kind, event.TrackID, event.Description, event.Confidence, event.Position.X, event.Position.Y)
		delivered = append(delivered, alert)
	}

	if frameNumber%pruneEvery == 0 {
		l.classifier.Prune(tracks)
		l.cooldown.expire(l.now())
	}

	finished := l.now()
	metrics.RecordFrame(l.camera, finished.Sub(started), len(tracks))

	l.addStats(func(s *Stats) {
		s.Frames = frameNumber
		s.ActiveTracks = len(tracks)
		s.RejectedDetections += rejected
		s.Classified += len(events)
		s.Suppressed += suppressed
		s.Delivered += len(delivered)
		s.DeliveryErrors += failed
	})

	if frameNumber%fpsWindow == 0 {
		if elapsed := finished.Sub(l.fpsStart).Seconds(); elapsed > 0 {
			fps := fpsWindow / elapsed
			metrics.FramesPerSecond.WithLabelValues(l.camera).Set(fps)
			l.addStats(func(s *Stats) { s.FPS = fps })
		}
		l.fpsStart = finished
	}

	return delivered
}

// Tracker exposes the loop's tracker for inspection. Callers must not use it
// while Run is active.
func (l *Loop[F]) Tracker() *tracking.Tracker { return l.tracker }

// Stats returns a snapshot of the running totals. Safe to call during Run.
func (l *Loop[F]) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Loop[F]) addStats(update func(*Stats)) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	update(&l.stats)
}

// unwrapJoined splits an errors.Join result into its parts.
func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	if err == nil {
		return nil
	}
	return []error{err}
}
