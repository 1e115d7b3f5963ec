package behavior

import (
	"fmt"
	"math"
	"unicode"
	"unicode/utf8"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/model"
	"cctvmonitor/internal/service/tracking"
)

const (
	// fastConfidenceSpeed is the speed (px/frame) that maps to full confidence.
	fastConfidenceSpeed = 30.0
	// loiterConfidenceFrames is the time in view that maps to full confidence.
	loiterConfidenceFrames = 300.0
	// erraticConfidence is the fixed score for erratic movement.
	erraticConfidence = 0.7
)

type cooldownKey struct {
	trackID int
	kind    model.BehaviorKind
}

// Classifier turns the current track set into suspicious events, suppressing
// repeats of the same (track, behavior) pair inside the frame cooldown.
type Classifier struct {
	tuning    config.Tuning
	classes   map[string]bool
	maxAngle  float64
	lastAlert map[cooldownKey]int
}

// NewClassifier creates a Classifier. Only tracks whose class is listed in
// tuning.SuspiciousClasses are evaluated.
func NewClassifier(tuning config.Tuning) *Classifier {
	classes := make(map[string]bool, len(tuning.SuspiciousClasses))
	for _, c := range tuning.SuspiciousClasses {
		classes[c] = true
	}
	return &Classifier{
		tuning:    tuning,
		classes:   classes,
		maxAngle:  tuning.ErraticAngleDeg * math.Pi / 180,
		lastAlert: make(map[cooldownKey]int),
	}
}

// Classify evaluates every eligible track for the given frame. Tracks are read, never modified.
func (c *Classifier) Classify(tracks []*tracking.Track, frame int) []model.SuspiciousEvent {
	var events []model.SuspiciousEvent

	for _, track := range tracks {
		if !c.classes[track.ClassLabel()] {
			continue
		}

		if speed := track.Speed(); speed > c.tuning.FastSpeed && track.TimeInView() > c.tuning.FastMinFrames {
			events = c.emit(events, track, frame, model.FastMovement,
				math.Min(speed/fastConfidenceSpeed, 1.0),
				fmt.Sprintf("%s moving unusually fast (possible theft/escape)", subject(track)))
		}

		if inView := track.TimeInView(); track.IsStationary() && inView > c.tuning.LoiterFrames {
			events = c.emit(events, track, frame, model.Loitering,
				math.Min(float64(inView)/loiterConfidenceFrames, 1.0),
				fmt.Sprintf("%s loitering for %d frames", subject(track), inView))
		}

		if track.IsErratic(c.tuning.ErraticWindow, c.tuning.ErraticMinSamples, c.maxAngle, c.tuning.ErraticMinChanges) {
			events = c.emit(events, track, frame, model.ErraticMovement,
				erraticConfidence,
				fmt.Sprintf("%s showing erratic movement pattern", subject(track)))
		}
	}

	return events
}

// emit appends the event unless its cooldown key fired within the cooldown window.
func (c *Classifier) emit(events []model.SuspiciousEvent, track *tracking.Track, frame int, kind model.BehaviorKind, confidence float64, description string) []model.SuspiciousEvent {
	key := cooldownKey{trackID: track.ID(), kind: kind}
	if last, ok := c.lastAlert[key]; ok && frame-last < c.tuning.AlertCooldownFrames {
		return events
	}
	c.lastAlert[key] = frame

	return append(events, model.SuspiciousEvent{
		TrackID:     track.ID(),
		Kind:        kind,
		Confidence:  confidence,
		Description: description,
		Position:    track.Position(),
		ClassLabel:  track.ClassLabel(),
		Frame:       frame,
	})
}

// Prune drops cooldown entries for tracks that no longer exist. Stale entries
// are harmless; this only bounds memory on long runs.
func (c *Classifier) Prune(tracks []*tracking.Track) {
	live := make(map[int]bool, len(tracks))
	for _, track := range tracks {
		live[track.ID()] = true
	}
	for key := range c.lastAlert {
		if !live[key.trackID] {
			delete(c.lastAlert, key)
		}
	}
}

// CooldownEntries reports how many (track, behavior) cooldowns are held.
func (c *Classifier) CooldownEntries() int {
	return len(c.lastAlert)
}

func subject(track *tracking.Track) string {
	label := track.ClassLabel()
	if label == "" {
		return "Object"
	}
	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + label[size:]
}
