package model

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// BehaviorKind names a suspicious behavior the classifier can report.
type BehaviorKind string

const (
	FastMovement    BehaviorKind = "fast_movement"
	Loitering       BehaviorKind = "loitering"
	ErraticMovement BehaviorKind = "erratic_movement"
)

// BehaviorKinds lists every kind in evaluation order.
var BehaviorKinds = []BehaviorKind{FastMovement, Loitering, ErraticMovement}

// SuspiciousEvent is produced by the classifier for one track in one frame.
type SuspiciousEvent struct {
	TrackID     int          `json:"track_id"`
	Kind        BehaviorKind `json:"behavior_type"`
	Confidence  float64      `json:"confidence"`
	Description string       `json:"description"`
	Position    r2.Vec       `json:"position"`
	ClassLabel  string       `json:"class_name"`
	Frame       int          `json:"frame"`
}
