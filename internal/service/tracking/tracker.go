package tracking

import (
	"errors"
	"fmt"
	"math"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/dto"
)

// Stats summarizes the tracker state after the latest update.
type Stats struct {
	TotalTracked int            `json:"total_tracked"`
	FrameCount   int            `json:"frame_count"`
	ByClass      map[string]int `json:"tracked_by_class"`
}

// Tracker assigns stable ids to detections across frames using greedy
// nearest-neighbor association. One Tracker serves one camera and is not
// safe for concurrent use.
type Tracker struct {
	tuning config.Tuning
	tracks []*Track // ascending id
	nextID int
	frame  int
}

// NewTracker creates a Tracker with the given thresholds.
func NewTracker(tuning config.Tuning) *Tracker {
	return &Tracker{tuning: tuning}
}

// Update associates one frame of detections with the current tracks, creates
// tracks for unmatched detections and evicts stale ones.
//
// Malformed detections are skipped; the returned error joins one error per
// skipped detection and is nil when every detection was usable. The frame is
// always fully processed.
func (t *Tracker) Update(detections []dto.Detection, frame int) error {
	t.frame = frame

	var (
		rejected []error
		created  []*Track
		claimed  = make(map[int]bool, len(detections))
	)

	for i, det := range detections {
		if err := det.Validate(); err != nil {
			rejected = append(rejected, fmt.Errorf("detection %d: %w", i, err))
			continue
		}

		if match := t.nearest(det, frame, claimed); match != nil {
			match.update(det, frame, t.tuning.StationaryDistance, t.tuning.StationaryFrames)
			claimed[match.id] = true
			continue
		}

		created = append(created, newTrack(t.nextID, det, frame, t.tuning.HistorySize))
		t.nextID++
	}

	t.tracks = append(t.tracks, created...)
	t.evict(frame)

	return errors.Join(rejected...)
}

// nearest returns the closest unclaimed, recently seen track of the same class
// strictly inside the match radius. Ties go to the lowest id.
func (t *Tracker) nearest(det dto.Detection, frame int, claimed map[int]bool) *Track {
	center := det.Center()
	best := math.Inf(1)
	var match *Track

	for _, track := range t.tracks {
		if claimed[track.id] || track.classLabel != det.Label {
			continue
		}
		if frame-track.lastSeen > t.tuning.RecencyFrames {
			continue
		}
		d := distance(track.positions.newest(), center)
		if d < t.tuning.MatchRadius && d < best {
			best = d
			match = track
		}
	}
	return match
}

func (t *Tracker) evict(frame int) {
	kept := t.tracks[:0]
	for _, track := range t.tracks {
		if frame-track.lastSeen > t.tuning.EvictionFrames {
			continue
		}
		kept = append(kept, track)
	}
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept
}

// Tracks returns the live tracks ordered by id.
func (t *Tracker) Tracks() []*Track {
	out := make([]*Track, len(t.tracks))
	copy(out, t.tracks)
	return out
}

// Track looks up a live track by id.
func (t *Tracker) Track(id int) (*Track, bool) {
	for _, track := range t.tracks {
		if track.id == id {
			return track, true
		}
	}
	return nil, false
}

// Frame is the frame number of the latest update.
func (t *Tracker) Frame() int { return t.frame }

// Stats reports track counts for the latest frame.
func (t *Tracker) Stats() Stats {
	byClass := make(map[string]int)
	for _, track := range t.tracks {
		byClass[track.classLabel]++
	}
	return Stats{
		TotalTracked: len(t.tracks),
		FrameCount:   t.frame,
		ByClass:      byClass,
	}
}
