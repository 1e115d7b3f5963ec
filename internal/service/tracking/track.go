package tracking

import (
	"math"

	"cctvmonitor/internal/dto"

	"gonum.org/v1/gonum/spatial/r2"
)

// SpeedWindow is how many recent positions the speed average covers.
const SpeedWindow = 10

// Track is one physical object followed across frames. Only the Tracker
// mutates a Track; everything exported here is read-only.
type Track struct {
	id         int
	classLabel string
	firstSeen  int
	lastSeen   int
	confidence float64

	positions *ring[r2.Vec]
	boxes     *ring[dto.BBox]

	totalDistance float64
	stationaryRun int
	stationary    bool
}

func newTrack(id int, det dto.Detection, frame, historySize int) *Track {
	t := &Track{
		id:         id,
		classLabel: det.Label,
		firstSeen:  frame,
		lastSeen:   frame,
		confidence: det.Confidence,
		positions:  newRing[r2.Vec](historySize),
		boxes:      newRing[dto.BBox](historySize),
	}
	t.positions.push(det.Center())
	t.boxes.push(det.BBox)
	return t
}

// update appends a matched detection. Displacement below stationaryDistance
// extends the stationary run; anything else resets it.
func (t *Track) update(det dto.Detection, frame int, stationaryDistance float64, stationaryFrames int) {
	center := det.Center()
	step := distance(t.positions.newest(), center)

	t.lastSeen = frame
	t.confidence = det.Confidence
	t.totalDistance += step
	t.positions.push(center)
	t.boxes.push(det.BBox)

	if step < stationaryDistance {
		t.stationaryRun++
		if t.stationaryRun > stationaryFrames {
			t.stationary = true
		}
		return
	}
	t.stationaryRun = 0
	t.stationary = false
}

func (t *Track) ID() int             { return t.id }
func (t *Track) ClassLabel() string  { return t.classLabel }
func (t *Track) FirstSeen() int      { return t.firstSeen }
func (t *Track) LastSeen() int       { return t.lastSeen }
func (t *Track) Confidence() float64 { return t.confidence }

// TotalDistance is the summed displacement over every update.
func (t *Track) TotalDistance() float64 { return t.totalDistance }

// StationaryRun counts consecutive low-displacement updates.
func (t *Track) StationaryRun() int { return t.stationaryRun }

// IsStationary reports whether the stationary run has passed the configured length.
func (t *Track) IsStationary() bool { return t.stationary }

// Position is the most recent center.
func (t *Track) Position() r2.Vec { return t.positions.newest() }

// BBox is the most recent bounding box.
func (t *Track) BBox() dto.BBox { return t.boxes.newest() }

// HistoryLen is the number of stored positions (always equal to the bbox count).
func (t *Track) HistoryLen() int { return t.positions.len() }

// Positions copies the stored centers, oldest first.
func (t *Track) Positions() []r2.Vec { return t.positions.last(t.positions.len()) }

// BBoxes copies the stored boxes, oldest first.
func (t *Track) BBoxes() []dto.BBox { return t.boxes.last(t.boxes.len()) }

// TimeInView is the inclusive frame span the track has existed.
func (t *Track) TimeInView() int { return t.lastSeen - t.firstSeen + 1 }

// Speed is the mean step length over the last SpeedWindow positions, 0 with fewer than 2.
func (t *Track) Speed() float64 {
	recent := t.positions.last(SpeedWindow)
	if len(recent) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(recent); i++ {
		total += distance(recent[i-1], recent[i])
	}
	return total / float64(len(recent)-1)
}

// Direction is the unit vector from the oldest to the newest stored position.
func (t *Track) Direction() r2.Vec {
	if t.positions.len() < 2 {
		return r2.Vec{}
	}
	d := r2.Sub(t.positions.newest(), t.positions.oldest())
	if r2.Norm(d) == 0 {
		return r2.Vec{}
	}
	return r2.Unit(d)
}

// DirectionChanges counts turns sharper than maxAngle (radians) over the last
// window positions. Zero-length steps skip their triple.
func (t *Track) DirectionChanges(window int, maxAngle float64) int {
	positions := t.positions.last(window)
	changes := 0
	for i := 2; i < len(positions); i++ {
		v1 := r2.Sub(positions[i-1], positions[i-2])
		v2 := r2.Sub(positions[i], positions[i-1])
		if r2.Norm2(v1) == 0 || r2.Norm2(v2) == 0 {
			continue
		}
		cos := math.Max(-1, math.Min(1, r2.Cos(v1, v2)))
		if math.Acos(cos) > maxAngle {
			changes++
		}
	}
	return changes
}

// IsErratic applies the zig-zag test: at least minSamples stored positions and
// minChanges sharp turns inside the window.
func (t *Track) IsErratic(window, minSamples int, maxAngle float64, minChanges int) bool {
	if t.positions.len() < minSamples {
		return false
	}
	return t.DirectionChanges(window, maxAngle) >= minChanges
}

func distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(b, a))
}
