package tracking

import (
	"math"
	"testing"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

const tolerance = 1e-9

// detAt returns a 20x40 detection centered on (x, y).
func detAt(label string, x, y float64) dto.Detection {
	return dto.Detection{
		Label:      label,
		Confidence: 0.9,
		BBox:       dto.BBox{X1: x - 10, Y1: y - 20, X2: x + 10, Y2: y + 20},
	}
}

func newTestTracker() *Tracker {
	return NewTracker(config.DefaultTuning())
}

// feed runs one detection per frame along points, starting at frame 1.
func feed(t *testing.T, tr *Tracker, label string, points []r2.Vec) *Track {
	t.Helper()
	for i, p := range points {
		require.NoError(t, tr.Update([]dto.Detection{detAt(label, p.X, p.Y)}, i+1))
	}
	tracks := tr.Tracks()
	require.Len(t, tracks, 1)
	return tracks[0]
}

func TestRing_EvictsOldest(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.push(i)
	}

	assert.Equal(t, 3, r.len())
	assert.Equal(t, 3, r.oldest())
	assert.Equal(t, 5, r.newest())
	assert.Equal(t, []int{3, 4, 5}, r.last(10))
	assert.Equal(t, []int{4, 5}, r.last(2))
	assert.Empty(t, r.last(0))
}

func TestTracker_KeepsIDWhileMovingInsideRadius(t *testing.T) {
	tr := newTestTracker()

	frame := 1
	x := 50.0
	for step := 0; step < 40; step++ {
		require.NoError(t, tr.Update([]dto.Detection{detAt("person", x, 200)}, frame))
		x += 60
		// gaps of up to 10 frames keep the track matchable
		frame += 1 + step%10
	}

	tracks := tr.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, 0, tracks[0].ID())
	assert.Equal(t, 30, tracks[0].HistoryLen(), "history capped at 30")
	assert.Len(t, tracks[0].BBoxes(), 30)
}

func TestTracker_EvictionBoundary(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100, 100)}, 1))

	require.NoError(t, tr.Update(nil, 31))
	_, ok := tr.Track(0)
	assert.True(t, ok, "30 frames unseen: still alive")

	require.NoError(t, tr.Update(nil, 32))
	_, ok = tr.Track(0)
	assert.False(t, ok, "31 frames unseen: evicted")
}

func TestTracker_RecencyGateCreatesNewTrack(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100, 100)}, 1))
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 105, 100)}, 13))

	tracks := tr.Tracks()
	require.Len(t, tracks, 2, "gap of 12 frames is not matchable but not yet evicted")
	assert.Equal(t, 1, tracks[1].ID())
}

func TestTracker_ClassGating(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100, 100)}, 1))
	require.NoError(t, tr.Update([]dto.Detection{detAt("car", 101, 100)}, 2))

	stats := tr.Stats()
	assert.Equal(t, 2, stats.TotalTracked)
	assert.Equal(t, 2, stats.FrameCount)
	assert.Equal(t, map[string]int{"person": 1, "car": 1}, stats.ByClass)
}

func TestTracker_MatchRadiusIsStrict(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100, 100)}, 1))
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 200, 100)}, 2))

	assert.Len(t, tr.Tracks(), 2, "exactly 100px away does not match")
}

func TestTracker_GreedyAssignmentFollowsInputOrder(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{
		detAt("person", 100, 100), // id 0
		detAt("person", 160, 100), // id 1
	}, 1))

	// The first detection is nearest to track 1 and claims it; the second
	// can then only take track 0 even though track 1 would be closer.
	require.NoError(t, tr.Update([]dto.Detection{
		detAt("person", 150, 100),
		detAt("person", 170, 100),
	}, 2))

	t0, ok := tr.Track(0)
	require.True(t, ok)
	t1, ok := tr.Track(1)
	require.True(t, ok)
	assert.Equal(t, r2.Vec{X: 170, Y: 100}, t0.Position())
	assert.Equal(t, r2.Vec{X: 150, Y: 100}, t1.Position())
	assert.Len(t, tr.Tracks(), 2)
}

func TestTracker_TieGoesToLowestID(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{
		detAt("person", 100, 100),
		detAt("person", 140, 100),
	}, 1))
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 120, 100)}, 2))

	t0, _ := tr.Track(0)
	assert.Equal(t, 2, t0.LastSeen())
	t1, _ := tr.Track(1)
	assert.Equal(t, 1, t1.LastSeen())
}

func TestTracker_NewTracksNotClaimableInSameFrame(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{
		detAt("person", 100, 100),
		detAt("person", 105, 100),
	}, 1))

	assert.Len(t, tr.Tracks(), 2)
}

func TestTracker_IDsNeverReused(t *testing.T) {
	tr := newTestTracker()
	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100, 100)}, 1))
	require.NoError(t, tr.Update(nil, 40))
	require.Empty(t, tr.Tracks())

	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100, 100)}, 41))
	tracks := tr.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, 1, tracks[0].ID())
}

func TestTracker_RejectsMalformedDetectionAndContinues(t *testing.T) {
	tr := newTestTracker()
	bad := dto.Detection{Label: "person", Confidence: 0.8, BBox: dto.BBox{X1: 50, Y1: 0, X2: 40, Y2: 10}}

	err := tr.Update([]dto.Detection{bad, detAt("person", 100, 100)}, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, dto.ErrInvalidBBox)
	assert.Len(t, tr.Tracks(), 1)
}

func TestTrack_StationaryRun(t *testing.T) {
	tuning := config.DefaultTuning()
	tr := NewTracker(tuning)

	frame := 1
	for ; frame <= 32; frame++ {
		require.NoError(t, tr.Update([]dto.Detection{detAt("person", 100+float64(frame%2)*3, 100)}, frame))
	}
	track, _ := tr.Track(0)
	assert.Equal(t, 31, track.StationaryRun())
	assert.True(t, track.IsStationary())

	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 150, 100)}, frame))
	assert.Equal(t, 0, track.StationaryRun())
	assert.False(t, track.IsStationary())
}

func TestTrack_TotalDistanceAndTimeInView(t *testing.T) {
	tr := newTestTracker()
	track := feed(t, tr, "person", []r2.Vec{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 6, Y: 8}})

	assert.InDelta(t, 10.0, track.TotalDistance(), tolerance)
	assert.Equal(t, 3, track.TimeInView())
	assert.Equal(t, 1, track.FirstSeen())
}

func TestTrack_SpeedConstantMotion(t *testing.T) {
	var points []r2.Vec
	for i := 0; i < 25; i++ {
		points = append(points, r2.Vec{X: float64(i * 20), Y: 300})
	}
	track := feed(t, newTestTracker(), "person", points)

	assert.InDelta(t, 20.0, track.Speed(), tolerance)
}

func TestTrack_SpeedUsesRecentWindow(t *testing.T) {
	var points []r2.Vec
	x := 0.0
	for i := 0; i < 20; i++ {
		if i < 10 {
			x += 50
		} else {
			x += 5
		}
		points = append(points, r2.Vec{X: x, Y: 0})
	}
	track := feed(t, newTestTracker(), "person", points)

	assert.InDelta(t, 5.0, track.Speed(), tolerance)
}

func TestTrack_DegenerateStatistics(t *testing.T) {
	tr := newTestTracker()
	track := feed(t, tr, "person", []r2.Vec{{X: 10, Y: 10}})

	assert.Equal(t, 0.0, track.Speed())
	assert.Equal(t, r2.Vec{}, track.Direction())
	assert.False(t, track.IsErratic(15, 10, math.Pi/2, 5))

	require.NoError(t, tr.Update([]dto.Detection{detAt("person", 10, 10)}, 2))
	assert.Equal(t, r2.Vec{}, track.Direction(), "coincident endpoints")
}

func TestTrack_Direction(t *testing.T) {
	track := feed(t, newTestTracker(), "person", []r2.Vec{{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 40}})

	d := track.Direction()
	assert.InDelta(t, 0.6, d.X, tolerance)
	assert.InDelta(t, 0.8, d.Y, tolerance)
}

func zigzag(n int) []r2.Vec {
	step := 20.0
	headings := []float64{0, 2 * math.Pi / 3}
	points := []r2.Vec{{X: 300, Y: 300}}
	for i := 1; i < n; i++ {
		h := headings[i%2]
		prev := points[len(points)-1]
		points = append(points, r2.Vec{X: prev.X + step*math.Cos(h), Y: prev.Y + step*math.Sin(h)})
	}
	return points
}

func TestTrack_ErraticZigZag(t *testing.T) {
	track := feed(t, newTestTracker(), "person", zigzag(15))

	assert.Equal(t, 13, track.DirectionChanges(15, math.Pi/2))
	assert.True(t, track.IsErratic(15, 10, math.Pi/2, 5))
}

func TestTrack_StraightLineNotErratic(t *testing.T) {
	var points []r2.Vec
	for i := 0; i < 15; i++ {
		points = append(points, r2.Vec{X: float64(i * 20), Y: 100})
	}
	track := feed(t, newTestTracker(), "person", points)

	assert.Equal(t, 0, track.DirectionChanges(15, math.Pi/2))
	assert.False(t, track.IsErratic(15, 10, math.Pi/2, 5))
}

func TestTrack_ErraticNeedsMinimumSamples(t *testing.T) {
	track := feed(t, newTestTracker(), "person", zigzag(9))

	assert.False(t, track.IsErratic(15, 10, math.Pi/2, 5))
}

func TestTrack_ZeroStepsSkipped(t *testing.T) {
	points := []r2.Vec{}
	for i := 0; i < 12; i++ {
		points = append(points, r2.Vec{X: 100, Y: 100})
	}
	track := feed(t, newTestTracker(), "person", points)

	assert.Equal(t, 0, track.DirectionChanges(15, math.Pi/2))
}
