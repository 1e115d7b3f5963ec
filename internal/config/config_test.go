package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuning_IsValid(t *testing.T) {
	tuning := DefaultTuning()
	require.NoError(t, tuning.Validate())

	assert.Equal(t, 30, tuning.HistorySize)
	assert.Equal(t, 100.0, tuning.MatchRadius)
	assert.Equal(t, 10, tuning.RecencyFrames)
	assert.Equal(t, 30, tuning.EvictionFrames)
	assert.Equal(t, 90, tuning.AlertCooldownFrames)
	assert.Equal(t, 5*time.Second, tuning.DeliveryCooldown)
	assert.Equal(t, []string{"person"}, tuning.SuspiciousClasses)
}

func TestTuningValidate_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"history", func(t *Tuning) { t.HistorySize = 1 }},
		{"radius", func(t *Tuning) { t.MatchRadius = 0 }},
		{"eviction", func(t *Tuning) { t.EvictionFrames = -1 }},
		{"stationary", func(t *Tuning) { t.StationaryDistance = -5 }},
		{"fast", func(t *Tuning) { t.FastSpeed = 0 }},
		{"angle", func(t *Tuning) { t.ErraticAngleDeg = 180 }},
		{"window", func(t *Tuning) { t.ErraticWindow = 2 }},
		{"cooldown", func(t *Tuning) { t.DeliveryCooldown = -time.Second }},
		{"erratic changes", func(t *Tuning) { t.ErraticMinChanges = 0 }},
		{"stationary frames", func(t *Tuning) { t.StationaryFrames = -1 }},
		{"fast min frames", func(t *Tuning) { t.FastMinFrames = -1 }},
		{"loiter frames", func(t *Tuning) { t.LoiterFrames = -1 }},
		{"no classes", func(t *Tuning) { t.SuspiciousClasses = nil }},
		{"history below samples", func(t *Tuning) { t.HistorySize = 5 }},
		{"window above history", func(t *Tuning) { t.ErraticWindow = 31 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := DefaultTuning()
			tt.mutate(&tuning)
			err := tuning.Validate()
			assert.True(t, errors.Is(err, ErrInvalidTuning), "got %v", err)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env
	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0.5, cfg.DetectionConfidence)
	assert.False(t, cfg.Debug)
	assert.Equal(t, []Camera{{Name: "camera_0", Source: "0"}}, cfg.Cameras)
	assert.Equal(t, DefaultTuning(), cfg.Tuning)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("CAMERAS", "front=0, yard=rtsp://10.0.0.7/live")
	t.Setenv("MATCH_RADIUS", "75.5")
	t.Setenv("LOITER_FRAMES", "200")
	t.Setenv("DELIVERY_COOLDOWN", "3")
	t.Setenv("SUSPICIOUS_CLASSES", "person, car")
	t.Setenv("FAST_SPEED", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []Camera{{Name: "front", Source: "0"}, {Name: "yard", Source: "rtsp://10.0.0.7/live"}}, cfg.Cameras)
	assert.Equal(t, 75.5, cfg.Tuning.MatchRadius)
	assert.Equal(t, 200, cfg.Tuning.LoiterFrames)
	assert.Equal(t, 3*time.Second, cfg.Tuning.DeliveryCooldown)
	assert.Equal(t, []string{"person", "car"}, cfg.Tuning.SuspiciousClasses)
	assert.Equal(t, 15.0, cfg.Tuning.FastSpeed, "unparsable values fall back to defaults")
}

func TestParseCameras(t *testing.T) {
	tests := []struct {
		raw  string
		want []Camera
	}{
		{"", nil},
		{"0", []Camera{{Name: "camera_0", Source: "0"}}},
		{"a=1,,/videos/x.mp4", []Camera{{Name: "a", Source: "1"}, {Name: "camera_2", Source: "/videos/x.mp4"}}},
		{"lobby=rtsp://u:p@host/stream?x=1", []Camera{{Name: "lobby", Source: "rtsp://u:p@host/stream?x=1"}}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCameras(tt.raw), "raw %q", tt.raw)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("WAIT", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, getEnvAsDuration("WAIT", time.Second))

	t.Setenv("WAIT", "-3")
	assert.Equal(t, time.Second, getEnvAsDuration("WAIT", time.Second))
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
