package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidTuning is returned when a tracking or behavior tunable is out of range.
var ErrInvalidTuning = errors.New("invalid tuning")

// Camera is one configured video source.
type Camera struct {
	Name   string
	Source string // device index ("0") or stream URL / file path
}

// Config holds process settings and the per-camera pipeline tunables.
type Config struct {
	Port                int
	DatabasePath        string
	SnapshotDirectory   string
	LogDirectory        string
	Debug               bool
	ModelPath           string
	ConfigPath          string
	DetectionConfidence float64
	FrameWidth          int
	FrameHeight         int
	Cameras             []Camera
	Tuning              Tuning
}

// Tuning groups every threshold used by the tracker, the classifier and the loop.
type Tuning struct {
	HistorySize int // positions/bboxes kept per track

	MatchRadius    float64 // px
	RecencyFrames  int     // max gap for a track to be matchable
	EvictionFrames int     // gap after which a track is dropped

	StationaryDistance float64 // px per update
	StationaryFrames   int     // run length before a track counts as stationary

	FastSpeed     float64 // px/frame
	FastMinFrames int     // time in view must exceed this
	LoiterFrames  int

	ErraticAngleDeg   float64
	ErraticMinChanges int
	ErraticWindow     int
	ErraticMinSamples int

	AlertCooldownFrames int
	DeliveryCooldown    time.Duration

	SuspiciousClasses []string
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		HistorySize:         30,
		MatchRadius:         100,
		RecencyFrames:       10,
		EvictionFrames:      30,
		StationaryDistance:  10,
		StationaryFrames:    30,
		FastSpeed:           15,
		FastMinFrames:       10,
		LoiterFrames:        150,
		ErraticAngleDeg:     90,
		ErraticMinChanges:   5,
		ErraticWindow:       15,
		ErraticMinSamples:   10,
		AlertCooldownFrames: 90,
		DeliveryCooldown:    5 * time.Second,
		SuspiciousClasses:   []string{"person"},
	}
}

// Validate reports the first out-of-range tunable.
func (t Tuning) Validate() error {
	switch {
	case t.HistorySize < 2:
		return fmt.Errorf("%w: history size %d", ErrInvalidTuning, t.HistorySize)
	case t.MatchRadius <= 0:
		return fmt.Errorf("%w: match radius %.2f", ErrInvalidTuning, t.MatchRadius)
	case t.RecencyFrames < 0 || t.EvictionFrames < 0:
		return fmt.Errorf("%w: recency %d / eviction %d", ErrInvalidTuning, t.RecencyFrames, t.EvictionFrames)
	case t.StationaryDistance <= 0:
		return fmt.Errorf("%w: stationary distance %.2f", ErrInvalidTuning, t.StationaryDistance)
	case t.StationaryFrames < 0 || t.FastMinFrames < 0 || t.LoiterFrames < 0:
		return fmt.Errorf("%w: stationary %d / fast min %d / loiter %d frames", ErrInvalidTuning, t.StationaryFrames, t.FastMinFrames, t.LoiterFrames)
	case t.FastSpeed <= 0:
		return fmt.Errorf("%w: fast speed %.2f", ErrInvalidTuning, t.FastSpeed)
	case t.ErraticAngleDeg <= 0 || t.ErraticAngleDeg >= 180:
		return fmt.Errorf("%w: erratic angle %.2f", ErrInvalidTuning, t.ErraticAngleDeg)
	case t.ErraticMinChanges < 1:
		return fmt.Errorf("%w: erratic min changes %d", ErrInvalidTuning, t.ErraticMinChanges)
	case t.ErraticWindow < 3 || t.ErraticMinSamples < 3:
		return fmt.Errorf("%w: erratic window %d / min samples %d", ErrInvalidTuning, t.ErraticWindow, t.ErraticMinSamples)
	case t.ErraticWindow > t.HistorySize || t.ErraticMinSamples > t.HistorySize:
		return fmt.Errorf("%w: erratic window %d / min samples %d exceed history size %d", ErrInvalidTuning, t.ErraticWindow, t.ErraticMinSamples, t.HistorySize)
	case len(t.SuspiciousClasses) == 0:
		return fmt.Errorf("%w: no suspicious classes", ErrInvalidTuning)
	case t.AlertCooldownFrames < 0 || t.DeliveryCooldown < 0:
		return fmt.Errorf("%w: negative cooldown", ErrInvalidTuning)
	}
	return nil
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	def := DefaultTuning()
	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		DatabasePath:        getEnv("DB_PATH", filepath.Join(".", "data", "events.db")),
		SnapshotDirectory:   getEnv("SNAPSHOT_DIR", filepath.Join(".", "snapshots")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		Debug:               getEnvAsBool("DEBUG", false),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:          getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		DetectionConfidence: getEnvAsFloat("DETECTION_CONFIDENCE", 0.5),
		FrameWidth:          getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:         getEnvAsInt("FRAME_HEIGHT", 480),
		Cameras:             parseCameras(getEnv("CAMERAS", "camera_0=0")),
		Tuning: Tuning{
			HistorySize:         getEnvAsInt("HISTORY_SIZE", def.HistorySize),
			MatchRadius:         getEnvAsFloat("MATCH_RADIUS", def.MatchRadius),
			RecencyFrames:       getEnvAsInt("RECENCY_FRAMES", def.RecencyFrames),
			EvictionFrames:      getEnvAsInt("EVICTION_FRAMES", def.EvictionFrames),
			StationaryDistance:  getEnvAsFloat("STATIONARY_DISTANCE", def.StationaryDistance),
			StationaryFrames:    getEnvAsInt("STATIONARY_FRAMES", def.StationaryFrames),
			FastSpeed:           getEnvAsFloat("FAST_SPEED", def.FastSpeed),
			FastMinFrames:       getEnvAsInt("FAST_MIN_FRAMES", def.FastMinFrames),
			LoiterFrames:        getEnvAsInt("LOITER_FRAMES", def.LoiterFrames),
			ErraticAngleDeg:     getEnvAsFloat("ERRATIC_ANGLE_DEG", def.ErraticAngleDeg),
			ErraticMinChanges:   getEnvAsInt("ERRATIC_MIN_CHANGES", def.ErraticMinChanges),
			ErraticWindow:       getEnvAsInt("ERRATIC_WINDOW", def.ErraticWindow),
			ErraticMinSamples:   getEnvAsInt("ERRATIC_MIN_SAMPLES", def.ErraticMinSamples),
			AlertCooldownFrames: getEnvAsInt("ALERT_COOLDOWN_FRAMES", def.AlertCooldownFrames),
			DeliveryCooldown:    getEnvAsDuration("DELIVERY_COOLDOWN", def.DeliveryCooldown),
			SuspiciousClasses:   getEnvAsList("SUSPICIOUS_CLASSES", def.SuspiciousClasses),
		},
	}
}

// parseCameras turns "front=0,yard=rtsp://..." into cameras. A bare source gets a generated name.
func parseCameras(raw string) []Camera {
	var cameras []Camera
	for i, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, source, found := strings.Cut(item, "=")
		if !found {
			source = name
			name = fmt.Sprintf("camera_%d", i)
		}
		cameras = append(cameras, Camera{Name: strings.TrimSpace(name), Source: strings.TrimSpace(source)})
	}
	return cameras
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s") or plain seconds ("5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds := getEnvAsInt64(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
