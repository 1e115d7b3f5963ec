package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/model"
	"cctvmonitor/internal/repository"
	"cctvmonitor/internal/service/surveillance"

	"gocv.io/x/gocv"
)

const (
	// highlightRadius is the circle drawn around the event position, in px.
	highlightRadius = 50
	dateDirLayout   = "2006-01-02"
	fileTimeLayout  = "20060102_150405"
)

var alertColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// EventStore persists delivered alerts: an annotated JPEG snapshot on disk,
// a snapshot row and an event row.
type EventStore struct {
	snapshotDir  string
	snapshotRepo repository.SnapshotRepository
	eventRepo    repository.EventRepository
	logger       *logger.Logger
}

// NewEventStore creates an EventStore writing snapshots under snapshotDir.
func NewEventStore(snapshotDir string, snapshotRepo repository.SnapshotRepository, eventRepo repository.EventRepository, logger *logger.Logger) *EventStore {
	return &EventStore{
		snapshotDir:  snapshotDir,
		snapshotRepo: snapshotRepo,
		eventRepo:    eventRepo,
		logger:       logger,
	}
}

// Deliver implements surveillance.Sink for gocv frames. The frame itself is
// not modified.
func (s *EventStore) Deliver(ctx context.Context, alert surveillance.Alert, frame gocv.Mat) error {
	var jpeg []byte
	var encodeErr error
	if frame.Empty() {
		encodeErr = fmt.Errorf("frame is empty")
	} else {
		jpeg, encodeErr = annotate(frame, alert.Event)
	}
	if encodeErr != nil {
		s.logger.Warning("Storing %s without snapshot: %v", alert.ID, encodeErr)
	}

	_, err := s.Record(ctx, alert, jpeg)
	return errors.Join(encodeErr, err)
}

// Record writes jpeg (when non-empty) to the snapshot directory and stores
// the event, linked to the snapshot if one was saved. The event row is
// written even when the snapshot fails.
func (s *EventStore) Record(ctx context.Context, alert surveillance.Alert, jpeg []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var snapshotErr error
	var snapshotID *int64
	var imagePath string
	if len(jpeg) > 0 {
		id, path, err := s.saveSnapshot(alert, jpeg)
		if err != nil {
			snapshotErr = err
			s.logger.Error("Failed to save snapshot for %s: %v", alert.ID, err)
		} else {
			snapshotID, imagePath = &id, path
		}
	}

	ev := alert.Event
	id, err := s.eventRepo.Insert(&model.Event{
		UUID:        alert.ID,
		Camera:      alert.Camera,
		TrackID:     ev.TrackID,
		Kind:        ev.Kind,
		Description: ev.Description,
		Confidence:  ev.Confidence,
		ClassLabel:  ev.ClassLabel,
		PositionX:   ev.Position.X,
		PositionY:   ev.Position.Y,
		Frame:       ev.Frame,
		SnapshotID:  snapshotID,
		ImagePath:   imagePath,
		Timestamp:   alert.Timestamp,
	})
	if err != nil {
		return 0, errors.Join(snapshotErr, fmt.Errorf("failed to store event %s: %w", alert.ID, err))
	}

	s.logger.Info("Stored %s event %d for track %d on %s", ev.Kind, id, ev.TrackID, alert.Camera)
	return id, snapshotErr
}

func (s *EventStore) saveSnapshot(alert surveillance.Alert, jpeg []byte) (int64, string, error) {
	fullpath := snapshotPath(s.snapshotDir, alert)

	if err := os.MkdirAll(filepath.Dir(fullpath), 0755); err != nil {
		return 0, "", fmt.Errorf("error creating directory: %w", err)
	}
	if err := os.WriteFile(fullpath, jpeg, 0644); err != nil {
		return 0, "", fmt.Errorf("error saving image %s: %w", fullpath, err)
	}

	id, err := s.snapshotRepo.Insert(&model.Snapshot{
		Filename:  filepath.Base(fullpath),
		Camera:    alert.Camera,
		Timestamp: alert.Timestamp,
		FilePath:  fullpath,
		FileSize:  int64(len(jpeg)),
	})
	if err != nil {
		os.Remove(fullpath)
		return 0, "", fmt.Errorf("error saving snapshot to database: %w", err)
	}

	return id, fullpath, nil
}

// snapshotPath builds <dir>/<YYYY-MM-DD>/<behavior>_<YYYYMMDD_HHMMSS>_<id8>.jpg.
func snapshotPath(dir string, alert surveillance.Alert) string {
	short := strings.ReplaceAll(alert.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	filename := fmt.Sprintf("%s_%s_%s.jpg", alert.Event.Kind, alert.Timestamp.Format(fileTimeLayout), short)
	return filepath.Join(dir, alert.Timestamp.Format(dateDirLayout), filename)
}

// annotate draws the alert marker on a copy of frame and encodes it as JPEG.
func annotate(frame gocv.Mat, event model.SuspiciousEvent) ([]byte, error) {
	mat := frame.Clone()
	defer mat.Close()

	center := image.Pt(int(event.Position.X), int(event.Position.Y))
	if err := gocv.Circle(&mat, center, highlightRadius, alertColor, 3); err != nil {
		return nil, fmt.Errorf("failed to draw circle: %w", err)
	}

	label := fmt.Sprintf("ALERT: %s", event.Kind)
	if err := gocv.PutText(&mat, label, image.Pt(center.X-highlightRadius, center.Y-highlightRadius-10), gocv.FontHersheySimplex, 0.7, alertColor, 2); err != nil {
		return nil, fmt.Errorf("failed to draw text: %w", err)
	}
	confidence := fmt.Sprintf("Confidence: %.2f", event.Confidence)
	if err := gocv.PutText(&mat, confidence, image.Pt(center.X-highlightRadius, center.Y+highlightRadius+20), gocv.FontHersheySimplex, 0.5, alertColor, 1); err != nil {
		return nil, fmt.Errorf("failed to draw text: %w", err)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
