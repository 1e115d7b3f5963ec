package surveillance

import (
	"context"
	"errors"
	"time"

	"cctvmonitor/internal/dto"
	"cctvmonitor/internal/model"
)

// ErrFrameUnavailable is returned by Run when the frame source stops producing frames.
var ErrFrameUnavailable = errors.New("frame source returned no frame")

// FrameSource yields frames of an opaque type F. ok=false ends the loop.
type FrameSource[F any] interface {
	Read(ctx context.Context) (frame F, ok bool)
	Close() error
}

// Detector turns one frame into detections.
type Detector[F any] interface {
	Detect(ctx context.Context, frame F) ([]dto.Detection, error)
}

// Sink receives every delivered alert together with the raw frame it came
// from. It owns persistence, artifacts and notification.
type Sink[F any] interface {
	Deliver(ctx context.Context, alert Alert, frame F) error
}

// Alert is a classifier event that passed the delivery cooldown.
type Alert struct {
	ID        string                `json:"id"`
	Camera    string                `json:"camera"`
	Event     model.SuspiciousEvent `json:"event"`
	Timestamp time.Time             `json:"timestamp"`
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc[F any] func(ctx context.Context, frame F) ([]dto.Detection, error)

func (f DetectorFunc[F]) Detect(ctx context.Context, frame F) ([]dto.Detection, error) {
	return f(ctx, frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[F any] func(ctx context.Context, alert Alert, frame F) error

func (f SinkFunc[F]) Deliver(ctx context.Context, alert Alert, frame F) error {
	return f(ctx, alert, frame)
}
