package camera

import (
	"context"
	"fmt"
	"strconv"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/logger"

	"gocv.io/x/gocv"
)

// Source reads frames from a local device, stream URL or video file. The
// returned Mat is reused between reads and is valid until the next Read.
type Source struct {
	name    string
	capture *gocv.VideoCapture
	frame   gocv.Mat
	logger  *logger.Logger
}

// Open opens the capture for one configured camera and applies the
// requested resolution.
func Open(cam config.Camera, width, height int, logger *logger.Logger) (*Source, error) {
	capture, err := gocv.OpenVideoCapture(captureTarget(cam.Source))
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s (%s): %w", cam.Name, cam.Source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s (%s) is not available", cam.Name, cam.Source)
	}

	if width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	logger.Info("Camera %s opened (%s)", cam.Name, cam.Source)

	return &Source{
		name:    cam.Name,
		capture: capture,
		frame:   gocv.NewMat(),
		logger:  logger,
	}, nil
}

// Read grabs the next frame. ok is false when the device or stream yields nothing.
func (s *Source) Read(ctx context.Context) (gocv.Mat, bool) {
	if ctx.Err() != nil {
		return s.frame, false
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return s.frame, false
	}
	return s.frame, true
}

// Close releases the capture device and the frame buffer.
func (s *Source) Close() error {
	err := s.capture.Close()
	if frameErr := s.frame.Close(); err == nil {
		err = frameErr
	}
	s.logger.Info("Camera %s released", s.name)
	return err
}

// captureTarget turns "0" into a device index and leaves URLs and paths alone.
func captureTarget(source string) interface{} {
	if index, err := strconv.Atoi(source); err == nil && index >= 0 {
		return index
	}
	return source
}
