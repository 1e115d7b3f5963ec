package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/dto"
	"cctvmonitor/internal/logger"

	"gocv.io/x/gocv"
)

// ErrNetworkNotInitialized is returned by Detect when the model failed to load.
var ErrNetworkNotInitialized = errors.New("detection network not initialized")

// ssdInputSize is the square input the SSD MobileNet COCO graph expects.
const ssdInputSize = 300

// DetectorService runs an SSD MobileNet COCO network over camera frames.
// One service may be shared by several loops; Forward calls are serialized.
type DetectorService struct {
	net        gocv.Net
	ready      bool
	threshold  float64
	modelPath  string
	configPath string
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewDetectorService creates a detector with model/config paths and a logger.
// It attempts to initialize the underlying DNN network; on failure every
// Detect call returns ErrNetworkNotInitialized.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		threshold:  config.DetectionConfidence,
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
	}

	return service
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized successfully")
	return nil
}

// Ready reports whether the network loaded.
func (s *DetectorService) Ready() bool {
	return s.ready
}

// Detect runs the network on one frame and returns detections above the
// configured confidence, in the order the network reports them.
func (s *DetectorService) Detect(ctx context.Context, frame gocv.Mat) ([]dto.Detection, error) {
	if !s.ready {
		return nil, ErrNetworkNotInitialized
	}
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Create blob with parameters that fit ssd coco net input
	blob := gocv.BlobFromImage(frame, 1.0/127.5, image.Pt(ssdInputSize, ssdInputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	s.mu.Unlock()
	defer output.Close()

	// Each row: [ batch_id, class_id, confidence, x1, y1, x2, y2 ] with coordinates in [0,1]
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, height := float32(frame.Cols()), float32(frame.Rows())
	var results []dto.Detection
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if float64(confidence) <= s.threshold {
			continue
		}

		classID := int(rows.GetFloatAt(i, 1))
		det := toDetection(classID, float64(confidence),
			rows.GetFloatAt(i, 3)*cols, rows.GetFloatAt(i, 4)*height,
			rows.GetFloatAt(i, 5)*cols, rows.GetFloatAt(i, 6)*height)
		s.logger.Debug("Detected %s (%.2f)", det.Label, det.Confidence)
		results = append(results, det)
	}

	return results, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}

// toDetection converts pixel corners from the network into a Detection. The
// network may report corners slightly outside the frame; they are kept as is
// and validated downstream.
func toDetection(classID int, confidence float64, x1, y1, x2, y2 float32) dto.Detection {
	return dto.Detection{
		Label:      getClassLabel(classID),
		Confidence: confidence,
		BBox: dto.BBox{
			X1: float64(x1),
			Y1: float64(y1),
			X2: float64(x2),
			Y2: float64(y2),
		},
	}
}

// getClassLabel maps COCO class IDs to human-readable labels.
func getClassLabel(classID int) string {
	labels := map[int]string{
		1:  "person",
		2:  "bicycle",
		3:  "car",
		4:  "motorcycle",
		5:  "airplane",
		6:  "bus",
		8:  "truck",
		16: "bird",
		17: "cat",
		18: "dog",
		27: "backpack",
		31: "handbag",
		33: "suitcase",
	}

	if label, exists := labels[classID]; exists {
		return label
	}
	return fmt.Sprintf("unknown%d", classID)
}
