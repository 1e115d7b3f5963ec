package dto

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrEmptyLabel        = errors.New("detection has no class label")
	ErrInvalidConfidence = errors.New("detection confidence outside [0,1]")
	ErrInvalidBBox       = errors.New("detection bounding box is degenerate")
)

// BBox is an axis-aligned box in pixel space (x1<x2, y1<y2).
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b BBox) Center() r2.Vec {
	return r2.Vec{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Width returns x2-x1.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns y2-y1.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Detection is one object reported by the external detector for a single frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// NewDetectionFromRect builds a Detection from a top-left corner plus size,
// the layout the SSD detector reports.
func NewDetectionFromRect(label string, confidence float64, x, y, width, height int) Detection {
	return Detection{
		Label:      label,
		Confidence: confidence,
		BBox: BBox{
			X1: float64(x),
			Y1: float64(y),
			X2: float64(x + width),
			Y2: float64(y + height),
		},
	}
}

// Center returns the center of the detection's bounding box.
func (d Detection) Center() r2.Vec {
	return d.BBox.Center()
}

// Validate rejects detections the tracker cannot use.
func (d Detection) Validate() error {
	if d.Label == "" {
		return ErrEmptyLabel
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, d.Confidence)
	}
	b := d.BBox
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBBox)
		}
	}
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return fmt.Errorf("%w: (%.1f,%.1f)-(%.1f,%.1f)", ErrInvalidBBox, b.X1, b.Y1, b.X2, b.Y2)
	}
	return nil
}

// FrameDetections is one line of a recorded detection stream.
type FrameDetections struct {
	Frame      int         `json:"frame"`
	Detections []Detection `json:"detections"`
}
