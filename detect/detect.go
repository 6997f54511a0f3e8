// Package detect runs a pretrained tiny-YOLOv2 network over video
// frames and decodes its grid output into labeled boxes.
package detect

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Camera positions. A front camera is expected to be mirrored by the
// caller so the display behaves like a mirror.
const (
	CameraFront = "front"
	CameraBack  = "back"
)

// Config Settings of the detection pipeline.
type Config struct {
	// DeviceID Camera device number, usually 0 for a laptop webcam
	DeviceID int
	// CameraPos Either "front" or "back"; everything else is rejected
	CameraPos string
	// ModelPath Path to the pretrained tiny-YOLOv2 artifact (ONNX)
	ModelPath string
	// InputSize Square network input in pixels
	InputSize int
	// DetectionThreshold Minimum box confidence to keep
	DetectionThreshold float64
	// NMSThreshold IoU above which overlapping boxes are suppressed
	NMSThreshold float64
}

// DefaultConfig Returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		DeviceID:           0,
		CameraPos:          CameraFront,
		InputSize:          416,
		DetectionThreshold: 0.5,
		NMSThreshold:       0.4,
	}
}

// Validate Checks configuration before any device or model is touched
func (c Config) Validate() error {
	if c.CameraPos != CameraFront && c.CameraPos != CameraBack {
		return fmt.Errorf("Unknown camera position '%s'. Choose between front and back", c.CameraPos)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("Model path must be provided")
	}
	if c.InputSize < GridSize {
		return fmt.Errorf("Input size %d is smaller than output grid %d", c.InputSize, GridSize)
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		return fmt.Errorf("Detection threshold must be in [0; 1], but got %f", c.DetectionThreshold)
	}
	return nil
}

// Detector Wraps the loaded network. The model itself is a black box:
// only its raw grid output is interpreted here.
type Detector struct {
	net gocv.Net
	cfg Config
}

// NewDetector Validates config and loads the pretrained model
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Bad detector config")
	}
	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("Can't read network model from '%s'", cfg.ModelPath)
	}
	return &Detector{net: net, cfg: cfg}, nil
}

// Close Releases the underlying network
func (d *Detector) Close() error {
	return d.net.Close()
}

// Detect Runs one frame through the network and returns suppressed detections
func (d *Detector) Detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("Frame is empty")
	}
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(d.cfg.InputSize, d.cfg.InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "Can't access network output")
	}
	detections, err := DecodeGrid(data, frame.Cols(), frame.Rows(), d.cfg.DetectionThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode network output")
	}
	return NonMaxSuppression(detections, d.cfg.NMSThreshold), nil
}
