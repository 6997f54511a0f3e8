package detect

import (
	"image"
	"math"
	"testing"
)

func emptyGrid() []float32 {
	return make([]float32, BoxesPerCell*cellDepth*GridSize*GridSize)
}

// setCell writes one raw value for box b, channel ch at cell (cy, cx)
func setCell(data []float32, b, ch, cy, cx int, v float32) {
	data[((b*cellDepth+ch)*GridSize+cy)*GridSize+cx] = v
}

func TestDecodeGridEmpty(t *testing.T) {
	// All-zero activations: objectness 0.5 * uniform class prob 1/20
	// stays far below any sane threshold
	detections, err := DecodeGrid(emptyGrid(), 416, 416, 0.5)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(detections) != 0 {
		t.Fatalf("Expected no detections, got %d", len(detections))
	}
}

func TestDecodeGridSingleBox(t *testing.T) {
	data := emptyGrid()
	// Strong "person" (class 14) hit in the central cell, first prior
	setCell(data, 0, 4, 6, 6, 10)    // objectness
	setCell(data, 0, 5+14, 6, 6, 10) // class score
	detections, err := DecodeGrid(data, 416, 416, 0.5)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("Expected exactly one detection, got %d", len(detections))
	}
	d := detections[0]
	if d.Label != "person" || d.Class != 14 {
		t.Fatalf("Expected person/14, got %s/%d", d.Label, d.Class)
	}
	if d.Confidence < 0.9 {
		t.Fatalf("Confidence too low: %f", d.Confidence)
	}
	// tx=ty=0 centers the box in its cell: (6.5/13)*416 = 208.
	// tw=th=0 keeps the first prior's size: 1.08x1.19 grid units.
	want := image.Rect(191, 189, 225, 227)
	if d.Box != want {
		t.Fatalf("Box: got %v, want %v", d.Box, want)
	}
}

func TestDecodeGridThreshold(t *testing.T) {
	data := emptyGrid()
	setCell(data, 1, 4, 0, 0, 10)
	setCell(data, 1, 5, 0, 0, 10)
	// sigmoid(10) * softmax top score gives confidence of ~0.99909:
	// the box survives a 0.99 threshold and is dropped at 0.9995
	detections, err := DecodeGrid(data, 416, 416, 0.99)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("Expected detection to pass threshold, got %d", len(detections))
	}
	detections, err = DecodeGrid(data, 416, 416, 0.9995)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(detections) != 0 {
		t.Fatalf("Expected threshold to drop detection, got %d", len(detections))
	}
}

func TestDecodeGridBadLength(t *testing.T) {
	if _, err := DecodeGrid(make([]float32, 100), 416, 416, 0.5); err == nil {
		t.Fatal("Expected error for truncated grid, got nil")
	}
}

func TestNonMaxSuppression(t *testing.T) {
	detections := []Detection{
		{Label: "car", Class: 6, Confidence: 0.8, Box: image.Rect(12, 12, 108, 108)},
		{Label: "car", Class: 6, Confidence: 0.9, Box: image.Rect(10, 10, 110, 110)},
		{Label: "dog", Class: 11, Confidence: 0.7, Box: image.Rect(15, 15, 105, 105)},
		{Label: "car", Class: 6, Confidence: 0.6, Box: image.Rect(300, 300, 400, 400)},
	}
	kept := NonMaxSuppression(detections, 0.4)
	if len(kept) != 3 {
		t.Fatalf("Expected 3 boxes after suppression, got %d", len(kept))
	}
	// Highest confidence first, overlapping same-class box dropped
	if kept[0].Confidence != 0.9 {
		t.Fatalf("Expected best box first, got confidence %f", kept[0].Confidence)
	}
	for _, d := range kept {
		if d.Class == 6 && d.Confidence == 0.8 {
			t.Fatal("Overlapping car box should have been suppressed")
		}
	}
}

func TestIOU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	if got := iou(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("IoU of identical boxes: got %f, want 1", got)
	}
	b := image.Rect(20, 20, 30, 30)
	if got := iou(a, b); got != 0 {
		t.Fatalf("IoU of disjoint boxes: got %f, want 0", got)
	}
	c := image.Rect(0, 0, 10, 5)
	if got := iou(a, c); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("IoU of half-overlapping boxes: got %f, want 0.5", got)
	}
}

func TestClassName(t *testing.T) {
	if got := ClassName(14); got != "person" {
		t.Fatalf("Class 14: got %s, want person", got)
	}
	if got := ClassName(-1); got != "unknown" {
		t.Fatalf("Class -1: got %s, want unknown", got)
	}
	if got := ClassName(20); got != "unknown" {
		t.Fatalf("Class 20: got %s, want unknown", got)
	}
}
