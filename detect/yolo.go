package detect

import (
	"fmt"
	"image"
	"math"
	"sort"
)

const (
	// GridSize Output grid of tiny-YOLOv2 for 416x416 input
	GridSize = 13
	// BoxesPerCell Prior boxes predicted in every grid cell
	BoxesPerCell = 5
	// numClasses Pascal VOC class count
	numClasses = 20
	// cellDepth Values per box: tx, ty, tw, th, confidence + class scores
	cellDepth = 5 + numClasses
)

// anchors Prior box dimensions in grid units, five (width, height) pairs.
// These belong to the pretrained darknet VOC model, not to us.
var anchors = []float64{1.08, 1.19, 3.42, 4.41, 6.63, 11.38, 9.42, 5.11, 16.62, 10.52}

// Detection One detected object projected into frame pixel space.
type Detection struct {
	Label      string
	Class      int
	Confidence float64
	Box        image.Rectangle
}

// DecodeGrid Converts the raw CHW (125, 13, 13) activation map of
// tiny-YOLOv2 into detections above the confidence threshold.
//
// Box centers are sigmoid offsets inside their cell, sizes are
// exponential scalings of the anchor priors; both are projected from
// grid units into a frameWidth x frameHeight pixel frame.
func DecodeGrid(data []float32, frameWidth, frameHeight int, threshold float64) ([]Detection, error) {
	expected := BoxesPerCell * cellDepth * GridSize * GridSize
	if len(data) != expected {
		return nil, fmt.Errorf("Grid data must have %d elements, but got %d", expected, len(data))
	}
	at := func(channel, cy, cx int) float64 {
		return float64(data[(channel*GridSize+cy)*GridSize+cx])
	}
	var detections []Detection
	classScores := make([]float64, numClasses)
	for cy := 0; cy < GridSize; cy++ {
		for cx := 0; cx < GridSize; cx++ {
			for b := 0; b < BoxesPerCell; b++ {
				base := b * cellDepth
				tx := at(base+0, cy, cx)
				ty := at(base+1, cy, cx)
				tw := at(base+2, cy, cx)
				th := at(base+3, cy, cx)
				tc := at(base+4, cy, cx)

				for c := 0; c < numClasses; c++ {
					classScores[c] = at(base+5+c, cy, cx)
				}
				class, classProb := maxSoftmax(classScores)
				confidence := sigmoid(tc) * classProb
				if confidence < threshold {
					continue
				}

				// Centers and sizes in grid units
				x := float64(cx) + sigmoid(tx)
				y := float64(cy) + sigmoid(ty)
				w := anchors[2*b] * math.Exp(tw)
				h := anchors[2*b+1] * math.Exp(th)

				detections = append(detections, Detection{
					Label:      ClassName(class),
					Class:      class,
					Confidence: confidence,
					Box:        gridToPixels(x, y, w, h, frameWidth, frameHeight),
				})
			}
		}
	}
	return detections, nil
}

// NonMaxSuppression Greedy per-class suppression of overlapping boxes.
// Boxes with IoU above iouThreshold against an already accepted box of
// the same class are dropped.
func NonMaxSuppression(detections []Detection, iouThreshold float64) []Detection {
	sorted := append([]Detection{}, detections...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	var kept []Detection
	for _, candidate := range sorted {
		suppressed := false
		for _, accepted := range kept {
			if candidate.Class == accepted.Class && iou(candidate.Box, accepted.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func gridToPixels(x, y, w, h float64, frameWidth, frameHeight int) image.Rectangle {
	fw, fh := float64(frameWidth), float64(frameHeight)
	x0 := (x - w/2) / GridSize * fw
	y0 := (y - h/2) / GridSize * fh
	x1 := (x + w/2) / GridSize * fw
	y1 := (y + h/2) / GridSize * fh
	return image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x1)), int(math.Round(y1)),
	).Intersect(image.Rect(0, 0, frameWidth, frameHeight))
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	interArea := float64(inter.Dx() * inter.Dy())
	if interArea <= 0 {
		return 0
	}
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	return interArea / union
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// maxSoftmax Returns index and softmax probability of the largest score
func maxSoftmax(scores []float64) (int, float64) {
	maxScore := scores[0]
	maxIdx := 0
	for i, s := range scores {
		if s > maxScore {
			maxScore = s
			maxIdx = i
		}
	}
	sum := 0.0
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	return maxIdx, 1.0 / sum
}
