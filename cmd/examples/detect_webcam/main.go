package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/ursvl/dllab-go/detect"
	"gocv.io/x/gocv"
)

var (
	boxColor   = color.RGBA{R: 255, A: 255}
	labelColor = color.RGBA{G: 255, A: 255}
)

func main() {
	cfg := detect.DefaultConfig()
	flag.IntVar(&cfg.DeviceID, "device", cfg.DeviceID, "Camera device number")
	flag.StringVar(&cfg.CameraPos, "position", cfg.CameraPos, "Camera position: front or back (front is mirrored)")
	flag.StringVar(&cfg.ModelPath, "model", "tinyyolov2.onnx", "Path to pretrained tiny-YOLOv2 model")
	flag.Float64Var(&cfg.DetectionThreshold, "threshold", cfg.DetectionThreshold, "Minimum detection confidence")
	flag.Parse()

	// Invalid configuration is fatal before any device is opened
	detector, err := detect.NewDetector(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	defer detector.Close()

	capture, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		log.Fatalf("Can't open camera device %d: %v\n", cfg.DeviceID, err)
	}
	defer capture.Close()

	window := gocv.NewWindow("Object Detection")
	defer window.Close()

	// Inference runs in the background: the capture loop hands frames
	// over a 1-buffered channel and drops them when inference is still
	// busy, so the display never stalls behind the network.
	frames := make(chan gocv.Mat, 1)
	results := make(chan []detect.Detection, 1)
	go func() {
		for frame := range frames {
			detections, err := detector.Detect(frame)
			frame.Close()
			if err != nil {
				log.Fatalln(err)
			}
			// Replace a stale result instead of blocking on it
			select {
			case <-results:
			default:
			}
			results <- detections
		}
	}()

	img := gocv.NewMat()
	defer img.Close()

	var lastDetections []detect.Detection
	fmt.Println("Press 'q' to quit")
	for {
		if ok := capture.Read(&img); !ok || img.Empty() {
			continue
		}
		// Flip the frame for a mirror effect when using the front camera
		if cfg.CameraPos == detect.CameraFront {
			gocv.Flip(img, &img, 1)
		}

		frame := img.Clone()
		select {
		case frames <- frame:
		default:
			frame.Close()
		}
		select {
		case lastDetections = <-results:
		default:
		}

		for _, d := range lastDetections {
			gocv.Rectangle(&img, d.Box, boxColor, 2)
			gocv.PutText(&img, fmt.Sprintf("%s %.2f", d.Label, d.Confidence),
				image.Pt(d.Box.Min.X+2, d.Box.Max.Y-2), gocv.FontHersheyDuplex, 1.0, labelColor, 1)
		}

		window.IMShow(img)
		if window.WaitKey(33) == 'q' {
			break
		}
	}
	close(frames)
}
