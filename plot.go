package dllab_go

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

// PlotSeries Plot chart for values over their indices (loss history basically)
func PlotSeries(values []float64, title, fname string) error {
	lineData := make(plotter.XYs, len(values))
	for i, v := range values {
		lineData[i].X = float64(i)
		lineData[i].Y = v
	}
	line, err := plotter.NewLine(lineData)
	if err != nil {
		return errors.Wrap(err, "Can't init new line")
	}
	line.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())
	p.Add(line)
	// Save the plot to a PNG file.
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// SaveImageGrid Renders a batch of flat grayscale samples into a single PNG grid.
//
// samples - tensor of shape (n, imgHeight*imgWidth) with values in [-1; 1]
// imgHeight, imgWidth - dimensions of a single sample
// cols - number of grid columns
//
func SaveImageGrid(samples *tensor.Dense, imgHeight, imgWidth, cols int, fname string) error {
	if samples.Dims() != 2 {
		return fmt.Errorf("Samples must have two dimensions, but got %d", samples.Dims())
	}
	data, ok := samples.Data().([]float64)
	if !ok {
		return fmt.Errorf("Samples must be backed by []float64")
	}
	n := samples.Shape()[0]
	if samples.Shape()[1] != imgHeight*imgWidth {
		return fmt.Errorf("Each sample must have %d elements, but got %d", imgHeight*imgWidth, samples.Shape()[1])
	}
	if cols < 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols
	grid := image.NewGray(image.Rect(0, 0, cols*imgWidth, rows*imgHeight))
	for s := 0; s < n; s++ {
		offsetX := (s % cols) * imgWidth
		offsetY := (s / cols) * imgHeight
		for y := 0; y < imgHeight; y++ {
			for x := 0; x < imgWidth; x++ {
				v := data[s*imgHeight*imgWidth+y*imgWidth+x]
				// [-1; 1] -> [0; 255]
				if v < -1.0 {
					v = -1.0
				}
				if v > 1.0 {
					v = 1.0
				}
				grid.SetGray(offsetX+x, offsetY+y, color.Gray{Y: uint8((v + 1.0) * 127.5)})
			}
		}
	}
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create output file")
	}
	defer f.Close()
	if err := png.Encode(f, grid); err != nil {
		return errors.Wrap(err, "Can't encode PNG")
	}
	return nil
}
