// Package mnist reads the classic IDX-format handwritten digit files
// and serves them as restartable batches of flat float64 tensors.
package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	imageMagic = 0x00000803
	labelMagic = 0x00000801
)

type imageHeader struct {
	Magic, Num, Rows, Cols uint32
}

type labelHeader struct {
	Magic, Num uint32
}

// Set In-memory dataset: images are flattened row-major and rescaled
// from [0; 255] to [-1; 1] to match a tanh generator output.
type Set struct {
	Images *tensor.Dense
	Labels []int
	Rows   int
	Cols   int
}

// Len Returns number of samples
func (s *Set) Len() int {
	return len(s.Labels)
}

// Load Reads IDX image and label files
func Load(imageFile, labelFile string) (*Set, error) {
	labels, err := readLabels(labelFile)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read labels")
	}
	images, rows, cols, err := readImages(imageFile)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read images")
	}
	if images.Shape()[0] != len(labels) {
		return nil, fmt.Errorf("Got %d images but %d labels", images.Shape()[0], len(labels))
	}
	return &Set{Images: images, Labels: labels, Rows: rows, Cols: cols}, nil
}

func readImages(name string) (*tensor.Dense, int, int, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	var head imageHeader
	if err = binary.Read(f, binary.BigEndian, &head); err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read image header")
	}
	if head.Magic != imageMagic {
		return nil, 0, 0, fmt.Errorf("Bad image file magic 0x%08x", head.Magic)
	}
	n, rows, cols := int(head.Num), int(head.Rows), int(head.Cols)
	pixels := make([]byte, rows*cols)
	data := make([]float64, n*rows*cols)
	for i := 0; i < n; i++ {
		if _, err = io.ReadFull(f, pixels); err != nil {
			return nil, 0, 0, errors.Wrap(err, fmt.Sprintf("Can't read image #%d", i))
		}
		for j, pix := range pixels {
			data[i*rows*cols+j] = float64(pix)/127.5 - 1.0
		}
	}
	return tensor.New(tensor.WithShape(n, rows*cols), tensor.WithBacking(data)), rows, cols, nil
}

func readLabels(name string) ([]int, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var head labelHeader
	if err = binary.Read(f, binary.BigEndian, &head); err != nil {
		return nil, errors.Wrap(err, "Can't read label header")
	}
	if head.Magic != labelMagic {
		return nil, fmt.Errorf("Bad label file magic 0x%08x", head.Magic)
	}
	raw := make([]byte, head.Num)
	if _, err = io.ReadFull(f, raw); err != nil {
		return nil, errors.Wrap(err, "Can't read label bytes")
	}
	labels := make([]int, head.Num)
	for i, label := range raw {
		labels[i] = int(label)
	}
	return labels, nil
}
