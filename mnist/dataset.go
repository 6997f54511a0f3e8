package mnist

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Dataset Sequential batch iterator over a Set. Exhausting it and
// calling Reset starts a new epoch; a trailing partial batch is
// dropped so every batch tensor has the same shape.
type Dataset struct {
	set       *Set
	batchSize int
	pos       int
}

// NewDataset Constructor for Dataset
func NewDataset(set *Set, batchSize int) (*Dataset, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("Batch size must be positive, but got %d", batchSize)
	}
	if set.Len() < batchSize {
		return nil, fmt.Errorf("Dataset of %d samples can't serve batches of %d", set.Len(), batchSize)
	}
	return &Dataset{set: set, batchSize: batchSize}, nil
}

// Batches Returns number of full batches per epoch
func (d *Dataset) Batches() int {
	return d.set.Len() / d.batchSize
}

// BatchSize Returns batch size
func (d *Dataset) BatchSize() int {
	return d.batchSize
}

// HasNext Reports whether one more full batch is available
func (d *Dataset) HasNext() bool {
	return d.pos+d.batchSize <= d.set.Len()
}

// Next Returns the next batch of shape (batchSize, rows*cols)
func (d *Dataset) Next() (*tensor.Dense, error) {
	if !d.HasNext() {
		return nil, fmt.Errorf("Dataset is exhausted at position %d", d.pos)
	}
	sliced, err := d.set.Images.Slice(rangeSlice{StartIdx: d.pos, EndIdx: d.pos + d.batchSize})
	if err != nil {
		return nil, errors.Wrap(err, "Can't slice batch")
	}
	d.pos += d.batchSize
	batch, ok := sliced.Materialize().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Materialized batch is not a dense tensor")
	}
	return batch, nil
}

// Reset Rewinds the iterator to the first batch
func (d *Dataset) Reset() {
	d.pos = 0
}

// rangeSlice Just an iterator with step size = 1
type rangeSlice struct {
	StartIdx, EndIdx int
}

func (s rangeSlice) Start() int { return s.StartIdx }
func (s rangeSlice) End() int   { return s.EndIdx }
func (s rangeSlice) Step() int  { return 1 }
