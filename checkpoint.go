package dllab_go

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Checkpoints are plain gob dumps of the weight buffers, layer by
// layer. Topology is not stored: loading into a network with a
// different layout fails on the shape check.

type layerSnapshot struct {
	WeightShape []int
	Weight      []float64
	BiasShape   []int
	Bias        []float64
}

// SaveWeights Dumps weight and bias buffers of every layer to a file
func (net *Network) SaveWeights(fname string) error {
	snapshots := make([]layerSnapshot, len(net.Layers))
	for i, l := range net.Layers {
		if l == nil {
			return fmt.Errorf("Network's layer #%d is nil", i)
		}
		snap, err := snapshotLayer(l)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't snapshot Network's layer #%d", i))
		}
		snapshots[i] = snap
	}
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create checkpoint file")
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snapshots); err != nil {
		return errors.Wrap(err, "Can't encode checkpoint")
	}
	return nil
}

// LoadWeights Restores weight and bias buffers of every layer from a file
func (net *Network) LoadWeights(fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return errors.Wrap(err, "Can't open checkpoint file")
	}
	defer f.Close()
	var snapshots []layerSnapshot
	if err := gob.NewDecoder(f).Decode(&snapshots); err != nil {
		return errors.Wrap(err, "Can't decode checkpoint")
	}
	if len(snapshots) != len(net.Layers) {
		return fmt.Errorf("Checkpoint holds %d layers but network has %d", len(snapshots), len(net.Layers))
	}
	for i, snap := range snapshots {
		if err := restoreLayer(net.Layers[i], snap); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't restore Network's layer #%d", i))
		}
	}
	return nil
}

// SaveWeights Dumps Generator's weights to a file
func (net *GeneratorNet) SaveWeights(fname string) error {
	if err := net.private.SaveWeights(fname); err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	return nil
}

// LoadWeights Restores Generator's weights from a file
func (net *GeneratorNet) LoadWeights(fname string) error {
	if err := net.private.LoadWeights(fname); err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	return nil
}

// SaveWeights Dumps Discriminator's weights to a file
func (net *DiscriminatorNet) SaveWeights(fname string) error {
	if err := net.private.SaveWeights(fname); err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	return nil
}

// LoadWeights Restores Discriminator's weights from a file
func (net *DiscriminatorNet) LoadWeights(fname string) error {
	if err := net.private.LoadWeights(fname); err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	return nil
}

func snapshotLayer(l *Layer) (layerSnapshot, error) {
	snap := layerSnapshot{}
	if l.WeightNode != nil {
		shape, data, err := nodeBacking(l.WeightNode)
		if err != nil {
			return snap, errors.Wrap(err, "Can't snapshot weights")
		}
		snap.WeightShape = shape
		snap.Weight = append([]float64{}, data...)
	}
	if l.BiasNode != nil {
		shape, data, err := nodeBacking(l.BiasNode)
		if err != nil {
			return snap, errors.Wrap(err, "Can't snapshot bias")
		}
		snap.BiasShape = shape
		snap.Bias = append([]float64{}, data...)
	}
	return snap, nil
}

func restoreLayer(l *Layer, snap layerSnapshot) error {
	if (l.WeightNode == nil) != (snap.Weight == nil) {
		return fmt.Errorf("Weight presence mismatch between layer and checkpoint")
	}
	if l.WeightNode != nil {
		shape, data, err := nodeBacking(l.WeightNode)
		if err != nil {
			return errors.Wrap(err, "Can't access weights")
		}
		if !tensor.Shape(shape).Eq(tensor.Shape(snap.WeightShape)) {
			return fmt.Errorf("Weight shape mismatch: layer %v, checkpoint %v", shape, snap.WeightShape)
		}
		copy(data, snap.Weight)
	}
	if (l.BiasNode == nil) != (snap.Bias == nil) {
		return fmt.Errorf("Bias presence mismatch between layer and checkpoint")
	}
	if l.BiasNode != nil {
		shape, data, err := nodeBacking(l.BiasNode)
		if err != nil {
			return errors.Wrap(err, "Can't access bias")
		}
		if !tensor.Shape(shape).Eq(tensor.Shape(snap.BiasShape)) {
			return fmt.Errorf("Bias shape mismatch: layer %v, checkpoint %v", shape, snap.BiasShape)
		}
		copy(data, snap.Bias)
	}
	return nil
}

func nodeBacking(node *gorgonia.Node) ([]int, []float64, error) {
	dense, ok := node.Value().(*tensor.Dense)
	if !ok {
		return nil, nil, fmt.Errorf("Node '%s' does not hold dense tensor", node.Name())
	}
	data, ok := dense.Data().([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("Node '%s' is not backed by []float64", node.Name())
	}
	return []int(dense.Shape()), data, nil
}
