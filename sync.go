package dllab_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Weight synchronization between the three networks of a GAN.
//
// Invariant: outside of a training step the standalone Generator
// equals the prefix segment of the combined network and the standalone
// Discriminator equals its suffix segment. Training the Discriminator
// breaks the suffix half of the invariant; PropagateDiscriminatorUpdate
// restores it. SyncFromCombined restores both halves from the combined
// network, which is what a checkpoint restore needs.

// PropagateDiscriminatorUpdate Copies current weights of every
// Discriminator layer into the corresponding suffix-segment layer of
// the combined network.
//
// Layer counts and weight shapes must match positionally. A mismatch
// means the networks were not built from the same topology and is not
// recoverable.
func PropagateDiscriminatorUpdate(definedDiscriminator *DiscriminatorNet, definedGAN *GAN) error {
	disLayers := definedDiscriminator.private.Layers
	ganLayers := definedGAN.frozenDiscriminator.Layers
	if len(disLayers) != len(ganLayers) {
		return fmt.Errorf("Discriminator has %d layers but combined network's suffix segment has %d", len(disLayers), len(ganLayers))
	}
	for i := range disLayers {
		if err := copyLayerParams(ganLayers[i], disLayers[i]); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't propagate Discriminator's layer #%d into combined network", i))
		}
	}
	return nil
}

// SyncFromCombined Copies every layer of the combined network back
// into its standalone counterpart: prefix-segment layers go to the
// Generator, suffix-segment layers go to the Discriminator offset by
// the prefix length.
//
// In the default setup the Generator prefix shares buffers with the
// combined network, so its copies are no-ops; they are still performed
// so the call holds for independently allocated networks too.
func SyncFromCombined(definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet, definedGAN *GAN) error {
	genLayers := definedGenerator.private.Layers
	disLayers := definedDiscriminator.private.Layers
	prefixLen := len(definedGAN.GeneratorLayers())
	if len(genLayers) != prefixLen {
		return fmt.Errorf("Generator has %d layers but combined network's prefix segment has %d", len(genLayers), prefixLen)
	}
	if len(disLayers) != len(definedGAN.frozenDiscriminator.Layers) {
		return fmt.Errorf("Discriminator has %d layers but combined network's suffix segment has %d", len(disLayers), len(definedGAN.frozenDiscriminator.Layers))
	}
	for i, l := range definedGAN.GeneratorLayers() {
		if err := copyLayerParams(genLayers[i], l); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't copy combined network's layer #%d into Generator", i))
		}
	}
	for j, l := range definedGAN.frozenDiscriminator.Layers {
		if err := copyLayerParams(disLayers[j], l); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't copy combined network's layer #%d into Discriminator", prefixLen+j))
		}
	}
	return nil
}

func copyLayerParams(dst, src *Layer) error {
	if err := copyNodeValue(dst.WeightNode, src.WeightNode); err != nil {
		return errors.Wrap(err, "Can't copy weights")
	}
	if err := copyNodeValue(dst.BiasNode, src.BiasNode); err != nil {
		return errors.Wrap(err, "Can't copy bias")
	}
	return nil
}

// copyNodeValue Copies backing data of src node's value into dst
// node's value. Nodes sharing a single buffer copy onto themselves
// which is harmless.
func copyNodeValue(dst, src *gorgonia.Node) error {
	if dst == nil && src == nil {
		return nil
	}
	if (dst == nil) != (src == nil) {
		return fmt.Errorf("One of nodes is nil while other is not")
	}
	dstDense, ok := dst.Value().(*tensor.Dense)
	if !ok {
		return fmt.Errorf("Destination node '%s' does not hold dense tensor", dst.Name())
	}
	srcDense, ok := src.Value().(*tensor.Dense)
	if !ok {
		return fmt.Errorf("Source node '%s' does not hold dense tensor", src.Name())
	}
	if !dstDense.Shape().Eq(srcDense.Shape()) {
		return fmt.Errorf("Shape mismatch: destination %v, source %v", dstDense.Shape(), srcDense.Shape())
	}
	dstData, ok := dstDense.Data().([]float64)
	if !ok {
		return fmt.Errorf("Destination node '%s' is not backed by []float64", dst.Name())
	}
	srcData, ok := srcDense.Data().([]float64)
	if !ok {
		return fmt.Errorf("Source node '%s' is not backed by []float64", src.Name())
	}
	copy(dstData, srcData)
	return nil
}
