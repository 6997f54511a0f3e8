package dllab_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GAN Simple implementation of GAN.
//
// The combined network is Generator's layers followed by a copy of
// Discriminator's layers living on the Generator's expression graph.
// The copied layers own separate weight buffers: after every
// Discriminator training phase they have to be refreshed via
// PropagateDiscriminatorUpdate. The Generator prefix is not copied at
// all - combined network and standalone Generator share the very same
// nodes, so there is nothing to keep in sync on that side.
//
// Freezing is done through the learnables set: the solver should only
// ever be stepped with GeneratorLearnables(), which leaves the
// Discriminator portion untouched during Generator training.
//
type GAN struct {
	generatorPart     *GeneratorNet
	discriminatorPart *DiscriminatorNet

	frozenDiscriminator *Network

	out           *gorgonia.Node
	learnables    gorgonia.Nodes
	learnablesGen gorgonia.Nodes
}

// NewGAN Constructor for GAN
//
// g - expression graph the Generator has been defined on
// definedGenerator - reference to Generator
// definedDiscriminator - reference to Discriminator (may live on another graph)
//
func NewGAN(g *gorgonia.ExprGraph, definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet) (*GAN, error) {
	definedGAN := GAN{
		generatorPart:     definedGenerator,
		discriminatorPart: definedDiscriminator,
		frozenDiscriminator: &Network{
			Name:   "gan_discriminator",
			Layers: make([]*Layer, len(definedDiscriminator.private.Layers)),
		},
		learnablesGen: definedGenerator.Learnables(),
		learnables:    append(gorgonia.Nodes{}, definedGenerator.Learnables()...),
	}
	// Discriminator part for GAN
	for i, l := range definedDiscriminator.private.Layers {
		definedGAN.frozenDiscriminator.Layers[i] = &Layer{
			Activation:   l.Activation,
			Type:         l.Type,
			KernelHeight: l.KernelHeight,
			KernelWidth:  l.KernelWidth,
			Padding:      l.Padding,
			Stride:       l.Stride,
			Dilation:     l.Dilation,
			ReshapeDims:  l.ReshapeDims,
			Probability:  l.Probability,
		}
		if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
			return nil, fmt.Errorf("Discriminator's Layer %d has nil weight node", i)
		}
		if l.WeightNode != nil {
			clonedWeight, err := cloneNodeValue(l.WeightNode)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("Can't clone weights of Discriminator's layer #%d", i))
			}
			definedGAN.frozenDiscriminator.Layers[i].WeightNode = gorgonia.NewTensor(g, gorgonia.Float64, l.WeightNode.Dims(), gorgonia.WithShape(l.WeightNode.Shape()...), gorgonia.WithName(l.WeightNode.Name()+"_gan"), gorgonia.WithValue(clonedWeight))
			definedGAN.learnables = append(definedGAN.learnables, definedGAN.frozenDiscriminator.Layers[i].WeightNode)
		}
		if l.BiasNode != nil {
			clonedBias, err := cloneNodeValue(l.BiasNode)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("Can't clone bias of Discriminator's layer #%d", i))
			}
			definedGAN.frozenDiscriminator.Layers[i].BiasNode = gorgonia.NewTensor(g, gorgonia.Float64, l.BiasNode.Dims(), gorgonia.WithShape(l.BiasNode.Shape()...), gorgonia.WithName(l.BiasNode.Name()+"_gan"), gorgonia.WithValue(clonedBias))
			definedGAN.learnables = append(definedGAN.learnables, definedGAN.frozenDiscriminator.Layers[i].BiasNode)
		}
	}
	return &definedGAN, nil
}

func cloneNodeValue(node *gorgonia.Node) (*tensor.Dense, error) {
	dense, ok := node.Value().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Node '%s' does not hold dense tensor", node.Name())
	}
	return dense.Clone().(*tensor.Dense), nil
}

// Out Returns reference to output node
func (net *GAN) Out() *gorgonia.Node {
	return net.out
}

// GeneratorOut Returns reference to output node of generator part
func (net *GAN) GeneratorOut() *gorgonia.Node {
	return net.generatorPart.Out()
}

// Learnables Returns learnables nodes
func (net *GAN) Learnables() gorgonia.Nodes {
	return net.learnables
}

// GeneratorLearnables Returns learnables nodes of generator part
func (net *GAN) GeneratorLearnables() gorgonia.Nodes {
	return net.learnablesGen
}

// GeneratorLayers Returns layers of generator part (prefix segment)
func (net *GAN) GeneratorLayers() []*Layer {
	return net.generatorPart.Layers()
}

// DiscriminatorLayers Returns frozen discriminator layers (suffix segment)
func (net *GAN) DiscriminatorLayers() []*Layer {
	return net.frozenDiscriminator.Layers
}

// Fwd Initializates feedforward for disciminator part of GAN
//
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
// Note: input node is not needed since input for Discriminator is just Generator's output
//
func (net *GAN) Fwd(batchSize int) error {
	if net.generatorPart.Out() == nil {
		return fmt.Errorf("Generator part of GAN must be fed forward first")
	}
	if len(net.frozenDiscriminator.Layers) == 0 {
		return fmt.Errorf("GAN must have one layer in Discriminator part atleast")
	}
	if err := net.frozenDiscriminator.Fwd(net.generatorPart.Out(), batchSize); err != nil {
		return errors.Wrap(err, "[GAN, Discriminator part]")
	}
	net.out = net.frozenDiscriminator.Out()
	return nil
}
