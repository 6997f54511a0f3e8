package dllab_go

import (
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestNetworkFwd(t *testing.T) {
	g := gorgonia.NewGraph()
	net := &Network{
		Name:   "test_network",
		Layers: buildLinearStack(g, "test", [][2]int{{4, 3}, {2, 4}}),
	}
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 3), gorgonia.WithName("test_input"),
		gorgonia.WithValue(tensor.New(tensor.WithShape(1, 3), tensor.WithBacking([]float64{0.1, 0.2, 0.3}))))
	if err := net.Fwd(input, 1); err != nil {
		t.Fatalf("Feedforward failed: %v", err)
	}
	if got, want := net.Out().Shape(), (tensor.Shape{1, 2}); !got.Eq(want) {
		t.Fatalf("Output shape: got %v, want %v", got, want)
	}
	if got, want := len(net.Learnables()), 4; got != want {
		t.Fatalf("Learnables: got %d, want %d", got, want)
	}

	var outVal gorgonia.Value
	gorgonia.Read(net.Out(), &outVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("Can't run VM: %v", err)
	}
	out, ok := outVal.(*tensor.Dense).Data().([]float64)
	if !ok {
		t.Fatal("Output is not backed by []float64")
	}
	// Sigmoid output stays strictly inside (0; 1)
	for i, v := range out {
		if v <= 0 || v >= 1 {
			t.Fatalf("Output #%d out of sigmoid range: %f", i, v)
		}
	}
}

func TestNetworkFwdValidation(t *testing.T) {
	empty := &Network{Name: "empty"}
	if err := empty.Fwd(nil, 1); err == nil {
		t.Fatal("Expected error for network without layers, got nil")
	}

	g := gorgonia.NewGraph()
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 3), gorgonia.WithName("input"))
	missingWeights := &Network{
		Name:   "missing",
		Layers: []*Layer{{Type: LayerLinear, Activation: Sigmoid}},
	}
	if err := missingWeights.Fwd(input, 1); err == nil {
		t.Fatal("Expected error for linear layer without weights, got nil")
	}
}

func TestGANFwd(t *testing.T) {
	g := gorgonia.NewGraph()
	gen := Generator(buildLinearStack(g, "generator", [][2]int{{4, 3}, {2, 4}})...)
	dis := Discriminator(buildLinearStack(g, "discriminator", [][2]int{{3, 2}, {1, 3}})...)

	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 3), gorgonia.WithName("generator_input"),
		gorgonia.WithValue(NormRandDense(1, 3)))
	if err := gen.Fwd(input, 1); err != nil {
		t.Fatalf("Generator feedforward failed: %v", err)
	}
	gan, err := NewGAN(g, gen, dis)
	if err != nil {
		t.Fatalf("Can't build GAN: %v", err)
	}
	if err := gan.Fwd(1); err != nil {
		t.Fatalf("GAN feedforward failed: %v", err)
	}
	if got, want := gan.Out().Shape(), (tensor.Shape{1, 1}); !got.Eq(want) {
		t.Fatalf("GAN output shape: got %v, want %v", got, want)
	}
	if gan.GeneratorOut() != gen.Out() {
		t.Fatal("GAN generator output must alias the standalone Generator output")
	}
}
