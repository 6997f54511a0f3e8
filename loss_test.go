package dllab_go

import (
	"math"
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func evalLoss(t *testing.T, g *gorgonia.ExprGraph, cost *gorgonia.Node) float64 {
	t.Helper()
	var costVal gorgonia.Value
	gorgonia.Read(cost, &costVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("Can't run VM: %v", err)
	}
	v, ok := costVal.Data().(float64)
	if !ok {
		t.Fatal("Cost is not a float64 scalar")
	}
	return v
}

func constMatrix(g *gorgonia.ExprGraph, name string, rows, cols int, data []float64) *gorgonia.Node {
	return gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(rows, cols), gorgonia.WithName(name),
		gorgonia.WithValue(tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))))
}

func TestMSELoss(t *testing.T) {
	g := gorgonia.NewGraph()
	a := constMatrix(g, "a", 1, 2, []float64{1, 2})
	b := constMatrix(g, "b", 1, 2, []float64{0, 0})
	cost, err := MSELoss(a, b)
	if err != nil {
		t.Fatalf("Can't build MSE: %v", err)
	}
	if got, want := evalLoss(t, g, cost), 2.5; math.Abs(got-want) > 1e-9 {
		t.Fatalf("Mean MSE: got %f, want %f", got, want)
	}
}

func TestMSELossSumReduction(t *testing.T) {
	g := gorgonia.NewGraph()
	a := constMatrix(g, "a", 1, 2, []float64{1, 2})
	b := constMatrix(g, "b", 1, 2, []float64{0, 0})
	cost, err := MSELoss(a, b, LossReductionSum)
	if err != nil {
		t.Fatalf("Can't build MSE: %v", err)
	}
	if got, want := evalLoss(t, g, cost), 5.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("Sum MSE: got %f, want %f", got, want)
	}
}

func TestBinaryCrossEntropyLoss(t *testing.T) {
	g := gorgonia.NewGraph()
	a := constMatrix(g, "a", 1, 1, []float64{0.5})
	b := constMatrix(g, "b", 1, 1, []float64{1})
	cost, err := BinaryCrossEntropyLoss(a, b)
	if err != nil {
		t.Fatalf("Can't build BCE: %v", err)
	}
	// -[1*log(0.5) + 0*log(0.5)] = ln(2)
	if got, want := evalLoss(t, g, cost), math.Log(2); math.Abs(got-want) > 1e-9 {
		t.Fatalf("BCE: got %f, want %f", got, want)
	}
}

func TestL1Loss(t *testing.T) {
	g := gorgonia.NewGraph()
	a := constMatrix(g, "a", 1, 2, []float64{1, -3})
	b := constMatrix(g, "b", 1, 2, []float64{0, 0})
	cost, err := L1Loss(a, b)
	if err != nil {
		t.Fatalf("Can't build L1: %v", err)
	}
	if got, want := evalLoss(t, g, cost), 2.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("Mean L1: got %f, want %f", got, want)
	}
}
