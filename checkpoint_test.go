package dllab_go

import (
	"path"
	"testing"

	"gorgonia.org/gorgonia"
)

func TestCheckpointRoundTrip(t *testing.T) {
	g := gorgonia.NewGraph()
	gen := Generator(buildLinearStack(g, "generator", [][2]int{{4, 3}, {2, 4}})...)
	fname := path.Join(t.TempDir(), "generator.ckpt")

	before := snapshotLayers(t, gen.Layers())
	if err := gen.SaveWeights(fname); err != nil {
		t.Fatalf("Can't save weights: %v", err)
	}
	// Wreck the buffers and restore
	for _, l := range gen.Layers() {
		fillNode(t, l.WeightNode, -1000.0)
		fillNode(t, l.BiasNode, 1000.0)
	}
	if err := gen.LoadWeights(fname); err != nil {
		t.Fatalf("Can't load weights: %v", err)
	}
	compareSnapshots(t, before, snapshotLayers(t, gen.Layers()))
}

func TestCheckpointShapeMismatch(t *testing.T) {
	g := gorgonia.NewGraph()
	gen := Generator(buildLinearStack(g, "generator", [][2]int{{4, 3}, {2, 4}})...)
	fname := path.Join(t.TempDir(), "generator.ckpt")
	if err := gen.SaveWeights(fname); err != nil {
		t.Fatalf("Can't save weights: %v", err)
	}

	other := gorgonia.NewGraph()
	wrongShape := Generator(buildLinearStack(other, "generator", [][2]int{{5, 3}, {2, 5}})...)
	if err := wrongShape.LoadWeights(fname); err == nil {
		t.Fatal("Expected shape mismatch error, got nil")
	}
	wrongDepth := Generator(buildLinearStack(other, "deep", [][2]int{{4, 3}})...)
	if err := wrongDepth.LoadWeights(fname); err == nil {
		t.Fatal("Expected layer count mismatch error, got nil")
	}
}

func TestCheckpointMissingFile(t *testing.T) {
	g := gorgonia.NewGraph()
	gen := Generator(buildLinearStack(g, "generator", [][2]int{{2, 2}})...)
	if err := gen.LoadWeights(path.Join(t.TempDir(), "nope.ckpt")); err == nil {
		t.Fatal("Expected error for missing checkpoint, got nil")
	}
}
