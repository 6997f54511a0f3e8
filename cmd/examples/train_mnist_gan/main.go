package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path"
	"time"

	dllab "github.com/ursvl/dllab-go"
	"github.com/ursvl/dllab-go/mnist"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var (
	batchSize       = 128
	latentSpaceSize = 100
	imgHeight       = 28
	imgWidth        = 28
	learningRate    = 0.0002
	numEpochs       = 10
	evalEvery       = 10
	numGridSamples  = 12
	gridCols        = 4
	disFitsPerStep  = 2
)

func main() {
	dataDir := flag.String("data", "./data", "Directory with MNIST IDX files")
	outputDir := flag.String("out", "./output", "Directory for generated grids, plots and checkpoints")
	resume := flag.Bool("resume", false, "Restore weights from the last checkpoint before training")
	flag.Parse()

	// Initialize seed with constant value to reproduce results
	rand.Seed(42)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		panic(err)
	}

	trainSet, err := mnist.Load(
		path.Join(*dataDir, "train-images-idx3-ubyte"),
		path.Join(*dataDir, "train-labels-idx1-ubyte"),
	)
	if err != nil {
		panic(err)
	}
	trainData, err := mnist.NewDataset(trainSet, batchSize)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Loaded %d samples (%d batches of %d)\n", trainSet.Len(), trainData.Batches(), batchSize)

	// Define graph for GAN feedforward and Generator training
	ganGraph := gorgonia.NewGraph()
	// Define graph for Discriminator training
	trainDiscriminatorGraph := gorgonia.NewGraph()

	// Define Generator on GAN's evaluation graph
	definedGenerator := defineGenerator(ganGraph)
	// Initialize Generator feedforward
	inputGenerator := gorgonia.NewMatrix(ganGraph, gorgonia.Float64, gorgonia.WithShape(batchSize, latentSpaceSize), gorgonia.WithName("generator_input"))
	err = definedGenerator.Fwd(inputGenerator, batchSize)
	if err != nil {
		panic(err)
	}

	// Define Discriminator on its own evaluation graph.
	// It trains on a doubled batch: real samples stacked on fake ones.
	discriminatorTrain := defineDiscriminator(trainDiscriminatorGraph)
	inputDiscriminatorTrain := gorgonia.NewMatrix(trainDiscriminatorGraph, gorgonia.Float64, gorgonia.WithShape(2*batchSize, imgHeight*imgWidth), gorgonia.WithName("discriminator_train_input"))
	err = discriminatorTrain.Fwd(inputDiscriminatorTrain, 2*batchSize)
	if err != nil {
		panic(err)
	}

	// Define GAN on the same evaluation graph as Generator has been defined
	definedGAN, err := dllab.NewGAN(ganGraph, definedGenerator, discriminatorTrain)
	if err != nil {
		panic(err)
	}
	err = definedGAN.Fwd(batchSize)
	if err != nil {
		panic(err)
	}

	genCheckpoint := path.Join(*outputDir, "generator.ckpt")
	disCheckpoint := path.Join(*outputDir, "discriminator.ckpt")
	if *resume {
		if err := definedGenerator.LoadWeights(genCheckpoint); err != nil {
			panic(err)
		}
		if err := discriminatorTrain.LoadWeights(disCheckpoint); err != nil {
			panic(err)
		}
		// Combined network's suffix segment holds its own buffers and
		// must be refreshed from the restored Discriminator.
		if err := dllab.PropagateDiscriminatorUpdate(discriminatorTrain, definedGAN); err != nil {
			panic(err)
		}
		fmt.Println("Resumed from checkpoint")
	}

	/* Define variables for reading evaluation graphs' output */
	// GAN Generator output
	var generatedSamples gorgonia.Value
	gorgonia.Read(definedGAN.GeneratorOut(), &generatedSamples)

	// Tape machine for plain generation (no gradients needed)
	tmGenerator := gorgonia.NewTapeMachine(ganGraph)
	defer tmGenerator.Close()

	targetDiscriminatorGAN := gorgonia.NewMatrix(ganGraph, gorgonia.Float64, gorgonia.WithShape(definedGAN.Out().Shape()...), gorgonia.WithName("gan_discriminator_target"))
	cost, err := dllab.BinaryCrossEntropyLoss(definedGAN.Out(), targetDiscriminatorGAN)
	if err != nil {
		panic(err)
	}
	gorgonia.WithName("gan_discriminator_loss")(cost)
	// Define gradients for GAN
	_, err = gorgonia.Grad(cost, definedGAN.Learnables()...)
	if err != nil {
		panic(err)
	}

	targetDiscriminatorTrain := gorgonia.NewMatrix(trainDiscriminatorGraph, gorgonia.Float64, gorgonia.WithShape(2*batchSize, 1), gorgonia.WithName("discriminator_target"))
	costDiscriminatorTrain, err := dllab.BinaryCrossEntropyLoss(discriminatorTrain.Out(), targetDiscriminatorTrain)
	if err != nil {
		panic(err)
	}
	gorgonia.WithName("discriminator_loss")(costDiscriminatorTrain)
	// Define gradients for Discriminator in training mode
	_, err = gorgonia.Grad(costDiscriminatorTrain, discriminatorTrain.Learnables()...)
	if err != nil {
		panic(err)
	}

	/* Read costs nodes into variables for further outputting */
	var costValGAN gorgonia.Value
	gorgonia.Read(cost, &costValGAN)
	var costValDiscriminatorTrain gorgonia.Value
	gorgonia.Read(costDiscriminatorTrain, &costValDiscriminatorTrain)

	// Tape machine for GAN evaluation graph
	tm := gorgonia.NewTapeMachine(ganGraph, gorgonia.BindDualValues(definedGAN.Learnables()...))
	defer tm.Close()
	// Solver for GAN evaluation graph: steps Generator learnables only,
	// which keeps the Discriminator portion of the combined net frozen
	solverGAN := gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(batchSize)), gorgonia.WithLearnRate(learningRate))
	// Tape machine for Discriminator [in training mode] evaluation graph
	tmDisTrain := gorgonia.NewTapeMachine(trainDiscriminatorGraph, gorgonia.BindDualValues(discriminatorTrain.Learnables()...))
	defer tmDisTrain.Close()
	// Solver for Discriminator [in training mode] evaluation graph
	solverDiscriminatorTrain := gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(2*batchSize)), gorgonia.WithLearnRate(learningRate))

	/* Training process */
	realSamplesLabels := tensor.Ones(tensor.Float64, batchSize, 1)
	generatedSamplesLabels := tensor.Ones(tensor.Float64, batchSize, 1)
	generatedSamplesLabels.Zero()

	var lossHistoryGAN, lossHistoryDiscriminator []float64
	st := time.Now()

	for epoch := 0; epoch < numEpochs; epoch++ {
		iteration := 0
		for trainData.HasNext() {
			xVal, err := trainData.Next()
			if err != nil {
				panic(err)
			}

			// Generate fake samples with current Generator weights
			latentSpaceSamples := dllab.NormRandDense(batchSize, latentSpaceSize)
			err = gorgonia.Let(inputGenerator, latentSpaceSamples)
			if err != nil {
				panic(err)
			}
			err = tmGenerator.RunAll()
			if err != nil {
				panic(err)
			}
			tmGenerator.Reset()

			// Concat real and fake input data
			allSamples, err := tensor.Concat(0, xVal, generatedSamples.(tensor.Tensor))
			if err != nil {
				panic(err)
			}
			// Concat real and fake output labels
			allSamplesLabels, err := tensor.Concat(0, realSamplesLabels, generatedSamplesLabels)
			if err != nil {
				panic(err)
			}

			// Train Discriminator on the mixed batch. Fitting it twice
			// per iteration yields a better result on this dataset.
			for k := 0; k < disFitsPerStep; k++ {
				err = gorgonia.Let(inputDiscriminatorTrain, allSamples)
				if err != nil {
					panic(err)
				}
				err = gorgonia.Let(targetDiscriminatorTrain, allSamplesLabels)
				if err != nil {
					panic(err)
				}
				err = tmDisTrain.RunAll()
				if err != nil {
					panic(err)
				}
				err = solverDiscriminatorTrain.Step(gorgonia.NodesToValueGrads(discriminatorTrain.Learnables()))
				if err != nil {
					panic(err)
				}
				tmDisTrain.Reset()
			}

			// Push updated Discriminator weights into the frozen
			// suffix segment of the combined network
			err = dllab.PropagateDiscriminatorUpdate(discriminatorTrain, definedGAN)
			if err != nil {
				panic(err)
			}

			// Train Generator through the combined network: noise in,
			// "real" labels as target
			latentSpaceSamplesGenerated := dllab.NormRandDense(batchSize, latentSpaceSize)
			err = gorgonia.Let(inputGenerator, latentSpaceSamplesGenerated)
			if err != nil {
				panic(err)
			}
			err = gorgonia.Let(targetDiscriminatorGAN, realSamplesLabels)
			if err != nil {
				panic(err)
			}
			err = tm.RunAll()
			if err != nil {
				panic(err)
			}
			err = solverGAN.Step(gorgonia.NodesToValueGrads(definedGAN.GeneratorLearnables()))
			if err != nil {
				panic(err)
			}
			tm.Reset()

			lossHistoryDiscriminator = append(lossHistoryDiscriminator, costValDiscriminatorTrain.Data().(float64))
			lossHistoryGAN = append(lossHistoryGAN, costValGAN.Data().(float64))

			if iteration%evalEvery == 0 {
				fmt.Printf("Epoch %d, iteration %d:\n", epoch, iteration)
				fmt.Printf("\tDiscriminator's loss: %v\n", costValDiscriminatorTrain)
				fmt.Printf("\tGenerator's loss: %v\n", costValGAN)
				fmt.Printf("\tTaken time: %v\n", time.Since(st))
				st = time.Now()
				err = saveSampleGrid(generatedSamples, path.Join(*outputDir, fmt.Sprintf("samples_e%d_i%d.png", epoch, iteration)))
				if err != nil {
					panic(err)
				}
			}
			iteration++
		}
		trainData.Reset()

		if err := definedGenerator.SaveWeights(genCheckpoint); err != nil {
			panic(err)
		}
		if err := discriminatorTrain.SaveWeights(disCheckpoint); err != nil {
			panic(err)
		}
		if err := dllab.PlotSeries(lossHistoryGAN, "Generator loss", path.Join(*outputDir, "loss_generator.png")); err != nil {
			panic(err)
		}
		if err := dllab.PlotSeries(lossHistoryDiscriminator, "Discriminator loss", path.Join(*outputDir, "loss_discriminator.png")); err != nil {
			panic(err)
		}
		fmt.Printf("Epoch %d done, checkpoints and plots written to %s\n", epoch, *outputDir)
	}
}

// saveSampleGrid Renders the first numGridSamples generated digits into a PNG grid
func saveSampleGrid(generated gorgonia.Value, fname string) error {
	batch, ok := generated.(*tensor.Dense)
	if !ok {
		return fmt.Errorf("Generated samples are not a dense tensor")
	}
	sliced, err := batch.Slice(sli{0, numGridSamples})
	if err != nil {
		return err
	}
	gridSamples, ok := sliced.Materialize().(*tensor.Dense)
	if !ok {
		return fmt.Errorf("Materialized samples are not a dense tensor")
	}
	return dllab.SaveImageGrid(gridSamples, imgHeight, imgWidth, gridCols, fname)
}

// sli Just an iterator with step size = 1
type sli struct {
	start, end int
}

func (s sli) Start() int { return s.start }
func (s sli) End() int   { return s.end }
func (s sli) Step() int  { return 1 }

// defineGenerator Takes 100 random numbers in and produces a flat
// 28x28 grayscale image in [-1; 1]
func defineGenerator(g *gorgonia.ExprGraph) *dllab.GeneratorNet {
	sizes := [][2]int{
		{256, latentSpaceSize},
		{512, 256},
		{1024, 512},
		{imgHeight * imgWidth, 1024},
	}
	layers := make([]*dllab.Layer, 0, len(sizes))
	for i, shp := range sizes {
		w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(shp[0], shp[1]), gorgonia.WithName(fmt.Sprintf("generator_w%d", i)), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
		b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, shp[0]), gorgonia.WithName(fmt.Sprintf("generator_b%d", i)), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
		activation := dllab.LeakyRectify(0.2)
		if i == len(sizes)-1 {
			activation = dllab.Tanh
		}
		layers = append(layers, &dllab.Layer{
			WeightNode: w,
			BiasNode:   b,
			Type:       dllab.LayerLinear,
			Activation: activation,
		})
	}
	return dllab.Generator(layers...)
}

// defineDiscriminator Takes a flat 28x28 grayscale image and outputs
// probability of it being a real sample
func defineDiscriminator(g *gorgonia.ExprGraph) *dllab.DiscriminatorNet {
	sizes := [][2]int{
		{1024, imgHeight * imgWidth},
		{512, 1024},
		{256, 512},
		{1, 256},
	}
	layers := make([]*dllab.Layer, 0, 2*len(sizes))
	for i, shp := range sizes {
		w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(shp[0], shp[1]), gorgonia.WithName(fmt.Sprintf("discriminator_train_w%d", i)), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
		b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, shp[0]), gorgonia.WithName(fmt.Sprintf("discriminator_train_b%d", i)), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
		if i == len(sizes)-1 {
			layers = append(layers, &dllab.Layer{
				WeightNode: w,
				BiasNode:   b,
				Type:       dllab.LayerLinear,
				Activation: dllab.Sigmoid,
			})
			break
		}
		layers = append(layers, &dllab.Layer{
			WeightNode: w,
			BiasNode:   b,
			Type:       dllab.LayerLinear,
			Activation: dllab.LeakyRectify(0.2),
		})
		layers = append(layers, &dllab.Layer{
			Type:        dllab.LayerDropout,
			Activation:  dllab.NoActivation,
			Probability: 0.5,
		})
	}
	return dllab.Discriminator(layers...)
}
