package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/mpcrl/network"
)

// batchNet is a copy of the policy network with a fixed batch size
type batchNet struct {
	net network.NeuralNet
	vm  G.VM
}

// GaussianMLP implements a Gaussian policy with a state-independent
// standard deviation. An MLP predicts both the mean action and the
// value of each state. Stochastic actions are selected by sampling
// ɛ ~ N(0, I) and computing action := μ + σ * ɛ. Actions are clipped
// to the action bounds.
type GaussianMLP struct {
	base       network.NeuralNet
	nets       map[int]*batchNet
	features   int
	actionDims int
	bounds     []r1.Interval
	std        float64
	normal     *distmv.Normal
}

// NewGaussianMLP returns a new GaussianMLP policy for states with
// features dimensions and actions bounded by bounds
func NewGaussianMLP(features int, bounds []r1.Interval, c Config,
	seed uint64) (*GaussianMLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newGaussianMLP: %v", err)
	}
	actionDims := len(bounds)
	if actionDims == 0 {
		return nil, fmt.Errorf("newGaussianMLP: no action bounds")
	}

	// Outputs are the mean action followed by the state value
	net, err := network.NewMLP(features, 1, actionDims+1, G.NewGraph(),
		c.Layers, c.Biases, c.InitWFn.InitWFn(), c.Activations)
	if err != nil {
		return nil, fmt.Errorf("newGaussianMLP: %v", err)
	}

	// Create standard normal for action selection
	means := make([]float64, actionDims)
	stds := mat.NewDiagDense(actionDims, ones(actionDims))
	source := rand.NewSource(seed)
	normal, ok := distmv.NewNormal(means, stds, source)
	if !ok {
		return nil, fmt.Errorf("newGaussianMLP: could not create standard " +
			"normal for action selection")
	}

	return &GaussianMLP{
		base:       net,
		nets:       make(map[int]*batchNet),
		features:   features,
		actionDims: actionDims,
		bounds:     bounds,
		std:        math.Exp(c.LogStd),
		normal:     normal,
	}, nil
}

// Act returns the actions and state values of the policy in each row
// of states
func (g *GaussianMLP) Act(states *mat.Dense, stochastic bool) (*mat.Dense,
	[]float64, error) {
	rows, cols := states.Dims()
	if cols != g.features {
		return nil, nil, fmt.Errorf("act: invalid state size\n\twant(%v)"+
			"\n\thave(%v)", g.features, cols)
	}

	b, err := g.batchNet(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("act: %v", err)
	}
	input := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		input = append(input, states.RawRowView(i)...)
	}
	if err := b.net.SetInput(input); err != nil {
		return nil, nil, fmt.Errorf("act: %v", err)
	}

	defer b.vm.Reset()
	if err := b.vm.RunAll(); err != nil {
		return nil, nil, fmt.Errorf("act: could not run network: %v", err)
	}
	out := b.net.Output().Data().([]float64)

	outputs := g.actionDims + 1
	actions := mat.NewDense(rows, g.actionDims, nil)
	values := make([]float64, rows)
	noise := make([]float64, g.actionDims)
	for i := 0; i < rows; i++ {
		row := out[i*outputs : (i+1)*outputs]
		if stochastic {
			g.normal.Rand(noise)
		}
		for j := 0; j < g.actionDims; j++ {
			a := row[j]
			if stochastic {
				a += g.std * noise[j]
			}
			actions.Set(i, j, clip(a, g.bounds[j]))
		}
		values[i] = row[g.actionDims]
	}

	return actions, values, nil
}

// batchNet returns the policy network for the batch size, creating it
// if needed
func (g *GaussianMLP) batchNet(batch int) (*batchNet, error) {
	if b, ok := g.nets[batch]; ok {
		return b, nil
	}

	net, err := g.base.CloneWithBatch(batch)
	if err != nil {
		return nil, err
	}
	b := &batchNet{net: net, vm: G.NewTapeMachine(net.Graph())}
	g.nets[batch] = b
	return b, nil
}

func clip(x float64, bounds r1.Interval) float64 {
	return math.Max(bounds.Min, math.Min(x, bounds.Max))
}

func ones(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}
