package policy

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/initwfn"
	"github.com/samuelfneumann/mpcrl/network"
)

func newPolicy(t *testing.T, init *initwfn.InitWFn,
	bounds []r1.Interval) *GaussianMLP {
	t.Helper()
	c := Config{
		Layers:      []int{8},
		Biases:      []bool{true},
		Activations: []*network.Activation{network.ReLU()},
		InitWFn:     init,
		LogStd:      0,
	}
	p, err := NewGaussianMLP(3, bounds, c, 1)
	if err != nil {
		t.Fatalf("newGaussianMLP: %v", err)
	}
	return p
}

func TestActDeterministic(t *testing.T) {
	zeroes, err := initwfn.NewZeroes()
	if err != nil {
		t.Fatalf("newZeroes: %v", err)
	}
	bounds := []r1.Interval{{Min: -1, Max: 1}, {Min: 0.5, Max: 2}}
	p := newPolicy(t, zeroes, bounds)

	states := mat.NewDense(4, 3, nil)
	actions, values, err := p.Act(states, false)
	if err != nil {
		t.Fatalf("act: %v", err)
	}

	// Zero weights predict a mean of 0, which is clipped into bounds
	want := mat.NewDense(4, 2, []float64{0, 0.5, 0, 0.5, 0, 0.5, 0, 0.5})
	if !mat.Equal(actions, want) {
		t.Errorf("act:\n\twant(%v)\n\thave(%v)", mat.Formatted(want),
			mat.Formatted(actions))
	}
	if len(values) != 4 {
		t.Errorf("values length:\n\twant(%v)\n\thave(%v)", 4, len(values))
	}
}

func TestActStochastic(t *testing.T) {
	glorot, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatalf("newGlorotU: %v", err)
	}
	bounds := []r1.Interval{{Min: -100, Max: 100}}
	p := newPolicy(t, glorot, bounds)

	states := mat.NewDense(50, 3, nil)
	for i := 0; i < 50; i++ {
		states.SetRow(i, []float64{0.1, 0.2, 0.3})
	}

	deterministic, _, err := p.Act(states, false)
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	stochastic, _, err := p.Act(states, true)
	if err != nil {
		t.Fatalf("act: %v", err)
	}

	// Identical states give identical means, but noise separates
	// stochastic actions
	distinct := make(map[float64]bool)
	for i := 0; i < 50; i++ {
		if deterministic.At(i, 0) != deterministic.At(0, 0) {
			t.Errorf("deterministic row %v:\n\twant(%v)\n\thave(%v)", i,
				deterministic.At(0, 0), deterministic.At(i, 0))
		}
		distinct[stochastic.At(i, 0)] = true
	}
	if len(distinct) < 45 {
		t.Errorf("stochastic actions: expected distinct samples, got %v "+
			"distinct of 50", len(distinct))
	}
}

func TestActWrongFeatures(t *testing.T) {
	zeroes, err := initwfn.NewZeroes()
	if err != nil {
		t.Fatalf("newZeroes: %v", err)
	}
	p := newPolicy(t, zeroes, []r1.Interval{{Min: -1, Max: 1}})

	if _, _, err := p.Act(mat.NewDense(2, 4, nil), false); err == nil {
		t.Error("act: expected error for wrong state size")
	}
}
