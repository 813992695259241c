package dynamics

import (
	"fmt"

	"github.com/samuelfneumann/mpcrl/initwfn"
	"github.com/samuelfneumann/mpcrl/network"
	"github.com/samuelfneumann/mpcrl/solver"
)

// Config implements a configuration of a neural network dynamics model
type Config struct {
	Layers      []int                 // Layer sizes in neural net
	Biases      []bool                // Whether each layer should have a bias
	Activations []*network.Activation // Activation of each layer

	InitWFn *initwfn.InitWFn
	Solver  *solver.Solver

	// Iterations is the number of gradient steps taken each time the
	// model is fit
	Iterations int

	// PredictReward adds an output predicting the reward of each
	// transition. Models predicting rewards must be fit on buffers that
	// store rewards.
	PredictReward bool
}

// BatchSize returns the number of transitions used in each gradient
// step
func (c Config) BatchSize() int {
	return c.Solver.BatchSize()
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if len(c.Layers) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.Layers), len(c.Biases))
	}
	if len(c.Layers) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.Layers), len(c.Activations))
	}
	for i, a := range c.Activations {
		if a == nil {
			return fmt.Errorf("validate: activation %v is nil", i)
		}
	}
	if c.InitWFn == nil || c.InitWFn.InitWFn() == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	if c.Solver == nil || c.Solver.Solver == nil {
		return fmt.Errorf("validate: no solver")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("validate: iterations must be non-negative, "+
			"got %v", c.Iterations)
	}
	return nil
}
