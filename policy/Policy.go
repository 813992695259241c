// Package policy implements policies which map batches of states to
// batches of actions and state values.
package policy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/initwfn"
	"github.com/samuelfneumann/mpcrl/network"
)

// Policy selects actions for a batch of states, one row per state.
// Along with the actions, Act returns the estimated value of each
// state. If stochastic is false, the policy acts deterministically.
type Policy interface {
	Act(states *mat.Dense, stochastic bool) (*mat.Dense, []float64, error)
}

// Config implements a configuration of a Gaussian MLP policy
type Config struct {
	Layers      []int                 // Layer sizes in neural net
	Biases      []bool                // Whether each layer should have a bias
	Activations []*network.Activation // Activation of each layer

	InitWFn *initwfn.InitWFn

	// LogStd is the log standard deviation of the Gaussian used when
	// acting stochastically
	LogStd float64
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
	if c.InitWFn == nil || c.InitWFn.InitWFn() == nil {
		return fmt.Errorf("validate: no weight initializer")
	}
	return nil
}
