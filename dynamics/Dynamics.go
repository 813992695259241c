// Package dynamics implements learned forward-dynamics models of
// environments. Models take batches of raw states and actions and
// predict raw next states, normalizing internally.
package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/expreplay"
)

// Model predicts the next states reached by taking each row of actions
// in the corresponding row of states. Both arguments have one row per
// sample, and the returned matrix has the same shape as states.
type Model interface {
	Predict(states, actions *mat.Dense) (*mat.Dense, error)
}

// RewardModel is a Model which also predicts the reward of each
// transition
type RewardModel interface {
	PredictReward(states, actions *mat.Dense) (*mat.Dense, []float64, error)
}

// Fitter is a model that can be fit to the transitions in a buffer
type Fitter interface {
	Fit(buffer expreplay.Sampler) error
}

// Sized is a model which reports the lengths of the states and actions
// it accepts
type Sized interface {
	FeatureSize() int
	ActionSize() int
}
