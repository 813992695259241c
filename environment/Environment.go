// Package environment outlines the interfaces and structs needed to
// implement concrete continuous-control environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes should end
type Ender interface {
	// End determines whether the argument timestep is the last in the
	// episode. If so, End sets the timestep's StepType to
	// timestep.Last and records the reason for ending.
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme, starting state distribution, and
// episode termination of some environment
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	RewardSpec() Spec
}

// Environment implements a simulated environment with box-bounded
// continuous actions.
type Environment interface {
	// Reset resets the environment between episodes and returns the
	// first timestep of the new episode
	Reset() (timestep.TimeStep, error)

	// Step takes one environmental step, returning the next timestep
	// and whether or not the episode ended
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec
}
