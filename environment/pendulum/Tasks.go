package pendulum

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/environment"
)

// SwingUp implements a task where the agent must swing the pendulum up
// and hold it in a vertical position. Rewards are the cosine of the
// pendulum angle measured from the positive y-axis.
type SwingUp struct {
	environment.Starter
	environment.Ender
}

// NewSwingUp creates and returns a new SwingUp task
func NewSwingUp(s environment.Starter, maxSteps int) *SwingUp {
	ender := environment.NewStepLimit(maxSteps)
	return &SwingUp{s, ender}
}

// GetReward returns the reward for transitioning to nextState
func (s *SwingUp) GetReward(_, _ mat.Vector, nextState mat.Vector) float64 {
	return math.Cos(nextState.AtVec(0))
}

// RewardSpec returns the reward specification of the Task
func (s *SwingUp) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{-1.0})
	upperBound := mat.NewVecDense(1, []float64{1.0})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Continuous)
}
