// Package timestep implements timesteps of the agent-environment
// interaction and the transitions stored in replay buffers.
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended
type EndType int

const (
	Unknown EndType = iota
	TerminalStateReached
	Timeout
)

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	end         EndType
}

// New returns a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Discount: d, Observation: o,
		Number: n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd records why the episode ended on this TimeStep
func (t *TimeStep) SetEnd(e EndType) {
	t.end = e
}

// TerminalEnd returns whether the episode ended by reaching a terminal
// state rather than by a timeout
func (t *TimeStep) TerminalEnd() bool {
	return t.end == TerminalStateReached
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}

// Transition is a single (state, action, reward, next state) tuple.
// Transitions are values: the replay buffers copy their contents on
// insertion.
type Transition struct {
	State     *mat.VecDense
	Action    *mat.VecDense
	Reward    float64
	NextState *mat.VecDense
}

// NewTransition creates a Transition from the TimeStep in which an
// action was taken, the action itself, and the resulting TimeStep.
func NewTransition(step TimeStep, action *mat.VecDense,
	next TimeStep) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    next.Reward,
		NextState: next.Observation,
	}
}

// Delta returns NextState - State as a new vector
func (t Transition) Delta() *mat.VecDense {
	delta := mat.NewVecDense(t.NextState.Len(), nil)
	delta.SubVec(t.NextState, t.State)
	return delta
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | State: %v  |  Action: %v  |  "+
		"Reward: %.2f  |  Next State: %v", mat.Formatted(t.State.T()),
		mat.Formatted(t.Action.T()), t.Reward, mat.Formatted(t.NextState.T()))
}
