package environment

import "github.com/samuelfneumann/mpcrl/timestep"

// StepLimit is an Ender which ends episodes by timeout once a fixed
// number of steps has been taken
type StepLimit struct {
	limit int
}

// NewStepLimit returns an Ender which ends episodes after limit steps
func NewStepLimit(limit int) StepLimit {
	return StepLimit{limit: limit}
}

// End marks t as the Last step of its episode, with a Timeout end, if
// the step limit has been reached
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number < s.limit {
		return false
	}
	t.StepType = timestep.Last
	t.SetEnd(timestep.Timeout)
	return true
}

// Limit returns the number of steps per episode
func (s StepLimit) Limit() int {
	return s.limit
}
