// Package pendulum implements a continuous-action pendulum swing-up
// environment
package pendulum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/environment"
	"github.com/samuelfneumann/mpcrl/timestep"
)

// default physical constants
const (
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Speed bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	dt              float64 = 0.05
	Gravity         float64 = 9.8
	Mass            float64 = 1.0
	Length          float64 = 1.0
	ActionDims      int     = 1
	ObservationDims int     = 2
)

// Pendulum implements the classic control environment Pendulum. In this
// environment, a pendulum is attached to a fixed base. An agent can
// swing the pendulum back and forth, but the swinging force/torque is
// underpowered. In order to be able to swing the pendulum straight up,
// it must first be rocked back and forth, using the momentum to
// gradually climb higher.
//
// State features consist of the angle of the pendulum from the positive
// y-axis and the angular velocity of the pendulum. The angular
// velocity is clipped between [-SpeedBound, SpeedBound]. Angles are
// normalized to stay within [-AngleBound, AngleBound] = [-π, π].
//
// Actions are continuous and 1-dimensional, the torque applied at the
// fixed base. Actions outside of [-TorqueBound, TorqueBound] are
// clipped.
//
// Pendulum implements the environment.Environment interface
type Pendulum struct {
	environment.Task
	angleBounds  r1.Interval
	speedBounds  r1.Interval
	torqueBounds r1.Interval
	lastStep     timestep.TimeStep
	discount     float64
}

// New creates and returns a new Pendulum environment and its first
// timestep
func New(t environment.Task, discount float64) (*Pendulum,
	timestep.TimeStep, error) {
	p := &Pendulum{
		Task:         t,
		angleBounds:  r1.Interval{Min: -AngleBound, Max: AngleBound},
		speedBounds:  r1.Interval{Min: -SpeedBound, Max: SpeedBound},
		torqueBounds: r1.Interval{Min: -TorqueBound, Max: TorqueBound},
		discount:     discount,
	}

	step, err := p.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return p, step, nil
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (p *Pendulum) LastTimeStep() timestep.TimeStep {
	return p.lastStep
}

// Reset resets the environment and returns a starting state drawn from
// the Starter
func (p *Pendulum) Reset() (timestep.TimeStep, error) {
	state := p.Start()
	if err := validateState(state, p.angleBounds, p.speedBounds); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	p.lastStep = timestep.New(timestep.First, 0, p.discount, state, 0)
	return p.lastStep, nil
}

// Step takes one environmental step given a torque and returns the next
// timestep and whether or not the episode has ended
func (p *Pendulum) Step(action *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	if action.Len() != ActionDims {
		return timestep.TimeStep{}, true, fmt.Errorf("step: actions should "+
			"be %v-dimensional, got %v", ActionDims, action.Len())
	}

	nextState := p.nextState(p.lastStep, action.AtVec(0))
	reward := p.GetReward(p.lastStep.Observation, action, nextState)
	next := timestep.New(timestep.Mid, reward, p.discount, nextState,
		p.lastStep.Number+1)

	// Check if the step is the last in the episode and adjust step type
	// if necessary
	p.End(&next)

	p.lastStep = next
	return next, next.Last(), nil
}

// nextState computes the next state of the environment given a timestep
// and an amount of torque to apply to the fixed base of the pendulum.
func (p *Pendulum) nextState(t timestep.TimeStep,
	torque float64) *mat.VecDense {
	obs := t.Observation
	th, thdot := obs.AtVec(0), obs.AtVec(1)

	torque = clip(torque, p.torqueBounds)

	newthdot := thdot + (-3*Gravity/(2*Length)*math.Sin(th+math.Pi)+
		3.0/(Mass*math.Pow(Length, 2))*torque)*dt
	newth := th + (newthdot * dt)

	newthdot = clip(newthdot, p.speedBounds)
	newth = normalizeAngle(newth)

	return mat.NewVecDense(ObservationDims, []float64{newth, newthdot})
}

// ActionSpec returns the action specification of the environment
func (p *Pendulum) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{p.torqueBounds.Min})
	upperBound := mat.NewVecDense(ActionDims, []float64{p.torqueBounds.Max})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// ObservationSpec returns the observation specification of the
// environment
func (p *Pendulum) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	minObs := []float64{p.angleBounds.Min, p.speedBounds.Min}
	lowerBound := mat.NewVecDense(ObservationDims, minObs)

	maxObs := []float64{p.angleBounds.Max, p.speedBounds.Max}
	upperBound := mat.NewVecDense(ObservationDims, maxObs)

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (p *Pendulum) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{p.discount})

	return environment.NewSpec(shape, environment.Discount, bound, bound,
		environment.Continuous)
}

func (p *Pendulum) String() string {
	str := "Pendulum  |  theta: %v  |  theta dot: %v"
	theta := p.lastStep.Observation.AtVec(0)
	thetadot := p.lastStep.Observation.AtVec(1)

	return fmt.Sprintf(str, theta, thetadot)
}

// normalizeAngle wraps an angle into [-π, π)
func normalizeAngle(th float64) float64 {
	th = math.Mod(th+math.Pi, 2*math.Pi)
	if th < 0 {
		th += 2 * math.Pi
	}
	return th - math.Pi
}

func clip(x float64, bounds r1.Interval) float64 {
	return math.Max(bounds.Min, math.Min(x, bounds.Max))
}

// validateState validates the state to ensure that the angle and angular
// velocity are within the environmental limits
func validateState(obs mat.Vector, angleBounds,
	speedBounds r1.Interval) error {
	if obs.Len() != ObservationDims {
		return fmt.Errorf("state should be %v-dimensional, got %v",
			ObservationDims, obs.Len())
	}
	if obs.AtVec(0) > angleBounds.Max || obs.AtVec(0) < angleBounds.Min {
		return fmt.Errorf("theta is not within bounds %v", angleBounds)
	}
	if obs.AtVec(1) > speedBounds.Max || obs.AtVec(1) < speedBounds.Min {
		return fmt.Errorf("theta dot is not within bounds %v", speedBounds)
	}
	return nil
}
