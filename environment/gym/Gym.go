// Package gym provides access to OpenAI Gym's continuous-control
// environments, such as HalfCheetah-v2, through GoGym.
//
// Environments only work with their default tasks and episode cutoffs.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/mpcrl/environment"
	ts "github.com/samuelfneumann/mpcrl/timestep"
)

// HalfCheetah is the name of the Gym environment that the training
// driver controls by default
const HalfCheetah = "HalfCheetah-v2"

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	currentStep ts.TimeStep
	discount    float64
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite with a Box action space.
func New(name string, discount float64, seed uint64) (*GymEnv,
	ts.TimeStep, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not create "+
			"environment: %v", err)
	}

	if _, ok := goGymEnv.ActionSpace().(*gogym.BoxSpace); !ok {
		goGymEnv.Close()
		return nil, ts.TimeStep{}, fmt.Errorf("new: environment %v does "+
			"not have continuous actions", name)
	}

	goGymEnv.Seed(int(seed))
	gymEnv := &GymEnv{
		Environment: goGymEnv,
		discount:    discount,
	}

	t, err := gymEnv.Reset()
	if err != nil {
		goGymEnv.Close()
		return nil, ts.TimeStep{}, fmt.Errorf("new: %v", err)
	}

	return gymEnv, t, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	obs, reward, done, err := g.Environment.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}

	t := ts.New(ts.Mid, reward, g.discount, obs, g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
		t.SetEnd(ts.Unknown)
	}
	g.currentStep = t

	return t, done, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}

	t := ts.New(ts.First, 0, g.discount, obs, 0)
	g.currentStep = t

	return t, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	return boxSpec(g.ObservationSpace(), env.Observation)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	return boxSpec(g.ActionSpace(), env.Action)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, []float64{g.discount})

	return env.NewSpec(shape, env.Discount, low, low, env.Continuous)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

// Shutdown releases the Python interpreter used by all Gym
// environments. No GymEnv may be used afterwards.
func Shutdown() {
	gogym.Close()
}

// space is the subset of GoGym's spaces used to build specs
type space interface {
	Low() []*mat.VecDense
	High() []*mat.VecDense
}

func boxSpec(s space, t env.SpecType) env.Spec {
	var low, high *mat.VecDense
	switch s.(type) {
	case *gogym.BoxSpace:
		low = s.Low()[0]
		high = s.High()[0]
	default:
		panic(fmt.Sprintf("boxSpec: invalid space type %T, package gym "+
			"supports only GoGym's BoxSpace", s))
	}
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, t, low, high, env.Continuous)
}
