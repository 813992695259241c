// Package experiment implements the training driver of model-based
// MPC: random data collection, normalization, model refits, and MPC
// controlled segments in an environment.
package experiment

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/controller"
	"github.com/samuelfneumann/mpcrl/cost"
	"github.com/samuelfneumann/mpcrl/dynamics"
	env "github.com/samuelfneumann/mpcrl/environment"
	"github.com/samuelfneumann/mpcrl/environment/envconfig"
	"github.com/samuelfneumann/mpcrl/experiment/trackers"
	"github.com/samuelfneumann/mpcrl/expreplay"
	"github.com/samuelfneumann/mpcrl/normalize"
	"github.com/samuelfneumann/mpcrl/policy"
	ts "github.com/samuelfneumann/mpcrl/timestep"
)

// Experiment runs model-based MPC in an environment. Transitions from
// random paths fill the model buffer, from which normalization
// statistics are computed once. Each iteration then refits the dynamics
// model on the model buffer and runs one segment in the environment
// with the controller, appending its transitions to the model buffer.
// The (state, action) pairs selected by the controller are stored in a
// bounded buffer for behaviour cloning.
type Experiment struct {
	environment env.Environment
	step        ts.TimeStep

	model       *dynamics.NN
	modelBuffer expreplay.ExperienceReplayer
	bcBuffer    *expreplay.Tuple
	controller  controller.Controller

	trackers []trackers.Tracker
	logger   zerolog.Logger

	iterations    int
	segmentLength int
	episodeReturn float64
	warnedBCFull  bool
}

// New creates a new Experiment, collecting the random paths and
// building the dynamics model and controller
func New(c Config, seed uint64, logger zerolog.Logger,
	t ...trackers.Tracker) (*Experiment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	s := newSeeds(seed)
	environment, step, err := c.Env.Create(s.env)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}
	features := environment.ObservationSpec().Dims()
	actionSpec := environment.ActionSpec()
	actionDims := actionSpec.Dims()
	bounds := actionSpec.Bounds()

	var modelBuffer expreplay.ExperienceReplayer
	if c.ModelBufferSize == 0 {
		modelBuffer, err = expreplay.New(features, actionDims,
			c.Dynamics.PredictReward, s.modelBuffer)
	} else {
		modelBuffer, err = expreplay.NewRing(c.ModelBufferSize, features,
			actionDims, c.Dynamics.PredictReward, s.modelBuffer)
	}
	if err != nil {
		return nil, fmt.Errorf("new: could not create model buffer: %v", err)
	}

	bcBuffer, err := expreplay.NewTuple(c.BCBufferSize,
		[]int{features, actionDims}, s.bcBuffer)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour cloning "+
			"buffer: %v", err)
	}

	e := &Experiment{
		environment:   environment,
		step:          step,
		modelBuffer:   modelBuffer,
		bcBuffer:      bcBuffer,
		trackers:      t,
		logger:        logger.With().Str("component", "experiment").Logger(),
		iterations:    c.Iterations,
		segmentLength: c.SegmentLength,
	}

	// Random data collection
	random, err := controller.NewRandom(bounds, s.random)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	for i := 0; i < c.RandomPaths; i++ {
		if err := e.randomPath(random); err != nil {
			return nil, fmt.Errorf("new: random path %v: %v", i, err)
		}
	}
	e.logger.Info().
		Int("paths", c.RandomPaths).
		Int("transitions", modelBuffer.Size()).
		Msg("collected random data")

	stats, err := normalize.Compute(modelBuffer)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute normalization: %v",
			err)
	}
	e.model, err = dynamics.New(stats, features, actionDims, c.Dynamics)
	if err != nil {
		return nil, fmt.Errorf("new: could not create dynamics model: %v",
			err)
	}

	if c.ControllerType == Random {
		e.controller = random
	} else {
		e.controller, err = newController(c, e.model, features, bounds, s)
		if err != nil {
			return nil, fmt.Errorf("new: could not create controller: %v",
				err)
		}
	}

	if err := e.reset(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return e, nil
}

// seeds holds the seed of each random component of an Experiment so
// that no two components draw the same stream. Controllers may use
// their seed and the following one.
type seeds struct {
	env, modelBuffer, bcBuffer, random, policy, controller uint64
}

func newSeeds(seed uint64) seeds {
	return seeds{
		env:         seed,
		modelBuffer: seed + 1,
		bcBuffer:    seed + 2,
		random:      seed + 3,
		policy:      seed + 4,
		controller:  seed + 5,
	}
}

// newController creates the MPC controller described by the Config
func newController(c Config, model *dynamics.NN, features int,
	bounds []r1.Interval, s seeds) (controller.Controller, error) {
	var p policy.Policy
	if c.ControllerType.usesPolicy() {
		var err error
		p, err = policy.NewGaussianMLP(features, bounds, c.Policy,
			s.policy)
		if err != nil {
			return nil, err
		}
	}

	switch c.ControllerType {
	case CostMPC:
		return controller.NewCostMPC(model, costFn(c.Env.Environment),
			bounds, c.Controller, s.controller)
	case RewardMPC:
		return controller.NewRewardMPC(model, bounds, c.Controller,
			s.controller)
	case PolicyMPC:
		return controller.NewPolicyMPC(model, p, costFn(c.Env.Environment),
			bounds, c.Controller, s.controller)
	case PolicyReward:
		return controller.NewPolicyRewardMPC(model, p, bounds, c.Controller,
			s.controller)
	case TwoStage:
		return controller.NewTwoStage(model, p, bounds, c.Controller,
			s.controller)
	}
	return nil, fmt.Errorf("no such controller type %v", c.ControllerType)
}

// costFn returns the trajectory cost of an environment
func costFn(name envconfig.EnvName) cost.TrajectoryCost {
	switch name {
	case envconfig.HalfCheetah:
		return cost.Trajectory(cost.Cheetah)
	default:
		return cost.Trajectory(cost.Pendulum)
	}
}

// randomPath runs one episode of at most segmentLength steps with the
// random controller, adding its transitions to the model buffer
func (e *Experiment) randomPath(random controller.Controller) error {
	step, err := e.environment.Reset()
	if err != nil {
		return fmt.Errorf("randomPath: could not reset: %v", err)
	}

	for n := 0; n < e.segmentLength && !step.Last(); n++ {
		action, err := random.SelectAction(step.Observation)
		if err != nil {
			return fmt.Errorf("randomPath: %v", err)
		}
		next, _, err := e.environment.Step(action)
		if err != nil {
			return fmt.Errorf("randomPath: could not step: %v", err)
		}

		tr := ts.NewTransition(step, action, next)
		if err := e.modelBuffer.Add(tr); err != nil {
			return fmt.Errorf("randomPath: %v", err)
		}
		step = next
	}
	return nil
}

// Run runs all iterations of the experiment
func (e *Experiment) Run() error {
	for i := 0; i < e.iterations; i++ {
		if err := e.RunIteration(i); err != nil {
			return err
		}
	}
	return nil
}

// RunIteration refits the dynamics model and runs one controlled
// segment in the environment
func (e *Experiment) RunIteration(i int) error {
	start := time.Now()
	if err := e.model.Fit(e.modelBuffer); err != nil {
		return fmt.Errorf("runIteration: %v", err)
	}
	fitTime := time.Since(start)

	start = time.Now()
	if err := e.runSegment(); err != nil {
		return fmt.Errorf("runIteration: %v", err)
	}

	e.logger.Info().
		Int("iteration", i).
		Dur("fit_time", fitTime).
		Dur("segment_time", time.Since(start)).
		Float64("loss", e.model.Loss()).
		Int("model_buffer_size", e.modelBuffer.Size()).
		Int("bc_buffer_size", e.bcBuffer.Size()).
		Msg("iteration complete")
	return nil
}

// runSegment takes segmentLength steps with the controller. Episodes
// continue across segments.
func (e *Experiment) runSegment() error {
	for n := 0; n < e.segmentLength; n++ {
		if e.step.Last() {
			if err := e.reset(); err != nil {
				return fmt.Errorf("runSegment: %v", err)
			}
		}

		action, err := e.controller.SelectAction(e.step.Observation)
		if err != nil {
			return fmt.Errorf("runSegment: could not select action: %v", err)
		}
		next, _, err := e.environment.Step(action)
		if err != nil {
			return fmt.Errorf("runSegment: could not step: %v", err)
		}

		if err := e.modelBuffer.Add(ts.NewTransition(e.step, action,
			next)); err != nil {
			return fmt.Errorf("runSegment: %v", err)
		}
		if err := e.addBC(e.step.Observation, action); err != nil {
			return fmt.Errorf("runSegment: %v", err)
		}

		e.track(next)
		e.episodeReturn += next.Reward
		if next.Last() {
			e.logger.Info().
				Int("length", next.Number).
				Float64("return", e.episodeReturn).
				Msg("episode complete")
		}
		e.step = next
	}
	return nil
}

// addBC stores a (state, action) pair selected by the controller
func (e *Experiment) addBC(state, action *mat.VecDense) error {
	if !e.warnedBCFull && e.bcBuffer.Size() == e.bcBuffer.Capacity() {
		e.logger.Warn().
			Int("capacity", e.bcBuffer.Capacity()).
			Msg("behaviour cloning buffer full, evicting oldest pairs")
		e.warnedBCFull = true
	}
	return e.bcBuffer.Add(vecData(state), vecData(action))
}

// reset starts a new episode
func (e *Experiment) reset() error {
	step, err := e.environment.Reset()
	if err != nil {
		return fmt.Errorf("reset: %v", err)
	}
	e.step = step
	e.episodeReturn = 0
	e.track(step)
	return nil
}

// track sends a timestep to each Tracker
func (e *Experiment) track(step ts.TimeStep) {
	for _, t := range e.trackers {
		t.Track(step)
	}
}

// Register adds a Tracker to the (possibly already running) experiment
func (e *Experiment) Register(t trackers.Tracker) {
	e.trackers = append(e.trackers, t)
}

// Save saves the data of all Trackers
func (e *Experiment) Save() error {
	for _, t := range e.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// Model returns the dynamics model
func (e *Experiment) Model() *dynamics.NN {
	return e.model
}

// ModelBuffer returns the buffer the dynamics model is fit on
func (e *Experiment) ModelBuffer() expreplay.Sampler {
	return e.modelBuffer
}

// BCBuffer returns the buffer of (state, action) pairs selected by the
// controller
func (e *Experiment) BCBuffer() *expreplay.Tuple {
	return e.bcBuffer
}

// Close closes the environment if it holds external resources
func (e *Experiment) Close() error {
	if c, ok := e.environment.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func vecData(v *mat.VecDense) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
