package controller

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/cost"
	"github.com/samuelfneumann/mpcrl/dynamics"
	"github.com/samuelfneumann/mpcrl/policy"
)

// MPC implements a random-shooting model predictive controller. On
// each call to SelectAction, a number of candidate action sequences
// are generated and simulated through a dynamics model. The first
// action of the best sequence is returned, and all other actions are
// discarded.
type MPC struct {
	model      interface{}
	step       stepFunc
	gen        generator
	scorer     scorer
	horizon    int
	paths      int
	actionDims int
	withReward bool
}

func newMPC(op string, model interface{}, step stepFunc, gen generator,
	s scorer, actionDims int, c Config, withReward bool) (*MPC, error) {
	if err := c.validateMPC(); err != nil {
		return nil, fmt.Errorf("%v: %w", op, err)
	}
	return &MPC{
		model:      model,
		step:       step,
		gen:        gen,
		scorer:     s,
		horizon:    c.Horizon,
		paths:      c.Paths,
		actionDims: actionDims,
		withReward: withReward,
	}, nil
}

// NewCostMPC returns a new MPC which samples uniform random action
// sequences and selects the one of least trajectory cost
func NewCostMPC(m dynamics.Model, c cost.TrajectoryCost,
	bounds []r1.Interval, conf Config, seed uint64) (*MPC, error) {
	const op = "newCostMPC"
	if err := validateBounds(op, bounds); err != nil {
		return nil, err
	}
	if m == nil || c == nil {
		return nil, invalidArgument(op, "nil model or cost")
	}

	return newMPC(op, m, modelStep(m), newUniform(bounds, seed),
		costScorer{c}, len(bounds), conf, false)
}

// NewRewardMPC returns a new MPC which samples uniform random action
// sequences and selects the one of greatest discounted predicted
// return
func NewRewardMPC(m dynamics.RewardModel, bounds []r1.Interval,
	conf Config, seed uint64) (*MPC, error) {
	const op = "newRewardMPC"
	if err := validateBounds(op, bounds); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, invalidArgument(op, "nil model")
	}

	return newMPC(op, m, rewardModelStep(m), newUniform(bounds, seed),
		rewardScorer{conf.Gamma}, len(bounds), conf, true)
}

// NewPolicyMPC returns a new MPC which generates action sequences with
// a policy and selects the one of least trajectory cost
func NewPolicyMPC(m dynamics.Model, p policy.Policy,
	c cost.TrajectoryCost, bounds []r1.Interval, conf Config,
	seed uint64) (*MPC, error) {
	const op = "newPolicyMPC"
	if err := validateBounds(op, bounds); err != nil {
		return nil, err
	}
	if m == nil || p == nil || c == nil {
		return nil, invalidArgument(op, "nil model, policy, or cost")
	}

	gen := newPolicyGen(p, conf.SelfExplore, conf.Explore, bounds, seed)
	return newMPC(op, m, modelStep(m), gen, costScorer{c}, len(bounds), conf,
		false)
}

// NewPolicyRewardMPC returns a new MPC which generates action sequences
// with a policy and selects the one of greatest undiscounted predicted
// return
func NewPolicyRewardMPC(m dynamics.RewardModel, p policy.Policy,
	bounds []r1.Interval, conf Config, seed uint64) (*MPC, error) {
	const op = "newPolicyRewardMPC"
	if err := validateBounds(op, bounds); err != nil {
		return nil, err
	}
	if m == nil || p == nil {
		return nil, invalidArgument(op, "nil model or policy")
	}

	gen := newPolicyGen(p, conf.SelfExplore, conf.Explore, bounds, seed)
	return newMPC(op, m, rewardModelStep(m), gen, rewardScorer{gamma: 1},
		len(bounds), conf, true)
}

// SelectAction simulates the candidate paths from state and returns a
// copy of the first action of the best one
func (m *MPC) SelectAction(state mat.Vector) (*mat.VecDense, error) {
	if err := checkState("selectAction", m.model, state); err != nil {
		return nil, err
	}
	traj, err := simulate(m.step, m.gen, tile(state, m.paths), m.horizon,
		m.withReward)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %w", err)
	}

	scores := m.scorer.score(traj)
	if len(scores) != m.paths {
		return nil, fmt.Errorf("selectAction: %w", &ModelError{
			Op:  "score",
			Err: fmt.Errorf("got %v scores for %v paths", len(scores), m.paths),
		})
	}
	best := m.scorer.best(scores)

	action := make([]float64, m.actionDims)
	copy(action, traj.Actions[0].RawRowView(best))
	return mat.NewVecDense(m.actionDims, action), nil
}

// Horizon returns the number of simulated steps per path
func (m *MPC) Horizon() int {
	return m.horizon
}

// Paths returns the number of candidate paths per action
func (m *MPC) Paths() int {
	return m.paths
}
