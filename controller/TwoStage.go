package controller

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/dynamics"
	"github.com/samuelfneumann/mpcrl/policy"
)

// TwoStage implements a two-stage lookahead controller. In the first
// stage, K candidate first actions are taken from the current state
// through one model step. In the second stage, R rollouts of the
// deterministic policy are simulated for H steps from each resulting
// state. Each candidate is scored by its first-stage reward plus the
// mean return of its rollouts, and the best first-stage action is
// returned.
type TwoStage struct {
	model   dynamics.RewardModel
	policy  policy.Policy
	random  *uniform
	follow  *policyGen
	horizon int
	k, r    int

	randomFirst bool
	selfExplore bool
}

// NewTwoStage returns a new TwoStage controller
func NewTwoStage(m dynamics.RewardModel, p policy.Policy,
	bounds []r1.Interval, conf Config, seed uint64) (*TwoStage, error) {
	const op = "newTwoStage"
	if err := validateBounds(op, bounds); err != nil {
		return nil, err
	}
	if m == nil || p == nil {
		return nil, invalidArgument(op, "nil model or policy")
	}
	if err := conf.validateTwoStage(); err != nil {
		return nil, fmt.Errorf("%v: %w", op, err)
	}

	return &TwoStage{
		model:       m,
		policy:      p,
		random:      newUniform(bounds, seed),
		follow:      newPolicyGen(p, false, 0, bounds, seed+1),
		horizon:     conf.Horizon,
		k:           conf.FirstStageActions,
		r:           conf.PathsPerAction,
		randomFirst: conf.RandomFirstStage,
		selfExplore: conf.SelfExplore,
	}, nil
}

// SelectAction returns a copy of the best first-stage action in state
func (t *TwoStage) SelectAction(state mat.Vector) (*mat.VecDense,
	error) {
	if err := checkState("selectAction", t.model, state); err != nil {
		return nil, err
	}
	actionDims := t.random.dist.Dim()

	// Stage 1
	states := tile(state, t.k)
	_, stateDims := states.Dims()

	var first *mat.Dense
	if t.randomFirst {
		first = t.random.sample(t.k)
	} else {
		var err error
		first, err = act(t.policy, states, t.selfExplore, actionDims)
		if err != nil {
			return nil, fmt.Errorf("selectAction: %w", err)
		}
	}

	next, firstRewards, err := t.model.PredictReward(states, first)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %w",
			&ModelError{Op: "predict", Err: err})
	}
	if err := checkOutput(next, firstRewards, t.k, stateDims,
		true); err != nil {
		return nil, fmt.Errorf("selectAction: %w", err)
	}

	// Stage 2
	traj, err := simulate(rewardModelStep(t.model), t.follow,
		repeatRows(next, t.r), t.horizon, true)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %w", err)
	}
	returns := rewardScorer{gamma: 1}.score(traj)

	scores := make([]float64, t.k)
	for i := range scores {
		scores[i] = firstRewards[i] + floats.Sum(returns[i*t.r:(i+1)*t.r])/
			float64(t.r)
	}
	best := floats.MaxIdx(scores)

	action := make([]float64, actionDims)
	copy(action, first.RawRowView(best))
	return mat.NewVecDense(actionDims, action), nil
}
