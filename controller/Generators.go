package controller

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/samuelfneumann/mpcrl/policy"
)

// generator produces the actions of all simulated paths at a single
// step of a rollout, given the current state of each path
type generator interface {
	generate(states *mat.Dense) (*mat.Dense, error)
}

// uniform generates actions uniformly at random within the action
// bounds, independently of the states
type uniform struct {
	dist *distmv.Uniform
}

func newUniform(bounds []r1.Interval, seed uint64) *uniform {
	return &uniform{dist: distmv.NewUniform(bounds, rand.NewSource(seed))}
}

func (u *uniform) generate(states *mat.Dense) (*mat.Dense, error) {
	rows, _ := states.Dims()
	return u.sample(rows), nil
}

func (u *uniform) sample(rows int) *mat.Dense {
	out := mat.NewDense(rows, u.dist.Dim(), nil)
	for i := 0; i < rows; i++ {
		out.SetRow(i, u.dist.Rand(out.RawRowView(i)))
	}
	return out
}

// policyGen generates actions with a policy. If stochastic, the policy
// samples its actions. Otherwise, the deterministic policy actions are
// blended with uniform noise as (1-explore)*π(s) + explore*u.
type policyGen struct {
	policy     policy.Policy
	stochastic bool
	explore    float64
	noise      *uniform
}

func newPolicyGen(p policy.Policy, stochastic bool, explore float64,
	bounds []r1.Interval, seed uint64) *policyGen {
	return &policyGen{
		policy:     p,
		stochastic: stochastic,
		explore:    explore,
		noise:      newUniform(bounds, seed),
	}
}

func (p *policyGen) generate(states *mat.Dense) (*mat.Dense, error) {
	rows, _ := states.Dims()
	actionDims := p.noise.dist.Dim()

	actions, err := act(p.policy, states, p.stochastic, actionDims)
	if err != nil {
		return nil, err
	}
	if p.stochastic || p.explore == 0 {
		return actions, nil
	}

	actions.Scale(1-p.explore, actions)
	noise := p.noise.sample(rows)
	noise.Scale(p.explore, noise)
	actions.Add(actions, noise)
	return actions, nil
}

// act calls the policy and checks the shape of its actions. The
// returned matrix is owned by the caller.
func act(p policy.Policy, states *mat.Dense, stochastic bool,
	actionDims int) (*mat.Dense, error) {
	rows, _ := states.Dims()
	actions, _, err := p.Act(states, stochastic)
	if err != nil {
		return nil, &ModelError{Op: "act", Err: err}
	}
	if actions == nil {
		return nil, &ModelError{Op: "act", Err: fmt.Errorf("nil actions")}
	}
	if r, c := actions.Dims(); r != rows || c != actionDims {
		return nil, &ModelError{
			Op: "act",
			Err: fmt.Errorf("actions have shape (%v, %v), expected (%v, %v)",
				r, c, rows, actionDims),
		}
	}
	return mat.DenseCopyOf(actions), nil
}
