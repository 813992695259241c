package controller

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/dynamics"
)

// stepFunc takes one model step on a batch of states and actions,
// returning the next states and, if the model predicts them, the
// rewards of each row
type stepFunc func(states, actions *mat.Dense) (*mat.Dense, []float64, error)

func modelStep(m dynamics.Model) stepFunc {
	return func(states, actions *mat.Dense) (*mat.Dense, []float64, error) {
		next, err := m.Predict(states, actions)
		return next, nil, err
	}
}

func rewardModelStep(m dynamics.RewardModel) stepFunc {
	return m.PredictReward
}

// trajectory holds N simulated paths. States has length H+1 and
// Actions and Rewards have length H. Row i of each matrix belongs to
// path i. Rewards is nil if the model does not predict rewards.
type trajectory struct {
	States  []*mat.Dense
	Actions []*mat.Dense
	Rewards [][]float64
}

// simulate rolls out one path of h steps from each row of start. At
// each step the generator fills in the actions of all paths, and the
// model is stepped once on the full batch.
func simulate(step stepFunc, gen generator, start *mat.Dense, h int,
	withReward bool) (trajectory, error) {
	states := start
	n, stateDims := states.Dims()

	traj := trajectory{
		States:  make([]*mat.Dense, 0, h+1),
		Actions: make([]*mat.Dense, 0, h),
	}
	if withReward {
		traj.Rewards = make([][]float64, 0, h)
	}
	traj.States = append(traj.States, states)

	for i := 0; i < h; i++ {
		actions, err := gen.generate(states)
		if err != nil {
			return trajectory{}, err
		}

		next, rewards, err := step(states, actions)
		if err != nil {
			return trajectory{}, &ModelError{Op: "predict", Err: err}
		}
		if err := checkOutput(next, rewards, n, stateDims,
			withReward); err != nil {
			return trajectory{}, err
		}

		traj.Actions = append(traj.Actions, actions)
		traj.States = append(traj.States, next)
		if withReward {
			traj.Rewards = append(traj.Rewards, rewards)
		}
		states = next
	}
	return traj, nil
}

// checkOutput returns a ModelError if the output of a model step does
// not have one row per path
func checkOutput(next *mat.Dense, rewards []float64, rows, cols int,
	withReward bool) error {
	if next == nil {
		return &ModelError{Op: "predict", Err: fmt.Errorf("nil next states")}
	}
	if r, c := next.Dims(); r != rows || c != cols {
		return &ModelError{
			Op: "predict",
			Err: fmt.Errorf("next states have shape (%v, %v), expected "+
				"(%v, %v)", r, c, rows, cols),
		}
	}
	if withReward && len(rewards) != rows {
		return &ModelError{
			Op: "predict",
			Err: fmt.Errorf("predicted %v rewards, expected %v",
				len(rewards), rows),
		}
	}
	return nil
}

// tile returns a matrix with n rows, each a copy of v
func tile(v mat.Vector, n int) *mat.Dense {
	out := mat.NewDense(n, v.Len(), nil)
	row := make([]float64, v.Len())
	for j := range row {
		row[j] = v.AtVec(j)
	}
	for i := 0; i < n; i++ {
		out.SetRow(i, row)
	}
	return out
}

// repeatRows returns a matrix in which each row of m is repeated n
// times in place, so that row i of m becomes rows i*n to (i+1)*n-1
func repeatRows(m *mat.Dense, n int) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r*n, c, nil)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < n; j++ {
			out.SetRow(i*n+j, row)
		}
	}
	return out
}
