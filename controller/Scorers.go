package controller

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/mpcrl/cost"
)

// scorer scores simulated paths and chooses the index of the best
// one. Ties resolve to the lowest index.
type scorer interface {
	score(t trajectory) []float64
	best(scores []float64) int
}

// costScorer scores paths by a trajectory cost, lower is better
type costScorer struct {
	cost cost.TrajectoryCost
}

func (c costScorer) score(t trajectory) []float64 {
	return c.cost(t.States[:len(t.States)-1], t.Actions, t.States[1:])
}

func (costScorer) best(scores []float64) int {
	return floats.MinIdx(scores)
}

// rewardScorer scores paths by the sum of predicted rewards, discounted
// by gamma^i at step i. Higher is better.
type rewardScorer struct {
	gamma float64
}

func (r rewardScorer) score(t trajectory) []float64 {
	if len(t.Rewards) == 0 {
		return nil
	}
	scores := make([]float64, len(t.Rewards[0]))
	for i, rewards := range t.Rewards {
		floats.AddScaled(scores, math.Pow(r.gamma, float64(i)), rewards)
	}
	return scores
}

func (rewardScorer) best(scores []float64) int {
	return floats.MaxIdx(scores)
}
