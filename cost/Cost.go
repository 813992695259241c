// Package cost implements per-step cost functions of environments and
// the batched trajectory cost used to score simulated paths.
package cost

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// StepCost returns the cost of each row of a batch of transitions.
// Row i of states, actions, and nextStates make up the i-th transition.
type StepCost func(states, actions, nextStates *mat.Dense) []float64

// TrajectoryCost returns the total cost of each of N simulated paths.
// Each argument holds one N-row matrix per timestep of the horizon,
// with row i of each matrix belonging to path i.
type TrajectoryCost func(states, actions, nextStates []*mat.Dense) []float64

// Trajectory returns the TrajectoryCost that sums the step cost over
// the horizon of each path
func Trajectory(step StepCost) TrajectoryCost {
	return func(states, actions, nextStates []*mat.Dense) []float64 {
		if len(states) != len(actions) || len(states) != len(nextStates) {
			panic(fmt.Sprintf("trajectory: horizon mismatch (%v, %v, %v)",
				len(states), len(actions), len(nextStates)))
		}
		if len(states) == 0 {
			return nil
		}

		paths, _ := states[0].Dims()
		total := make([]float64, paths)
		for t := range states {
			c := step(states[t], actions[t], nextStates[t])
			for i := range total {
				total[i] += c[i]
			}
		}
		return total
	}
}

// Heading penalty constants of the HalfCheetah cost
const (
	headingPenalty = 10.0
	cheetahDt      = 0.01
)

// Cheetah is the per-step cost of HalfCheetah. Each of the back leg,
// back shin, and front shin angles past its limit costs 10, and
// forward progress of the torso reduces the cost.
//
// States of length 20 carry the torso position at index 17, and
// progress is the change in that position divided by the timestep.
// States of HalfCheetah-v2 (length 17) carry the forward velocity of
// the root at index 8, which is used as progress directly.
func Cheetah(states, _, nextStates *mat.Dense) []float64 {
	rows, cols := states.Dims()
	if cols < 9 {
		panic(fmt.Sprintf("cheetah: states must have at least 9 "+
			"dimensions, got %v", cols))
	}

	costs := make([]float64, rows)
	for i := range costs {
		var c float64
		if states.At(i, 5) >= 0.2 {
			c += headingPenalty
		}
		if states.At(i, 6) >= 0 {
			c += headingPenalty
		}
		if states.At(i, 7) >= 0 {
			c += headingPenalty
		}

		if cols >= 18 {
			c -= (nextStates.At(i, 17) - states.At(i, 17)) / cheetahDt
		} else {
			c -= nextStates.At(i, 8)
		}
		costs[i] = c
	}
	return costs
}

// Pendulum is the per-step cost of the pendulum swing-up task: the
// squared angle from upright plus penalties on angular velocity and
// torque
func Pendulum(states, actions, _ *mat.Dense) []float64 {
	rows, _ := states.Dims()

	costs := make([]float64, rows)
	for i := range costs {
		th := normalizeAngle(states.At(i, 0))
		thdot := states.At(i, 1)
		u := actions.At(i, 0)
		costs[i] = th*th + 0.1*thdot*thdot + 0.001*u*u
	}
	return costs
}

// normalizeAngle wraps an angle into [-π, π)
func normalizeAngle(th float64) float64 {
	th = math.Mod(th+math.Pi, 2*math.Pi)
	if th < 0 {
		th += 2 * math.Pi
	}
	return th - math.Pi
}
