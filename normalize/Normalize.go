// Package normalize implements the statistics which map between raw
// and normalized states, actions, and state deltas.
//
// Dynamics models operate in normalized space. Controllers and replay
// buffers only ever see raw values.
package normalize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/mpcrl/expreplay"
)

// Epsilon is added to standard deviations before dividing so that
// constant dimensions do not divide by zero
const Epsilon = 1e-10

// Stats holds the per-dimension mean and standard deviation of the
// observations, actions, next observations, and state deltas in a
// buffer. RewardMean and RewardStd are zero if the buffer does not
// store rewards.
type Stats struct {
	ObservationMean, ObservationStd         *mat.VecDense
	ActionMean, ActionStd                   *mat.VecDense
	NextObservationMean, NextObservationStd *mat.VecDense
	DeltaMean, DeltaStd                     *mat.VecDense

	RewardMean, RewardStd float64
}

// Compute returns the statistics of a full snapshot of the buffer.
// Standard deviations are population standard deviations.
func Compute(buffer expreplay.Sampler) (Stats, error) {
	if buffer.Size() == 0 {
		return Stats{}, fmt.Errorf("compute: cannot compute statistics of " +
			"an empty buffer")
	}

	snap := buffer.Snapshot()
	var s Stats
	s.ObservationMean, s.ObservationStd = columnStats(snap.States)
	s.ActionMean, s.ActionStd = columnStats(snap.Actions)
	s.NextObservationMean, s.NextObservationStd = columnStats(snap.NextStates)
	s.DeltaMean, s.DeltaStd = columnStats(snap.Deltas)

	if snap.Rewards != nil {
		mean, variance := stat.PopMeanVariance(snap.Rewards, nil)
		s.RewardMean, s.RewardStd = mean, math.Sqrt(variance)
	}

	return s, nil
}

// columnStats returns the column-wise mean and population standard
// deviation of m
func columnStats(m *mat.Dense) (*mat.VecDense, *mat.VecDense) {
	r, c := m.Dims()
	mean := mat.NewVecDense(c, nil)
	std := mat.NewVecDense(c, nil)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mu, variance := stat.PopMeanVariance(col, nil)
		mean.SetVec(j, mu)
		std.SetVec(j, math.Sqrt(variance))
	}
	return mean, std
}

// Normalize returns (x - mean) / (std + Epsilon) computed row-wise over
// the batch x
func Normalize(x *mat.Dense, mean, std mat.Vector) *mat.Dense {
	r, c := x.Dims()
	checkDims("normalize", c, mean, std)

	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - mean.AtVec(j)) / (std.AtVec(j) + Epsilon)
	}, x)
	return out
}

// Denormalize returns x * std + mean computed row-wise over the batch x
func Denormalize(x *mat.Dense, mean, std mat.Vector) *mat.Dense {
	r, c := x.Dims()
	checkDims("denormalize", c, mean, std)

	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return v*std.AtVec(j) + mean.AtVec(j)
	}, x)
	return out
}

// NormalizeVec normalizes a single vector
func NormalizeVec(x, mean, std mat.Vector) *mat.VecDense {
	checkDims("normalizeVec", x.Len(), mean, std)

	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		out.SetVec(i, (x.AtVec(i)-mean.AtVec(i))/(std.AtVec(i)+Epsilon))
	}
	return out
}

// DenormalizeVec denormalizes a single vector
func DenormalizeVec(x, mean, std mat.Vector) *mat.VecDense {
	checkDims("denormalizeVec", x.Len(), mean, std)

	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		out.SetVec(i, x.AtVec(i)*std.AtVec(i)+mean.AtVec(i))
	}
	return out
}

func checkDims(op string, cols int, mean, std mat.Vector) {
	if mean.Len() != cols || std.Len() != cols {
		panic(fmt.Sprintf("%v: statistics of length (%v, %v) do not match "+
			"%v columns", op, mean.Len(), std.Len(), cols))
	}
}
