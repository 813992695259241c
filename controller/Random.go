package controller

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// Random selects actions uniformly at random within the action bounds
// and ignores the state
type Random struct {
	dist *distmv.Uniform
}

// NewRandom returns a new Random controller
func NewRandom(bounds []r1.Interval, seed uint64) (*Random, error) {
	if err := validateBounds("newRandom", bounds); err != nil {
		return nil, err
	}
	return &Random{dist: distmv.NewUniform(bounds, rand.NewSource(seed))},
		nil
}

// SelectAction returns a uniform random action
func (r *Random) SelectAction(mat.Vector) (*mat.VecDense, error) {
	return mat.NewVecDense(r.dist.Dim(), r.dist.Rand(nil)), nil
}

func validateBounds(op string, bounds []r1.Interval) error {
	if len(bounds) == 0 {
		return invalidArgument(op, "no action bounds")
	}
	for i, b := range bounds {
		if b.Min > b.Max {
			return invalidArgument(op, "action dimension %v has min %v "+
				"> max %v", i, b.Min, b.Max)
		}
	}
	return nil
}
