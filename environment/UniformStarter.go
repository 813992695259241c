package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a box
type UniformStarter struct {
	dist *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter which samples
// dimension i of starting states uniformly from bounds[i]
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	return UniformStarter{
		dist: distmv.NewUniform(bounds, rand.NewSource(seed)),
	}
}

// Start returns a starting state vector
func (u UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(u.dist.Dim(), u.dist.Rand(nil))
}
