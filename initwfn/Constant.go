package initwfn

import G "gorgonia.org/gorgonia"

// GaussianConfig implements a configuration of a weight initializer
// that draws weights from a gaussian distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

func (g GaussianConfig) Type() Type {
	return Gaussian
}

func (g GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

// UniformConfig implements a configuration of a weight initializer
// that draws weights uniformly from [Low, High)
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

func (u UniformConfig) Type() Type {
	return Uniform
}

func (u UniformConfig) Create() G.InitWFn {
	return G.Uniform(u.Low, u.High)
}

// ZeroesConfig implements a configuration of a zero weight initializer
type ZeroesConfig struct{}

// NewZeroes returns a new zeroes weight intializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type {
	return Zeroes
}

func (z ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}

// OnesConfig implements a configuration of a weight initializer that
// initializes all weights to 1.
type OnesConfig struct{}

// NewOnes returns a new ones weight intializer
func NewOnes() (*InitWFn, error) {
	return newInitWFn(OnesConfig{})
}

func (o OnesConfig) Type() Type {
	return Ones
}

func (o OnesConfig) Create() G.InitWFn {
	return G.Ones()
}

// ConstantConfig implements a configuration of a weight initializer
// that initializes all weights to a constant value.
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight intializer
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{value})
}

func (c ConstantConfig) Type() Type {
	return Constant
}

func (c ConstantConfig) Create() G.InitWFn {
	return G.ValuesOf(c.Value)
}
