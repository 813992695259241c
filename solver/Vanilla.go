package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// VanillaConfig describes a configuration of the vanilla gradient
// descent solver.
type VanillaConfig struct {
	StepSize float64
	Batch    int     `json:"batchSize" yaml:"batchSize"`
	Clip     float64 // <= 0 if no clipping
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	vanilla := VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	}

	return newSolver(Vanilla, vanilla)
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(v.StepSize),
		G.WithBatchSize(float64(v.Batch)),
	}
	if v.Clip > 0 {
		opts = append(opts, G.WithClip(v.Clip))
	}
	return G.NewVanillaSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

// Validate returns an error if the configuration is not usable
func (v VanillaConfig) Validate() error {
	if v.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, got %v",
			v.StepSize)
	}
	if v.Batch <= 0 {
		return fmt.Errorf("validate: batch size must be positive, got %v",
			v.Batch)
	}
	return nil
}

// BatchSize returns the configured batch size
func (v VanillaConfig) BatchSize() int {
	return v.Batch
}
