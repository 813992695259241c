// Package controller implements controllers which select actions by
// simulating candidate action sequences through a learned dynamics
// model and acting on the first step of the best one.
package controller

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/dynamics"
)

// Controller selects an action in a given state
type Controller interface {
	SelectAction(state mat.Vector) (*mat.VecDense, error)
}

// ErrInvalidArgument is returned when a controller is constructed with
// an invalid configuration
var ErrInvalidArgument = errors.New("invalid argument")

// ModelError records an error returned by a dynamics model or policy
// during action selection, or a model output of the wrong shape
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%v: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

func invalidArgument(op, format string, args ...interface{}) error {
	return fmt.Errorf("%v: %w: "+format, append([]interface{}{op,
		ErrInvalidArgument}, args...)...)
}

// DefaultGamma is the discount used when none is configured
const DefaultGamma = 1.0

// Config implements a configuration of a controller. Not all fields
// are used by every controller.
type Config struct {
	Horizon int     `yaml:"horizon" json:"horizon"` // Simulated steps per path
	Paths   int     `yaml:"paths" json:"paths"`     // Candidate paths per action

	// Gamma is the discount of Reward-MPC. Configurations loaded from
	// files default to DefaultGamma, which disables discounting.
	Gamma float64 `yaml:"gamma" json:"gamma"`

	// Explore is the weight of uniform noise blended into deterministic
	// policy actions. If SelfExplore is true, the policy acts
	// stochastically instead.
	Explore     float64 `yaml:"explore" json:"explore"`
	SelfExplore bool    `yaml:"selfExplore" json:"selfExplore"`

	// Two-stage lookahead
	FirstStageActions int  `yaml:"firstStageActions" json:"firstStageActions"`
	PathsPerAction    int  `yaml:"pathsPerAction" json:"pathsPerAction"`
	RandomFirstStage  bool `yaml:"randomFirstStage" json:"randomFirstStage"`
}

// Validate checks the fields shared by all MPC controllers
func (c Config) Validate() error {
	if c.Horizon <= 0 {
		return invalidArgument("validate", "horizon must be positive, "+
			"got %v", c.Horizon)
	}
	if c.Explore < 0 || c.Explore > 1 {
		return invalidArgument("validate", "explore must be in [0, 1], "+
			"got %v", c.Explore)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return invalidArgument("validate", "gamma must be in [0, 1], "+
			"got %v", c.Gamma)
	}
	return nil
}

func (c Config) validateMPC() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Paths <= 0 {
		return invalidArgument("validate", "paths must be positive, got %v",
			c.Paths)
	}
	return nil
}

func (c Config) validateTwoStage() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.FirstStageActions <= 0 {
		return invalidArgument("validate", "first stage actions must be "+
			"positive, got %v", c.FirstStageActions)
	}
	if c.PathsPerAction <= 0 {
		return invalidArgument("validate", "paths per action must be "+
			"positive, got %v", c.PathsPerAction)
	}
	return nil
}

// checkState returns an ErrInvalidArgument error if the model reports
// a state length which state does not have
func checkState(op string, model interface{}, state mat.Vector) error {
	sized, ok := model.(dynamics.Sized)
	if !ok {
		return nil
	}
	if state.Len() != sized.FeatureSize() {
		return invalidArgument(op, "state has length %v, model expects %v",
			state.Len(), sized.FeatureSize())
	}
	return nil
}
