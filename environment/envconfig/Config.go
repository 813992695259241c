// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are JSON and YAML serializable.
package envconfig

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/mpcrl/environment"
	"github.com/samuelfneumann/mpcrl/environment/gym"
	"github.com/samuelfneumann/mpcrl/environment/pendulum"
	ts "github.com/samuelfneumann/mpcrl/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Pendulum    EnvName = "Pendulum"
	HalfCheetah EnvName = "HalfCheetah"
)

// Config implements a specific configuration of a specific environment.
// EpisodeCutoff is ignored by Gym environments, which use their default
// cutoffs.
type Config struct {
	Environment   EnvName `yaml:"environment" json:"environment"`
	EpisodeCutoff int     `yaml:"episodeCutoff" json:"episodeCutoff"`
	Discount      float64 `yaml:"discount" json:"discount"`
}

// Validate returns an error if the Config cannot create an environment
func (c Config) Validate() error {
	switch c.Environment {
	case Pendulum:
		if c.EpisodeCutoff <= 0 {
			return fmt.Errorf("validate: episode cutoff must be positive, "+
				"got %v", c.EpisodeCutoff)
		}
	case HalfCheetah:
	default:
		return fmt.Errorf("validate: no such environment %v", c.Environment)
	}

	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], got %v",
			c.Discount)
	}
	return nil
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %v", err)
	}

	switch c.Environment {
	case Pendulum:
		return CreatePendulum(c.EpisodeCutoff, seed, c.Discount)

	default:
		e, step, err := gym.New(gym.HalfCheetah, c.Discount, seed)
		if err != nil {
			return nil, ts.TimeStep{}, fmt.Errorf("create: %v", err)
		}
		return e, step, nil
	}
}

// CreatePendulum is a factory for creating the Pendulum environment
// with default physical parameters and the SwingUp task.
func CreatePendulum(cutoff int, seed uint64, discount float64) (
	env.Environment, ts.TimeStep, error) {
	angle := r1.Interval{Min: -pendulum.AngleBound, Max: pendulum.AngleBound}
	speed := r1.Interval{Min: -1.0, Max: 1.0}

	s := env.NewUniformStarter([]r1.Interval{angle, speed}, seed)
	task := pendulum.NewSwingUp(s, cutoff)

	e, step, err := pendulum.New(task, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createPendulum: %v", err)
	}
	return e, step, nil
}
