package experiment

import (
	"fmt"

	"github.com/samuelfneumann/mpcrl/controller"
	"github.com/samuelfneumann/mpcrl/dynamics"
	"github.com/samuelfneumann/mpcrl/environment/envconfig"
	"github.com/samuelfneumann/mpcrl/policy"
)

// ControllerType names the controller used in MPC segments
type ControllerType string

// Available controller types
const (
	Random       ControllerType = "Random"
	CostMPC      ControllerType = "CostMPC"
	RewardMPC    ControllerType = "RewardMPC"
	PolicyMPC    ControllerType = "PolicyMPC"
	PolicyReward ControllerType = "PolicyRewardMPC"
	TwoStage     ControllerType = "TwoStage"
)

// usesPolicy returns whether the controller type requires a policy
func (c ControllerType) usesPolicy() bool {
	return c == PolicyMPC || c == PolicyReward || c == TwoStage
}

// usesReward returns whether the controller type requires a dynamics
// model which predicts rewards
func (c ControllerType) usesReward() bool {
	return c == RewardMPC || c == PolicyReward || c == TwoStage
}

// Config represents a configuration of an experiment
type Config struct {
	Env            envconfig.Config  `yaml:"env" json:"env"`
	Dynamics       dynamics.Config   `yaml:"dynamics" json:"dynamics"`
	Policy         policy.Config     `yaml:"policy" json:"policy"`
	ControllerType ControllerType    `yaml:"controllerType" json:"controllerType"`
	Controller     controller.Config `yaml:"controller" json:"controller"`

	// Iterations is the number of model refits, each followed by one
	// MPC segment of SegmentLength steps
	Iterations    int `yaml:"iterations" json:"iterations"`
	SegmentLength int `yaml:"segmentLength" json:"segmentLength"`

	// RandomPaths random episodes of at most SegmentLength steps are
	// collected before the model is first fit
	RandomPaths int `yaml:"randomPaths" json:"randomPaths"`

	// Buffer capacities. A model buffer capacity of 0 is unbounded.
	ModelBufferSize int `yaml:"modelBufferSize" json:"modelBufferSize"`
	BCBufferSize    int `yaml:"bcBufferSize" json:"bcBufferSize"`
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: env: %v", err)
	}
	if err := c.Dynamics.Validate(); err != nil {
		return fmt.Errorf("validate: dynamics: %v", err)
	}

	switch c.ControllerType {
	case Random, CostMPC, RewardMPC, PolicyMPC, PolicyReward, TwoStage:
	default:
		return fmt.Errorf("validate: no such controller type %v",
			c.ControllerType)
	}
	if c.ControllerType.usesPolicy() {
		if err := c.Policy.Validate(); err != nil {
			return fmt.Errorf("validate: policy: %v", err)
		}
	}
	if c.ControllerType.usesReward() && !c.Dynamics.PredictReward {
		return fmt.Errorf("validate: controller type %v requires a "+
			"dynamics model which predicts rewards", c.ControllerType)
	}

	if c.Iterations < 0 {
		return fmt.Errorf("validate: iterations must be non-negative, "+
			"got %v", c.Iterations)
	}
	if c.SegmentLength <= 0 {
		return fmt.Errorf("validate: segment length must be positive, "+
			"got %v", c.SegmentLength)
	}
	if c.RandomPaths <= 0 {
		return fmt.Errorf("validate: random paths must be positive, "+
			"got %v", c.RandomPaths)
	}
	if c.ModelBufferSize < 0 {
		return fmt.Errorf("validate: model buffer size must be "+
			"non-negative, got %v", c.ModelBufferSize)
	}
	if c.BCBufferSize <= 0 {
		return fmt.Errorf("validate: behaviour cloning buffer size must "+
			"be positive, got %v", c.BCBufferSize)
	}
	return nil
}
