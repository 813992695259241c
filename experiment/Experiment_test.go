package experiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/samuelfneumann/mpcrl/controller"
	"github.com/samuelfneumann/mpcrl/dynamics"
	"github.com/samuelfneumann/mpcrl/environment/envconfig"
	"github.com/samuelfneumann/mpcrl/experiment/trackers"
	"github.com/samuelfneumann/mpcrl/initwfn"
	"github.com/samuelfneumann/mpcrl/network"
	"github.com/samuelfneumann/mpcrl/policy"
	"github.com/samuelfneumann/mpcrl/solver"
)

func config(t *testing.T, ct ControllerType, reward bool) Config {
	t.Helper()
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}
	s, err := solver.NewDefaultAdam(0.001, 16)
	if err != nil {
		t.Fatal(err)
	}

	return Config{
		Env: envconfig.Config{
			Environment:   envconfig.Pendulum,
			EpisodeCutoff: 20,
			Discount:      1,
		},
		Dynamics: dynamics.Config{
			Layers:        []int{8},
			Biases:        []bool{true},
			Activations:   []*network.Activation{network.ReLU()},
			InitWFn:       init,
			Solver:        s,
			Iterations:    5,
			PredictReward: reward,
		},
		Policy: policy.Config{
			Layers:      []int{8},
			Biases:      []bool{true},
			Activations: []*network.Activation{network.TanH()},
			InitWFn:     init,
		},
		ControllerType: ct,
		Controller: controller.Config{
			Horizon:           3,
			Paths:             10,
			Gamma:             1,
			FirstStageActions: 3,
			PathsPerAction:    2,
		},
		Iterations:      2,
		SegmentLength:   25,
		RandomPaths:     2,
		ModelBufferSize: 0,
		BCBufferSize:    30,
	}
}

func TestRun(t *testing.T) {
	returns := trackers.NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	e, err := New(config(t, CostMPC, false), 1, zerolog.Nop(), returns)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	// Two random episodes of 20 steps
	if size := e.ModelBuffer().Size(); size != 40 {
		t.Errorf("random transitions:\n\twant(40)\n\thave(%v)", size)
	}

	if err := e.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if size := e.ModelBuffer().Size(); size != 90 {
		t.Errorf("model buffer size:\n\twant(90)\n\thave(%v)", size)
	}
	if size := e.BCBuffer().Size(); size != 30 {
		t.Errorf("bc buffer size:\n\twant(30)\n\thave(%v)", size)
	}

	// 50 controlled steps finish two episodes of 20 steps
	if n := len(returns.Returns()); n != 2 {
		t.Errorf("finished episodes:\n\twant(2)\n\thave(%v)", n)
	}
	if err := e.Save(); err != nil {
		t.Errorf("save: %v", err)
	}
}

func TestRunTwoStage(t *testing.T) {
	e, err := New(config(t, TwoStage, true), 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := e.RunIteration(0); err != nil {
		t.Fatalf("runIteration: %v", err)
	}
	if size := e.BCBuffer().Size(); size != 25 {
		t.Errorf("bc buffer size:\n\twant(25)\n\thave(%v)", size)
	}
}

func TestValidate(t *testing.T) {
	c := config(t, RewardMPC, false)
	if err := c.Validate(); err == nil {
		t.Errorf("reward controller without reward model should be " +
			"invalid")
	}

	c = config(t, "MCTS", false)
	if err := c.Validate(); err == nil {
		t.Errorf("unknown controller type should be invalid")
	}

	c = config(t, PolicyMPC, false)
	c.Policy.Biases = nil
	if err := c.Validate(); err == nil {
		t.Errorf("invalid policy config should be invalid")
	}

	c = config(t, Random, false)
	c.SegmentLength = 0
	if err := c.Validate(); err == nil {
		t.Errorf("zero segment length should be invalid")
	}
}

const yamlConfig = `
env:
  environment: Pendulum
  episodeCutoff: 200
  discount: 1.0
dynamics:
  layers: [32, 32]
  biases: [true, true]
  activations: [relu, relu]
  initWFn:
    type: GlorotU
    config:
      gain: 1.0
  solver:
    type: Adam
    config:
      stepSize: 0.001
      epsilon: 0.00000001
      beta1: 0.9
      beta2: 0.999
      batchSize: 64
  iterations: 60
  predictReward: true
controllerType: RewardMPC
controller:
  horizon: 15
  paths: 1000
  gamma: 0.99
iterations: 10
segmentLength: 200
randomPaths: 10
modelBufferSize: 100000
bcBufferSize: 5000
`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(filename, []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if c.ControllerType != RewardMPC {
		t.Errorf("controller type:\n\twant(%v)\n\thave(%v)", RewardMPC,
			c.ControllerType)
	}
	if c.Controller.Horizon != 15 || c.Controller.Paths != 1000 {
		t.Errorf("controller:\n\twant(%v)\n\thave(%+v)", "{15 1000}",
			c.Controller)
	}
	if c.Dynamics.BatchSize() != 64 {
		t.Errorf("batch size:\n\twant(64)\n\thave(%v)", c.Dynamics.BatchSize())
	}
	if c.Dynamics.InitWFn.Type != initwfn.GlorotU {
		t.Errorf("initWFn:\n\twant(%v)\n\thave(%v)", initwfn.GlorotU,
			c.Dynamics.InitWFn.Type)
	}
	if a := c.Dynamics.Activations[1].String(); a != "relu" {
		t.Errorf("activation:\n\twant(relu)\n\thave(%v)", a)
	}

	// Saved configs can be loaded again
	saved := filepath.Join(dir, "saved.yaml")
	if err := SaveConfig(c, saved); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}
	again, err := LoadConfig(saved)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if again.Controller != c.Controller || again.Env != c.Env {
		t.Errorf("reloaded config:\n\twant(%+v)\n\thave(%+v)", c, again)
	}
}

func TestLoadShippedConfigs(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "configs", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no configuration files found")
	}

	for _, file := range files {
		c, err := LoadConfig(file)
		if err != nil {
			t.Errorf("loadConfig(%v): %v", file, err)
			continue
		}
		if c.Dynamics.BatchSize() <= 0 {
			t.Errorf("%v: batch size:\n\twant(> 0)\n\thave(%v)", file,
				c.Dynamics.BatchSize())
		}
	}
}

func TestLoadConfigDefaultGamma(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	data := strings.Replace(yamlConfig, "  gamma: 0.99\n", "", 1)
	if data == yamlConfig {
		t.Fatal("gamma not removed from configuration")
	}
	if err := os.WriteFile(filename, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Controller.Gamma != controller.DefaultGamma {
		t.Errorf("gamma:\n\twant(%v)\n\thave(%v)", controller.DefaultGamma,
			c.Controller.Gamma)
	}

	// Explicit zero discounts are kept
	data = strings.Replace(yamlConfig, "gamma: 0.99", "gamma: 0", 1)
	if err := os.WriteFile(filename, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if c, err = LoadConfig(filename); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Controller.Gamma != 0 {
		t.Errorf("gamma:\n\twant(0)\n\thave(%v)", c.Controller.Gamma)
	}
}

func TestSeedsDistinct(t *testing.T) {
	s := newSeeds(7)
	all := []uint64{s.env, s.modelBuffer, s.bcBuffer, s.random, s.policy,
		s.controller, s.controller + 1}
	seen := make(map[uint64]bool)
	for _, seed := range all {
		if seen[seed] {
			t.Errorf("seed %v used by more than one component", seed)
		}
		seen[seed] = true
	}
}
