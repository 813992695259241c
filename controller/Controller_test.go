package controller

import (
	"errors"
	"fmt"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/cost"
)

// fakeModel steps as s' = s + a for one-dimensional states and
// actions. The rewards of each call are taken from rewards, or are
// zero if rewards runs out. All calls are recorded.
type fakeModel struct {
	rewards [][]float64
	actions []*mat.Dense
	rows    []int
	err     error
	badRows bool
}

func (f *fakeModel) Predict(states, actions *mat.Dense) (*mat.Dense, error) {
	next, _, err := f.PredictReward(states, actions)
	return next, err
}

func (f *fakeModel) PredictReward(states, actions *mat.Dense) (*mat.Dense,
	[]float64, error) {
	call := len(f.rows)
	r, _ := states.Dims()
	f.rows = append(f.rows, r)
	f.actions = append(f.actions, mat.DenseCopyOf(actions))

	if f.err != nil {
		return nil, nil, f.err
	}

	next := mat.NewDense(r, 1, nil)
	next.Add(states, actions)
	if f.badRows {
		r++
		next = mat.NewDense(r, 1, nil)
	}

	rewards := make([]float64, r)
	if call < len(f.rewards) {
		copy(rewards, f.rewards[call])
	}
	return next, rewards, nil
}

// fakePolicy returns action i+offset for row i, and records the
// stochasticity of each call
type fakePolicy struct {
	offset     float64
	constant   bool
	stochastic []bool
}

func (f *fakePolicy) Act(states *mat.Dense, stochastic bool) (*mat.Dense,
	[]float64, error) {
	f.stochastic = append(f.stochastic, stochastic)
	r, _ := states.Dims()
	actions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if f.constant {
			actions.Set(i, 0, f.offset)
		} else {
			actions.Set(i, 0, float64(i)+f.offset)
		}
	}
	return actions, make([]float64, r), nil
}

var bounds = []r1.Interval{{Min: -1, Max: 1}}

func firstAction(_, actions, _ *mat.Dense) []float64 {
	return mat.Col(nil, 0, actions)
}

func TestRolloutBatching(t *testing.T) {
	for _, n := range []int{1, 7, 32} {
		for _, h := range []int{1, 3, 10} {
			m := &fakeModel{}
			c, err := NewCostMPC(m, cost.Trajectory(firstAction), bounds,
				Config{Horizon: h, Paths: n}, 1)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.SelectAction(mat.NewVecDense(1, []float64{0})); err != nil {
				t.Fatal(err)
			}

			if len(m.rows) != h {
				t.Errorf("model calls:\n\twant(%v)\n\thave(%v)", h, len(m.rows))
			}
			for _, rows := range m.rows {
				if rows != n {
					t.Errorf("rows per call:\n\twant(%v)\n\thave(%v)", n, rows)
				}
			}
		}
	}
}

func TestRecedingHorizon(t *testing.T) {
	// Cost favours the path with the least final action, so the winner
	// is not the path with the least first action
	var recorded []*mat.Dense
	last := func(_, actions, _ []*mat.Dense) []float64 {
		recorded = actions
		return mat.Col(nil, 0, actions[len(actions)-1])
	}

	m := &fakeModel{}
	c, err := NewCostMPC(m, last, bounds, Config{Horizon: 4, Paths: 50}, 3)
	if err != nil {
		t.Fatal(err)
	}
	action, err := c.SelectAction(mat.NewVecDense(1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}

	best := floats.MinIdx(mat.Col(nil, 0, recorded[len(recorded)-1]))
	if want := recorded[0].At(best, 0); action.AtVec(0) != want {
		t.Errorf("action:\n\twant(%v)\n\thave(%v)", want, action.AtVec(0))
	}

	// The returned action is a copy
	action.SetVec(0, 100)
	if recorded[0].At(best, 0) == 100 {
		t.Errorf("returned action aliases the candidate batch")
	}
}

func TestResampledEachCall(t *testing.T) {
	m := &fakeModel{}
	c, err := NewCostMPC(m, cost.Trajectory(firstAction), bounds,
		Config{Horizon: 1, Paths: 5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	state := mat.NewVecDense(1, []float64{0})
	for i := 0; i < 2; i++ {
		if _, err := c.SelectAction(state); err != nil {
			t.Fatal(err)
		}
	}
	if mat.Equal(m.actions[0], m.actions[1]) {
		t.Errorf("candidates were reused across calls")
	}
}

func TestStableArgminArgmax(t *testing.T) {
	if have := (costScorer{}).best([]float64{3, 1, 1, 2}); have != 1 {
		t.Errorf("argmin:\n\twant(1)\n\thave(%v)", have)
	}
	if have := (rewardScorer{}).best([]float64{2, 5, 5, 1}); have != 1 {
		t.Errorf("argmax:\n\twant(1)\n\thave(%v)", have)
	}
}

func TestRewardAggregation(t *testing.T) {
	tests := []struct {
		gamma   float64
		rewards [][]float64
		want    int
	}{
		{1, [][]float64{{1, 1}, {2, 0}}, 0},
		{1, [][]float64{{1, 1}, {0, 2}}, 1},
		{0.5, [][]float64{{2, 1}, {0, 3}}, 1},
		{0.1, [][]float64{{2, 1}, {0, 9}}, 0},
		{0, [][]float64{{2, 1}, {0, 9}}, 0},
		{1, [][]float64{{1, 1}, {1, 1}}, 0},
	}

	for _, test := range tests {
		m := &fakeModel{rewards: test.rewards}
		c, err := NewRewardMPC(m, bounds, Config{Horizon: 2, Paths: 2,
			Gamma: test.gamma}, 1)
		if err != nil {
			t.Fatal(err)
		}
		action, err := c.SelectAction(mat.NewVecDense(1, []float64{0}))
		if err != nil {
			t.Fatal(err)
		}

		if want := m.actions[0].At(test.want, 0); action.AtVec(0) != want {
			t.Errorf("reward aggregation %v (γ=%v):\n\twant(%v)\n\thave(%v)",
				test.rewards, test.gamma, want, action.AtVec(0))
		}
	}
}

func TestPolicyRewardUndiscounted(t *testing.T) {
	m := &fakeModel{rewards: [][]float64{{1, 0}, {0, 2}}}
	p := &fakePolicy{}
	c, err := NewPolicyRewardMPC(m, p, bounds, Config{Horizon: 2, Paths: 2,
		Gamma: 0.1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	action, err := c.SelectAction(mat.NewVecDense(1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}

	// Undiscounted, path 1 has return 2 > 1
	if want := m.actions[0].At(1, 0); action.AtVec(0) != want {
		t.Errorf("action:\n\twant(%v)\n\thave(%v)", want, action.AtVec(0))
	}
}

func TestPolicyGeneration(t *testing.T) {
	// Deterministic actions are blended with uniform noise
	m := &fakeModel{}
	p := &fakePolicy{offset: 1, constant: true}
	c, err := NewPolicyMPC(m, p, cost.Trajectory(firstAction), bounds,
		Config{Horizon: 3, Paths: 20, Explore: 0.5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SelectAction(mat.NewVecDense(1, []float64{0})); err != nil {
		t.Fatal(err)
	}

	if len(p.stochastic) != 3 {
		t.Errorf("policy calls:\n\twant(3)\n\thave(%v)", len(p.stochastic))
	}
	for _, s := range p.stochastic {
		if s {
			t.Errorf("policy acted stochastically without self exploration")
		}
	}
	for _, actions := range m.actions {
		for _, a := range actions.RawMatrix().Data {
			if a < 0 || a > 1 {
				t.Errorf("blended action %v outside [0, 1]", a)
			}
		}
	}

	// Self exploration uses stochastic policy actions directly
	m = &fakeModel{}
	p = &fakePolicy{offset: 0.25, constant: true}
	c, err = NewPolicyMPC(m, p, cost.Trajectory(firstAction), bounds,
		Config{Horizon: 2, Paths: 4, Explore: 0.5, SelfExplore: true}, 1)
	if err != nil {
		t.Fatal(err)
	}
	action, err := c.SelectAction(mat.NewVecDense(1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}
	if action.AtVec(0) != 0.25 {
		t.Errorf("action:\n\twant(0.25)\n\thave(%v)", action.AtVec(0))
	}
	for _, s := range p.stochastic {
		if !s {
			t.Errorf("policy acted deterministically with self exploration")
		}
	}
}

func TestTwoStage(t *testing.T) {
	// Stage 1 rewards [0.5, 0.2] and stage 2 returns [1, 1] and [2, 2],
	// so candidate 1 scores 2.2 > 1.5
	m := &fakeModel{rewards: [][]float64{{0.5, 0.2}, {1, 1, 2, 2}}}
	p := &fakePolicy{offset: 0.5}
	c, err := NewTwoStage(m, p, bounds, Config{Horizon: 1,
		FirstStageActions: 2, PathsPerAction: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	action, err := c.SelectAction(mat.NewVecDense(1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}

	if want := 1.5; action.AtVec(0) != want {
		t.Errorf("action:\n\twant(%v)\n\thave(%v)", want, action.AtVec(0))
	}
	if want := []int{2, 4}; fmt.Sprint(m.rows) != fmt.Sprint(want) {
		t.Errorf("model calls:\n\twant(%v)\n\thave(%v)", want, m.rows)
	}
	if want := []bool{false, false}; fmt.Sprint(p.stochastic) !=
		fmt.Sprint(want) {
		t.Errorf("policy calls:\n\twant(%v)\n\thave(%v)", want, p.stochastic)
	}
}

func TestTwoStageBatching(t *testing.T) {
	const k, r, h = 3, 4, 5
	m := &fakeModel{}
	p := &fakePolicy{}
	c, err := NewTwoStage(m, p, bounds, Config{Horizon: h,
		FirstStageActions: k, PathsPerAction: r, RandomFirstStage: true}, 1)
	if err != nil {
		t.Fatal(err)
	}
	action, err := c.SelectAction(mat.NewVecDense(1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}

	if len(m.rows) != h+1 {
		t.Fatalf("model calls:\n\twant(%v)\n\thave(%v)", h+1, len(m.rows))
	}
	if m.rows[0] != k {
		t.Errorf("stage 1 rows:\n\twant(%v)\n\thave(%v)", k, m.rows[0])
	}
	for _, rows := range m.rows[1:] {
		if rows != k*r {
			t.Errorf("stage 2 rows:\n\twant(%v)\n\thave(%v)", k*r, rows)
		}
	}

	// Random first actions do not call the policy
	if len(p.stochastic) != h {
		t.Errorf("policy calls:\n\twant(%v)\n\thave(%v)", h, len(p.stochastic))
	}
	if a := action.AtVec(0); a < -1 || a > 1 {
		t.Errorf("random first action %v outside bounds", a)
	}
}

func TestModelErrors(t *testing.T) {
	cause := errors.New("model failure")
	m := &fakeModel{err: cause}
	c, err := NewCostMPC(m, cost.Trajectory(firstAction), bounds,
		Config{Horizon: 3, Paths: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.SelectAction(mat.NewVecDense(1, []float64{0}))
	var merr *ModelError
	if !errors.As(err, &merr) || !errors.Is(err, cause) {
		t.Errorf("expected wrapped model error, got %v", err)
	}
	if len(m.rows) != 1 {
		t.Errorf("calls after failure:\n\twant(1)\n\thave(%v)", len(m.rows))
	}

	// Wrong output shape
	m = &fakeModel{badRows: true}
	two, err := NewTwoStage(m, &fakePolicy{}, bounds, Config{Horizon: 1,
		FirstStageActions: 2, PathsPerAction: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = two.SelectAction(mat.NewVecDense(1, []float64{0}))
	if !errors.As(err, &merr) {
		t.Errorf("expected model error for wrong shape, got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	model := &fakeModel{}
	traj := cost.Trajectory(firstAction)

	configs := []Config{
		{Horizon: 0, Paths: 1},
		{Horizon: 1, Paths: 0},
		{Horizon: -1, Paths: 1},
		{Horizon: 1, Paths: 1, Explore: -0.1},
		{Horizon: 1, Paths: 1, Explore: 1.1},
	}
	for _, conf := range configs {
		_, err := NewPolicyMPC(model, &fakePolicy{}, traj, bounds, conf, 1)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("config %+v: expected ErrInvalidArgument, got %v",
				conf, err)
		}
	}

	twoStage := []Config{
		{Horizon: 1, FirstStageActions: 0, PathsPerAction: 1},
		{Horizon: 1, FirstStageActions: 1, PathsPerAction: 0},
		{Horizon: 0, FirstStageActions: 1, PathsPerAction: 1},
	}
	for _, conf := range twoStage {
		_, err := NewTwoStage(model, &fakePolicy{}, bounds, conf, 1)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("config %+v: expected ErrInvalidArgument, got %v",
				conf, err)
		}
	}

	if _, err := NewCostMPC(model, traj, nil, Config{Horizon: 1, Paths: 1},
		1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for missing bounds, got %v",
			err)
	}
}

func TestRandom(t *testing.T) {
	b := []r1.Interval{{Min: -2, Max: -1}, {Min: 3, Max: 4}}
	c, err := NewRandom(b, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		a, err := c.SelectAction(nil)
		if err != nil {
			t.Fatal(err)
		}
		for j := range b {
			if v := a.AtVec(j); v < b[j].Min || v > b[j].Max {
				t.Errorf("action %v outside %v", v, b[j])
			}
		}
	}
}

// sizedModel is a fakeModel which reports its state and action lengths
type sizedModel struct {
	*fakeModel
}

func (sizedModel) FeatureSize() int { return 1 }
func (sizedModel) ActionSize() int  { return 1 }

func TestStateLength(t *testing.T) {
	m := sizedModel{&fakeModel{}}
	mpc, err := NewRewardMPC(m, bounds, Config{Horizon: 2, Paths: 3,
		Gamma: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	two, err := NewTwoStage(m, &fakePolicy{}, bounds, Config{Horizon: 2,
		FirstStageActions: 2, PathsPerAction: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []Controller{mpc, two} {
		_, err := c.SelectAction(mat.NewVecDense(2, []float64{0, 0}))
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%T: expected ErrInvalidArgument, got %v", c, err)
		}
	}
	if len(m.rows) != 0 {
		t.Errorf("model calls with wrong state length:\n\twant(0)"+
			"\n\thave(%v)", len(m.rows))
	}

	for _, c := range []Controller{mpc, two} {
		if _, err := c.SelectAction(mat.NewVecDense(1, nil)); err != nil {
			t.Errorf("%T: %v", c, err)
		}
	}
}
