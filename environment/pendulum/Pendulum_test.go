package pendulum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/mpcrl/environment"
)

func newSwingUp(t *testing.T, cutoff int) *Pendulum {
	angle := r1.Interval{Min: -AngleBound, Max: AngleBound}
	speed := r1.Interval{Min: -1.0, Max: 1.0}
	s := environment.NewUniformStarter([]r1.Interval{angle, speed}, 1)

	env, _, err := New(NewSwingUp(s, cutoff), 0.99)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return env
}

func TestNormalizeAngle(t *testing.T) {
	in := []float64{0, math.Pi / 2, 3 * math.Pi / 2, -3 * math.Pi / 2}
	want := []float64{0, math.Pi / 2, -math.Pi / 2, math.Pi / 2}

	for i := range in {
		if have := normalizeAngle(in[i]); math.Abs(have-want[i]) > 1e-9 {
			t.Errorf("normalizeAngle(%v):\n\twant(%v)\n\thave(%v)", in[i],
				want[i], have)
		}
	}
}

func TestStepLimit(t *testing.T) {
	const cutoff = 10
	env := newSwingUp(t, cutoff)

	action := mat.NewVecDense(ActionDims, []float64{1.0})
	for i := 1; i <= cutoff; i++ {
		step, done, err := env.Step(action)
		if err != nil {
			t.Fatalf("step %v: %v", i, err)
		}
		if done != (i == cutoff) {
			t.Errorf("step %v:\n\twant(%v)\n\thave(%v)", i, i == cutoff,
				done)
		}
		if !env.ObservationSpec().Contains(step.Observation) {
			t.Errorf("step %v: observation %v out of bounds", i,
				mat.Formatted(step.Observation.T()))
		}
	}
}

func TestStepWrongDims(t *testing.T) {
	env := newSwingUp(t, 10)
	if _, _, err := env.Step(mat.NewVecDense(2, nil)); err == nil {
		t.Error("step: expected error for 2-dimensional action")
	}
}
