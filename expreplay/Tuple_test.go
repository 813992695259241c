package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestTuple(t *testing.T) {
	b, err := NewTuple(3, []int{2, 1}, 1)
	if err != nil {
		t.Fatalf("newTuple: %v", err)
	}

	for i := 0; i < 4; i++ {
		v := float64(i)
		if err := b.Add([]float64{v, v}, []float64{-v}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if b.Size() != 3 {
		t.Errorf("size:\n\twant(%v)\n\thave(%v)", 3, b.Size())
	}

	snap := b.Snapshot()
	if want := []float64{1, 1, 2, 2, 3, 3}; !floats.Equal(snap[0], want) {
		t.Errorf("snapshot field 0:\n\twant(%v)\n\thave(%v)", want, snap[0])
	}
	if want := []float64{-1, -2, -3}; !floats.Equal(snap[1], want) {
		t.Errorf("snapshot field 1:\n\twant(%v)\n\thave(%v)", want, snap[1])
	}

	sample, err := b.Sample(10)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(sample[0]) != 6 || len(sample[1]) != 3 {
		t.Errorf("sample(10) capped field lengths:\n\twant(%v)\n\thave(%v)",
			[]int{6, 3}, []int{len(sample[0]), len(sample[1])})
	}

	// Field rows stay aligned across fields
	for i := 0; i < 3; i++ {
		if sample[0][2*i] != -sample[1][i] {
			t.Errorf("sample row %v misaligned: %v, %v", i, sample[0][2*i],
				sample[1][i])
		}
	}

	if err := b.Add([]float64{1}, []float64{1}); !IsInvalidArgument(err) {
		t.Errorf("add wrong width:\n\twant(%v)\n\thave(%v)",
			ErrInvalidArgument, err)
	}
	if err := b.Add([]float64{1, 1}); !IsInvalidArgument(err) {
		t.Errorf("add wrong arity:\n\twant(%v)\n\thave(%v)",
			ErrInvalidArgument, err)
	}

	b.Clear()
	if b.Size() != 0 {
		t.Errorf("size after clear:\n\twant(%v)\n\thave(%v)", 0, b.Size())
	}
	sample, err = b.Sample(2)
	if err != nil {
		t.Fatalf("sample after clear: %v", err)
	}
	if len(sample[0]) != 0 {
		t.Errorf("sample after clear:\n\twant(%v)\n\thave(%v)", 0,
			len(sample[0]))
	}
}
