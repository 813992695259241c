package expreplay

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// selector chooses the indices at which data should be sampled from a
// buffer holding size entries
type selector interface {
	choose(size, k int) ([]int, error)
}

// uniformSelector selects indices independently and uniformly at random
// with replacement. Requesting more indices than the buffer holds is
// an error.
type uniformSelector struct {
	rng *rand.Rand
}

func newUniformSelector(seed uint64) *uniformSelector {
	return &uniformSelector{rng: rand.New(rand.NewSource(seed))}
}

func (u *uniformSelector) choose(size, k int) ([]int, error) {
	if k < 0 {
		return nil, invalidArgument("sample", "cannot sample %v elements", k)
	}
	if k > size {
		return nil, invalidArgument("sample", "cannot sample %v elements "+
			"from buffer of size %v", k, size)
	}

	selected := make([]int, k)
	for i := range selected {
		selected[i] = u.rng.Intn(size)
	}
	return selected, nil
}

// withoutReplacementSelector selects distinct indices uniformly at
// random. Requests for more indices than the buffer holds are capped at
// the buffer size.
type withoutReplacementSelector struct {
	src rand.Source
}

func newWithoutReplacementSelector(seed uint64) *withoutReplacementSelector {
	return &withoutReplacementSelector{src: rand.NewSource(seed)}
}

func (w *withoutReplacementSelector) choose(size, k int) ([]int, error) {
	if k < 0 {
		return nil, invalidArgument("sample", "cannot sample %v elements", k)
	}
	if k > size {
		k = size
	}

	selected := make([]int, k)
	if k > 0 {
		sampleuv.WithoutReplacement(selected, size, w.src)
	}
	return selected, nil
}
