// Package expreplay implements replay buffers which store the
// transitions used to fit dynamics models, and the (state, action)
// pairs of expert controllers.
//
// Buffers store value copies of the data added to them. Buffers are
// not safe for concurrent use.
package expreplay

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/mpcrl/timestep"
)

// Batch is a batch of transitions sampled from a buffer. Row i of each
// matrix corresponds to the i-th sampled transition. Deltas holds
// NextStates - States and is computed at sample time. Rewards is nil
// for buffers which do not store rewards. An empty batch has nil
// fields.
type Batch struct {
	States     *mat.Dense
	Actions    *mat.Dense
	Rewards    []float64
	NextStates *mat.Dense
	Deltas     *mat.Dense
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	if b.States == nil {
		return 0
	}
	r, _ := b.States.Dims()
	return r
}

// Sampler is a transition buffer which can be sampled from
type Sampler interface {
	// Sample samples a batch of k transitions
	Sample(k int) (Batch, error)

	// Snapshot returns all stored transitions, oldest first
	Snapshot() Batch

	Size() int
	FeatureSize() int
	ActionSize() int
	WithReward() bool
}

// ExperienceReplayer is a transition buffer which can be added to
type ExperienceReplayer interface {
	Sampler
	Add(t timestep.Transition) error
	Clear()
}

// transitions stores transitions in a cache and samples them with a
// selector
type transitions struct {
	*cache
	sampler selector

	featureSize int
	actionSize  int
	withReward  bool
}

func newTransitions(capacity, featureSize, actionSize int, withReward bool,
	sampler selector) transitions {
	widths := []int{featureSize, actionSize, featureSize}
	if withReward {
		widths = append(widths, 1)
	}

	return transitions{
		cache:       newCache(capacity, widths),
		sampler:     sampler,
		featureSize: featureSize,
		actionSize:  actionSize,
		withReward:  withReward,
	}
}

// Add adds a copy of a transition to the buffer
func (t *transitions) Add(tr timestep.Transition) error {
	if tr.State == nil || tr.Action == nil || tr.NextState == nil {
		return invalidArgument("add", "transition has nil fields")
	}

	fields := [][]float64{
		vecData(tr.State),
		vecData(tr.Action),
		vecData(tr.NextState),
	}
	if t.withReward {
		fields = append(fields, []float64{tr.Reward})
	}

	return t.add("add", fields...)
}

// Sample samples a batch of k transitions from the buffer
func (t *transitions) Sample(k int) (Batch, error) {
	indices, err := t.sampler.choose(t.size, k)
	if err != nil {
		return Batch{}, err
	}
	return t.batch(indices), nil
}

// Snapshot returns all transitions in the buffer, oldest first
func (t *transitions) Snapshot() Batch {
	return t.batch(t.insertOrder())
}

// Size returns the number of transitions in the buffer
func (t *transitions) Size() int {
	return t.size
}

// Clear removes all transitions from the buffer
func (t *transitions) Clear() {
	t.clear()
}

// FeatureSize returns the length of states in the buffer
func (t *transitions) FeatureSize() int {
	return t.featureSize
}

// ActionSize returns the length of actions in the buffer
func (t *transitions) ActionSize() int {
	return t.actionSize
}

// WithReward returns whether the buffer stores rewards
func (t *transitions) WithReward() bool {
	return t.withReward
}

func (t *transitions) batch(indices []int) Batch {
	n := len(indices)
	if n == 0 {
		return Batch{}
	}

	rows := t.rows(indices)
	states := mat.NewDense(n, t.featureSize, rows[0])
	nextStates := mat.NewDense(n, t.featureSize, rows[2])

	deltas := mat.NewDense(n, t.featureSize, nil)
	deltas.Sub(nextStates, states)

	b := Batch{
		States:     states,
		Actions:    mat.NewDense(n, t.actionSize, rows[1]),
		NextStates: nextStates,
		Deltas:     deltas,
	}
	if t.withReward {
		b.Rewards = rows[3]
	}
	return b
}

// Unbounded is a transition buffer which never evicts transitions.
// Sampling draws transitions uniformly with replacement, and sampling
// more transitions than the buffer holds is an error.
type Unbounded struct {
	transitions
}

// New returns a new Unbounded buffer for states of length featureSize
// and actions of length actionSize. If withReward is true, the buffer
// also stores rewards.
func New(featureSize, actionSize int, withReward bool,
	seed uint64) (*Unbounded, error) {
	if err := validateSizes("new", featureSize, actionSize); err != nil {
		return nil, err
	}

	t := newTransitions(0, featureSize, actionSize, withReward,
		newUniformSelector(seed))
	return &Unbounded{t}, nil
}

// Ring is a transition buffer of fixed capacity. When full, the oldest
// transition is evicted to make room for the newest. Sampling draws
// distinct transitions uniformly and is capped at the buffer size.
type Ring struct {
	transitions
}

// NewRing returns a new Ring buffer holding at most capacity
// transitions
func NewRing(capacity, featureSize, actionSize int, withReward bool,
	seed uint64) (*Ring, error) {
	if capacity <= 0 {
		return nil, invalidArgument("newRing", "capacity must be positive, "+
			"got %v", capacity)
	}
	if err := validateSizes("newRing", featureSize, actionSize); err != nil {
		return nil, err
	}

	t := newTransitions(capacity, featureSize, actionSize, withReward,
		newWithoutReplacementSelector(seed))
	return &Ring{t}, nil
}

// Capacity returns the maximum number of transitions in the buffer
func (r *Ring) Capacity() int {
	return r.capacity
}

func validateSizes(op string, featureSize, actionSize int) error {
	if featureSize <= 0 || actionSize <= 0 {
		return invalidArgument(op, "feature size (%v) and action size (%v) "+
			"must be positive", featureSize, actionSize)
	}
	return nil
}

// vecData returns the elements of v as a slice
func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
