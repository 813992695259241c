package expreplay

// Tuple is a buffer of fixed-arity tuples of float64 fields, such as
// (state, action) pairs for behavioural cloning. The buffer has fixed
// capacity and evicts its oldest tuple when full. Sampling draws
// distinct tuples uniformly and is capped at the buffer size.
type Tuple struct {
	*cache
	sampler selector
}

// NewTuple returns a new Tuple buffer with the given capacity. Field i
// of each tuple has length widths[i].
func NewTuple(capacity int, widths []int, seed uint64) (*Tuple, error) {
	if capacity <= 0 {
		return nil, invalidArgument("newTuple", "capacity must be positive, "+
			"got %v", capacity)
	}
	if len(widths) == 0 {
		return nil, invalidArgument("newTuple", "tuples must have at "+
			"least one field")
	}
	w := make([]int, len(widths))
	for i := range widths {
		if widths[i] <= 0 {
			return nil, invalidArgument("newTuple", "field %v has "+
				"non-positive width %v", i, widths[i])
		}
		w[i] = widths[i]
	}

	return &Tuple{
		cache:   newCache(capacity, w),
		sampler: newWithoutReplacementSelector(seed),
	}, nil
}

// Add adds a copy of the tuple with the argument fields
func (t *Tuple) Add(fields ...[]float64) error {
	return t.add("add", fields...)
}

// Sample samples at most k tuples from the buffer, returning one flat
// row-major slice per field
func (t *Tuple) Sample(k int) ([][]float64, error) {
	indices, err := t.sampler.choose(t.size, k)
	if err != nil {
		return nil, err
	}
	return t.rows(indices), nil
}

// Snapshot returns all tuples in the buffer, oldest first
func (t *Tuple) Snapshot() [][]float64 {
	return t.rows(t.insertOrder())
}

// Size returns the number of tuples in the buffer
func (t *Tuple) Size() int {
	return t.size
}

// Capacity returns the maximum number of tuples in the buffer
func (t *Tuple) Capacity() int {
	return t.capacity
}

// Widths returns the lengths of the tuple fields
func (t *Tuple) Widths() []int {
	w := make([]int, len(t.widths))
	copy(w, t.widths)
	return w
}

// Clear removes all tuples from the buffer
func (t *Tuple) Clear() {
	t.clear()
}
