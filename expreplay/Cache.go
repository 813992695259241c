package expreplay

import "fmt"

// cache stores fixed-arity entries of float64 fields in flat row-major
// slices, one slice per field. A cache with positive capacity evicts
// its oldest entry when full; a cache with zero capacity grows without
// bound.
type cache struct {
	widths   []int
	fields   [][]float64
	capacity int

	// next is the position the next entry is written to once a bounded
	// cache is full
	next int
	size int
}

func newCache(capacity int, widths []int) *cache {
	fields := make([][]float64, len(widths))
	for i, w := range widths {
		if capacity > 0 {
			fields[i] = make([]float64, 0, capacity*w)
		}
	}

	return &cache{
		widths:   widths,
		fields:   fields,
		capacity: capacity,
	}
}

// add copies the argument fields into the cache
func (c *cache) add(op string, values ...[]float64) error {
	if len(values) != len(c.widths) {
		return invalidArgument(op, "expected %v fields, got %v",
			len(c.widths), len(values))
	}
	for i, v := range values {
		if len(v) != c.widths[i] {
			return invalidArgument(op, "invalid size of field %v "+
				"\n\twant(%v)\n\thave(%v)", i, c.widths[i], len(v))
		}
	}

	if c.capacity > 0 && c.size == c.capacity {
		for i, v := range values {
			w := c.widths[i]
			copy(c.fields[i][c.next*w:(c.next+1)*w], v)
		}
		c.next = (c.next + 1) % c.capacity
		return nil
	}

	for i, v := range values {
		c.fields[i] = append(c.fields[i], v...)
	}
	c.size++
	if c.capacity > 0 {
		c.next = c.size % c.capacity
	}
	return nil
}

// rows returns copies of field entries at the argument positions, one
// flat row-major slice per field
func (c *cache) rows(indices []int) [][]float64 {
	out := make([][]float64, len(c.widths))
	for i, w := range c.widths {
		out[i] = make([]float64, len(indices)*w)
		for j, index := range indices {
			copy(out[i][j*w:(j+1)*w], c.fields[i][index*w:(index+1)*w])
		}
	}
	return out
}

// insertOrder returns the positions of all entries, oldest first
func (c *cache) insertOrder() []int {
	order := make([]int, c.size)
	start := 0
	if c.capacity > 0 && c.size == c.capacity {
		start = c.next
	}
	for i := range order {
		order[i] = (start + i) % c.size
	}
	return order
}

func (c *cache) clear() {
	for i := range c.fields {
		c.fields[i] = c.fields[i][:0]
	}
	c.size = 0
	c.next = 0
}

func (c *cache) String() string {
	return fmt.Sprintf("Size: %v  |  Capacity: %v  |  Fields: %v", c.size,
		c.capacity, c.widths)
}
