package series

import "sort"

// Container is the aggregated state of one registered data type: one
// deduplicated, time-ordered timeline plus the fields aligned to it.
//
// A Container is immutable once published: merges build a new Container
// and the registry swaps it in atomically, so readers holding a
// Container always see fully-old or fully-new state, never partial.
type Container struct {
	Key    string
	Times  []int64
	Fields map[string]*Field
}

// NewContainer creates an empty container for the given canonical key.
// Empty containers are seeded at type registration and by Clear.
func NewContainer(key string) *Container {
	return &Container{Key: key, Fields: make(map[string]*Field)}
}

// FromBatch builds a container directly from a batch. The batch's data
// is deep-copied; the caller keeps ownership of the batch.
func FromBatch(key string, b *Batch) *Container {
	c := NewContainer(key)
	c.Times = CopyTimeline(b.Times)
	for name, f := range b.Fields {
		c.Fields[name] = f.Clone()
	}
	return c
}

// Len returns the number of timestamps in the container.
func (c *Container) Len() int { return len(c.Times) }

// Timeline returns the container's timeline and whether the container
// holds any data yet. Freshly registered and cleared containers report
// false until the first successful stash.
func (c *Container) Timeline() ([]int64, bool) {
	if len(c.Times) == 0 {
		return nil, false
	}
	return c.Times, true
}

// Field returns the named field, or false if the container has no such
// field.
func (c *Container) Field(name string) (*Field, bool) {
	f, ok := c.Fields[name]
	return f, ok
}

// FieldNames returns the container's field names in sorted order.
func (c *Container) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TimeRange returns the first and last timestamps in the container.
// Returns (0, 0) if the container is empty.
func (c *Container) TimeRange() (first, last int64) {
	if len(c.Times) == 0 {
		return 0, 0
	}
	return c.Times[0], c.Times[len(c.Times)-1]
}
