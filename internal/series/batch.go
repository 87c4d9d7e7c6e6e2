package series

import (
	"sort"

	"github.com/xtxerr/seriesstore/internal/errors"
)

// Batch is one producer delivery: a timeline plus the fields sampled on
// it. Batches are inputs only; they are validated and copied at the
// stash/merge boundary and never retained by the store.
type Batch struct {
	Times  []int64
	Fields map[string]*Field
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{Fields: make(map[string]*Field)}
}

// Len returns the number of timestamps in the batch.
func (b *Batch) Len() int { return len(b.Times) }

// IsEmpty reports whether the batch carries no timestamps.
func (b *Batch) IsEmpty() bool { return len(b.Times) == 0 }

// FieldNames returns the batch's field names in sorted order.
func (b *Batch) FieldNames() []string {
	names := make([]string, 0, len(b.Fields))
	for name := range b.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the batch invariants: a strictly increasing timeline
// and every field's row count equal to the timeline length. It returns
// the first violation found, carrying the offending field or position.
func (b *Batch) Validate() error {
	if i, ok := AscendingAt(b.Times); !ok {
		return errors.NewNonMonotonic(i, b.Times[i-1], b.Times[i])
	}
	n := len(b.Times)
	for _, name := range b.FieldNames() {
		if rows := b.Fields[name].Rows(); rows != n {
			return errors.NewShapeMismatch(name, rows, n)
		}
	}
	return nil
}

// Clone returns an independent deep copy of the batch.
func (b *Batch) Clone() *Batch {
	out := &Batch{
		Times:  CopyTimeline(b.Times),
		Fields: make(map[string]*Field, len(b.Fields)),
	}
	for name, f := range b.Fields {
		out.Fields[name] = f.Clone()
	}
	return out
}
