// Package window provides memoized time-range views over container
// fields.
//
// A View binds one field of one container source and caches the clipped
// slice for the currently active window. The clip is recomputed only
// when the window changes or the underlying container is republished
// (its generation changes); repeated reads of an unchanged window are
// free.
package window

import (
	"sync/atomic"

	"github.com/xtxerr/seriesstore/internal/series"
)

// Source supplies the current container state and its generation. The
// registry's Handle implements it.
type Source interface {
	Snapshot() (*series.Container, uint64)
}

// Window is a caller-declared inclusive [Start, End] sub-range of a
// timeline, in Unix milliseconds.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether ts falls within the window.
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// View is a per-field accessor with a memoized clipped slice.
//
// A View belongs to a single consumer and is not safe for concurrent
// use; many Views may reference the same container field concurrently.
type View struct {
	src   Source
	field string

	win *Window // nil = no window, reads return full arrays

	// Memoized clip, valid for (cachedWin, cachedGen).
	hasCache     bool
	cachedWin    Window
	cachedGen    uint64
	clippedTimes []int64
	clippedField *series.Field

	clips atomic.Int64
}

// NewView creates a view over one field of a container source.
func NewView(src Source, field string) *View {
	return &View{src: src, field: field}
}

// FieldName returns the field this view reads.
func (v *View) FieldName() string { return v.field }

// SetWindow activates a window, or clears it when w is nil. Setting the
// currently active window again is a no-op; the memoized clip is kept.
func (v *View) SetWindow(w *Window) {
	if w == nil {
		v.win = nil
		v.hasCache = false
		v.clippedTimes = nil
		v.clippedField = nil
		return
	}
	if v.win != nil && *v.win == *w {
		return
	}
	cp := *w
	v.win = &cp
}

// Window returns the currently active window, or nil if none.
func (v *View) Window() *Window {
	if v.win == nil {
		return nil
	}
	cp := *v.win
	return &cp
}

// Timeline returns the timestamps visible through the view: the clipped
// slice when a window is active, the full timeline otherwise. An empty
// intersection yields a zero-length slice, never an error.
func (v *View) Timeline() []int64 {
	c, gen := v.src.Snapshot()
	if v.win == nil {
		return c.Times
	}
	v.ensure(c, gen)
	return v.clippedTimes
}

// Data returns the field values visible through the view, clipped on the
// leading time axis only; trailing per-sample dimensions are preserved.
// Returns nil if the container does not carry the field.
func (v *View) Data() *series.Field {
	c, gen := v.src.Snapshot()
	f, ok := c.Field(v.field)
	if !ok {
		return nil
	}
	if v.win == nil {
		return f
	}
	v.ensure(c, gen)
	return v.clippedField
}

// Clips returns the number of clip computations performed. Exactly one
// clip occurs per distinct (window, generation) pair regardless of how
// many reads follow.
func (v *View) Clips() int64 { return v.clips.Load() }

// ensure recomputes the memoized clip if the cached one does not match
// the active window and container generation.
func (v *View) ensure(c *series.Container, gen uint64) {
	if v.hasCache && v.cachedGen == gen && v.cachedWin == *v.win {
		return
	}

	lo, hi := series.ClipBounds(c.Times, v.win.Start, v.win.End)
	v.clippedTimes = c.Times[lo:hi]
	if f, ok := c.Field(v.field); ok {
		v.clippedField = f.Slice(lo, hi)
	} else {
		v.clippedField = nil
	}

	v.cachedWin = *v.win
	v.cachedGen = gen
	v.hasCache = true
	v.clips.Add(1)
}
