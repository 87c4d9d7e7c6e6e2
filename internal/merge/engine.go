// Package merge implements the deduplicating, newest-wins union of two
// time-ordered batches.
//
// Merge is a pure function over its inputs: it never mutates the existing
// or incoming arrays and produces either a complete result or an error,
// never partial output. The registry relies on this to keep a rejected
// stash transactional.
package merge

import (
	"log/slog"
	"sync/atomic"

	"github.com/xtxerr/seriesstore/internal/errors"
	"github.com/xtxerr/seriesstore/internal/logging"
	"github.com/xtxerr/seriesstore/internal/series"
)

// Options configures the merge engine.
type Options struct {
	// ChunkThreshold is the union length above which the scatter phase
	// runs in fixed-size sequential chunks to bound peak temporary
	// memory. Zero or negative disables chunking.
	ChunkThreshold int

	// ChunkSize is the number of union positions processed per chunk on
	// the chunked path.
	ChunkSize int
}

// DefaultOptions returns options suitable for typical batch sizes.
func DefaultOptions() Options {
	return Options{
		ChunkThreshold: 1 << 20,
		ChunkSize:      1 << 16,
	}
}

// Stats holds merge engine statistics.
type Stats struct {
	Merges      atomic.Int64
	FastPath    atomic.Int64
	GeneralPath atomic.Int64
	ChunkedRuns atomic.Int64
	RowsOut     atomic.Int64
	Rejected    atomic.Int64
}

// Engine merges time-ordered batches. It holds no per-merge state and is
// safe for concurrent use.
type Engine struct {
	opts Options
	log  *slog.Logger

	stats Stats
}

// New creates a merge engine with the given options.
func New(opts Options) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	return &Engine{
		opts: opts,
		log:  logging.Component("merge"),
	}
}

// Result is the union of two batches: a deduplicated ascending timeline
// and one output field per field present on either side.
type Result struct {
	Times  []int64
	Fields map[string]*series.Field
}

// Merge combines an existing record with an incoming batch.
//
// Both timelines must be sorted ascending. A nil Result with a nil error
// means the incoming batch was empty and the existing record is
// unchanged. For a timestamp present on both sides the incoming value
// wins; positions covered by only one side hold the other side's values,
// and fields present on only one side hold the sentinel at uncovered
// positions.
func (e *Engine) Merge(exTimes []int64, exFields map[string]*series.Field,
	newTimes []int64, newFields map[string]*series.Field) (*Result, error) {

	if err := validateSide(exTimes, exFields); err != nil {
		e.stats.Rejected.Add(1)
		return nil, errors.Wrap(err, "existing record")
	}
	if err := validateSide(newTimes, newFields); err != nil {
		e.stats.Rejected.Add(1)
		return nil, errors.Wrap(err, "incoming batch")
	}
	if err := validateCompatible(exFields, newFields); err != nil {
		e.stats.Rejected.Add(1)
		return nil, err
	}

	// Empty incoming batch is a no-op, not an error.
	if len(newTimes) == 0 {
		return nil, nil
	}

	e.stats.Merges.Add(1)

	// Nothing stored yet: the result is the incoming batch verbatim.
	if len(exTimes) == 0 {
		res := copyBatch(newTimes, newFields)
		e.stats.RowsOut.Add(int64(len(res.Times)))
		return res, nil
	}

	// Fast path: strictly newer batch, plain concatenation.
	if exTimes[len(exTimes)-1] < newTimes[0] {
		e.stats.FastPath.Add(1)
		res := concat(exTimes, exFields, newTimes, newFields)
		e.stats.RowsOut.Add(int64(len(res.Times)))
		return res, nil
	}

	// General path: suspected overlap.
	e.stats.GeneralPath.Add(1)
	union := unionTimelines(exTimes, newTimes)

	res := &Result{
		Times:  union,
		Fields: make(map[string]*series.Field, len(exFields)+len(newFields)),
	}

	chunked := e.opts.ChunkThreshold > 0 && len(union) > e.opts.ChunkThreshold
	if chunked {
		e.stats.ChunkedRuns.Add(1)
		e.log.Debug("chunked merge",
			"union", len(union), "chunk_size", e.opts.ChunkSize)
		scatterChunked(res, exTimes, exFields, newTimes, newFields, e.opts.ChunkSize)
	} else {
		scatterAll(res, exTimes, exFields, newTimes, newFields)
	}

	e.stats.RowsOut.Add(int64(len(res.Times)))
	return res, nil
}

// MergeBatch merges an incoming batch into a container's state.
func (e *Engine) MergeBatch(c *series.Container, b *series.Batch) (*Result, error) {
	return e.Merge(c.Times, c.Fields, b.Times, b.Fields)
}

// StatsSnapshot returns a copy of the engine counters.
func (e *Engine) StatsSnapshot() StatsSnapshot {
	return StatsSnapshot{
		Merges:      e.stats.Merges.Load(),
		FastPath:    e.stats.FastPath.Load(),
		GeneralPath: e.stats.GeneralPath.Load(),
		ChunkedRuns: e.stats.ChunkedRuns.Load(),
		RowsOut:     e.stats.RowsOut.Load(),
		Rejected:    e.stats.Rejected.Load(),
	}
}

// StatsSnapshot holds a point-in-time copy of engine counters.
type StatsSnapshot struct {
	Merges      int64
	FastPath    int64
	GeneralPath int64
	ChunkedRuns int64
	RowsOut     int64
	Rejected    int64
}

// validateSide checks one side's invariants: ascending timeline and
// field rows equal to the timeline length.
func validateSide(times []int64, fields map[string]*series.Field) error {
	if i, ok := series.AscendingAt(times); !ok {
		return errors.NewNonMonotonic(i, times[i-1], times[i])
	}
	for name, f := range fields {
		if f.Rows() != len(times) {
			return errors.NewShapeMismatch(name, f.Rows(), len(times))
		}
	}
	return nil
}

// validateCompatible checks that fields present on both sides agree on
// kind and trailing shape.
func validateCompatible(exFields, newFields map[string]*series.Field) error {
	for name, nf := range newFields {
		ef, ok := exFields[name]
		if !ok {
			continue
		}
		if reason, ok := ef.CompatibleWith(nf); !ok {
			return errors.NewFieldConflict(name, reason)
		}
	}
	return nil
}

// copyBatch deep-copies a batch into a Result.
func copyBatch(times []int64, fields map[string]*series.Field) *Result {
	res := &Result{
		Times:  series.CopyTimeline(times),
		Fields: make(map[string]*series.Field, len(fields)),
	}
	for name, f := range fields {
		res.Fields[name] = f.Clone()
	}
	return res
}

// concat appends a strictly newer batch to the existing record. Fields
// absent on one side hold the sentinel across that side's rows.
func concat(exTimes []int64, exFields map[string]*series.Field,
	newTimes []int64, newFields map[string]*series.Field) *Result {

	exN, newN := len(exTimes), len(newTimes)
	times := make([]int64, 0, exN+newN)
	times = append(times, exTimes...)
	times = append(times, newTimes...)

	res := &Result{
		Times:  times,
		Fields: make(map[string]*series.Field, len(exFields)+len(newFields)),
	}
	for _, name := range unionNames(exFields, newFields) {
		out := allocLike(prototype(name, exFields, newFields), exN+newN)
		if f, ok := exFields[name]; ok {
			copyRows(out, 0, f, 0, exN)
		}
		if f, ok := newFields[name]; ok {
			copyRows(out, exN, f, 0, newN)
		}
		res.Fields[name] = out
	}
	return res
}
