// Package summary computes streaming statistics over container fields.
//
// Summaries are quicklook aggregates for a windowed slice of one numeric
// field: count, sum, min/max, mean, and DDSketch-backed percentiles.
// Sentinel (missing) positions left by merges are skipped.
package summary

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/xtxerr/seriesstore/internal/errors"
	"github.com/xtxerr/seriesstore/internal/series"
	"github.com/xtxerr/seriesstore/internal/window"
)

// DefaultAccuracy is the DDSketch relative accuracy used when the caller
// passes zero (1% error).
const DefaultAccuracy = 0.01

// Result holds the aggregation result for one field slice.
type Result struct {
	Count   int64
	Sum     float64
	Min     float64
	Max     float64
	Mean    float64
	FirstTs int64
	LastTs  int64

	// Percentiles (zero when Count == 0 or the sketch is unavailable)
	P50 float64
	P90 float64
	P95 float64
	P99 float64
}

// Compute aggregates all non-sentinel values of a numeric field aligned
// with times. For fields with trailing per-sample dimensions every
// element contributes. accuracy is the DDSketch relative accuracy; zero
// selects DefaultAccuracy.
func Compute(times []int64, f *series.Field, accuracy float64) (Result, error) {
	if f == nil {
		return Result{}, errors.ErrFieldNotFound
	}
	if f.Kind != series.KindNumeric {
		return Result{}, errors.ErrNotNumeric
	}
	if f.Rows() != len(times) {
		return Result{}, errors.NewShapeMismatch("summary input", f.Rows(), len(times))
	}

	if accuracy <= 0 {
		accuracy = DefaultAccuracy
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		sketch = nil
	}

	res := Result{
		Min: math.MaxFloat64,
		Max: -math.MaxFloat64,
	}

	stride := f.Stride()
	seen := false
	for row := 0; row < len(times); row++ {
		contributed := false
		for j := 0; j < stride; j++ {
			v := f.Floats[row*stride+j]
			if series.IsSentinel(v) {
				continue
			}
			contributed = true
			res.Count++
			res.Sum += v
			if v < res.Min {
				res.Min = v
			}
			if v > res.Max {
				res.Max = v
			}
			if sketch != nil {
				sketch.Add(v)
			}
		}
		if contributed {
			if !seen {
				res.FirstTs = times[row]
				seen = true
			}
			res.LastTs = times[row]
		}
	}

	if res.Count == 0 {
		return Result{}, nil
	}
	res.Mean = res.Sum / float64(res.Count)

	if sketch != nil {
		res.P50, _ = sketch.GetValueAtQuantile(0.50)
		res.P90, _ = sketch.GetValueAtQuantile(0.90)
		res.P95, _ = sketch.GetValueAtQuantile(0.95)
		res.P99, _ = sketch.GetValueAtQuantile(0.99)
	}

	return res, nil
}

// FromView aggregates the slice currently visible through a windowed
// view.
func FromView(v *window.View, accuracy float64) (Result, error) {
	return Compute(v.Timeline(), v.Data(), accuracy)
}
