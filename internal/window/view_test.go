package window

import (
	"testing"

	"github.com/xtxerr/seriesstore/internal/series"
)

// fakeSource is an instrumented container source standing in for a
// registry handle.
type fakeSource struct {
	c   *series.Container
	gen uint64
}

func (s *fakeSource) Snapshot() (*series.Container, uint64) { return s.c, s.gen }

// publish swaps in a new container like a registry stash would.
func (s *fakeSource) publish(c *series.Container) {
	s.c = c
	s.gen++
}

func newSource(times []int64, vals []float64) *fakeSource {
	b := series.NewBatch()
	b.Times = times
	b.Fields["v"] = &series.Field{Kind: series.KindNumeric, Floats: vals}
	return &fakeSource{c: series.FromBatch("test", b), gen: 1}
}

func TestView_NoWindowReturnsFull(t *testing.T) {
	src := newSource([]int64{1, 2, 3}, []float64{10, 20, 30})
	v := NewView(src, "v")

	if got := len(v.Timeline()); got != 3 {
		t.Errorf("expected full timeline, got %d entries", got)
	}
	if got := v.Data().Rows(); got != 3 {
		t.Errorf("expected full data, got %d rows", got)
	}
	if v.Clips() != 0 {
		t.Errorf("no window set: expected 0 clips, got %d", v.Clips())
	}
}

func TestView_WindowCorrectness(t *testing.T) {
	times := []int64{10, 20, 30, 40, 50}
	vals := []float64{1, 2, 3, 4, 5}
	src := newSource(times, vals)
	v := NewView(src, "v")

	tests := []struct {
		name       string
		start, end int64
		wantTimes  []int64
		wantVals   []float64
	}{
		{"inclusive bounds", 20, 40, []int64{20, 30, 40}, []float64{2, 3, 4}},
		{"inner", 25, 45, []int64{30, 40}, []float64{3, 4}},
		{"full cover", 0, 100, times, vals},
		{"single", 30, 30, []int64{30}, []float64{3}},
		{"empty intersection", 31, 39, []int64{}, []float64{}},
		{"outside range", 60, 90, []int64{}, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.SetWindow(&Window{Start: tt.start, End: tt.end})

			gotTimes := v.Timeline()
			if len(gotTimes) != len(tt.wantTimes) {
				t.Fatalf("expected %d timestamps, got %d", len(tt.wantTimes), len(gotTimes))
			}
			for i := range tt.wantTimes {
				if gotTimes[i] != tt.wantTimes[i] {
					t.Errorf("times[%d]: expected %d, got %d", i, tt.wantTimes[i], gotTimes[i])
				}
			}

			gotData := v.Data()
			if gotData.Rows() != len(tt.wantVals) {
				t.Fatalf("expected %d rows, got %d", len(tt.wantVals), gotData.Rows())
			}
			for i := range tt.wantVals {
				if gotData.Floats[i] != tt.wantVals[i] {
					t.Errorf("data[%d]: expected %v, got %v", i, tt.wantVals[i], gotData.Floats[i])
				}
			}
		})
	}
}

func TestView_Memoization(t *testing.T) {
	src := newSource([]int64{1, 2, 3, 4}, []float64{10, 20, 30, 40})
	v := NewView(src, "v")

	w := &Window{Start: 2, End: 3}
	v.SetWindow(w)

	first := v.Timeline()
	v.Data()
	v.Timeline()
	v.Data()

	if v.Clips() != 1 {
		t.Errorf("expected exactly 1 clip computation, got %d", v.Clips())
	}

	// Setting the same window again keeps the memoized clip.
	v.SetWindow(&Window{Start: 2, End: 3})
	second := v.Timeline()
	if v.Clips() != 1 {
		t.Errorf("re-setting an identical window should not reclip, got %d clips", v.Clips())
	}
	if len(first) != len(second) {
		t.Error("repeated reads should return equal results")
	}

	// A different window triggers exactly one more clip.
	v.SetWindow(&Window{Start: 1, End: 4})
	v.Data()
	v.Timeline()
	if v.Clips() != 2 {
		t.Errorf("expected 2 clips after window change, got %d", v.Clips())
	}
}

func TestView_ClearWindow(t *testing.T) {
	src := newSource([]int64{1, 2, 3}, []float64{10, 20, 30})
	v := NewView(src, "v")

	v.SetWindow(&Window{Start: 2, End: 2})
	if got := len(v.Timeline()); got != 1 {
		t.Fatalf("expected 1 timestamp in window, got %d", got)
	}

	v.SetWindow(nil)
	if got := len(v.Timeline()); got != 3 {
		t.Errorf("cleared window should return full timeline, got %d", got)
	}
	if got := v.Data().Rows(); got != 3 {
		t.Errorf("cleared window should return full data, got %d rows", got)
	}
}

func TestView_GenerationInvalidatesCache(t *testing.T) {
	src := newSource([]int64{1, 2, 3}, []float64{10, 20, 30})
	v := NewView(src, "v")

	v.SetWindow(&Window{Start: 1, End: 10})
	if got := len(v.Timeline()); got != 3 {
		t.Fatalf("expected 3 timestamps, got %d", got)
	}

	// Publish a grown container, as a merge would.
	b := series.NewBatch()
	b.Times = []int64{1, 2, 3, 4}
	b.Fields["v"] = &series.Field{Kind: series.KindNumeric, Floats: []float64{10, 20, 30, 40}}
	src.publish(series.FromBatch("test", b))

	if got := len(v.Timeline()); got != 4 {
		t.Errorf("view should see the republished container, got %d timestamps", got)
	}
	if v.Clips() != 2 {
		t.Errorf("generation change should trigger exactly one reclip, got %d clips", v.Clips())
	}
}

func TestView_TrailingDimensionsPreserved(t *testing.T) {
	b := series.NewBatch()
	b.Times = []int64{1, 2, 3}
	vec := series.NewNumeric([]int{2}, 3)
	vec.Floats = []float64{1, 2, 3, 4, 5, 6}
	b.Fields["vec"] = vec
	src := &fakeSource{c: series.FromBatch("test", b), gen: 1}

	v := NewView(src, "vec")
	v.SetWindow(&Window{Start: 2, End: 3})

	got := v.Data()
	if got.Stride() != 2 {
		t.Errorf("expected stride 2, got %d", got.Stride())
	}
	if got.Rows() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Rows())
	}
	if got.Floats[0] != 3 || got.Floats[3] != 6 {
		t.Errorf("clipped rows misaligned: %v", got.Floats)
	}
}

func TestView_MissingField(t *testing.T) {
	src := newSource([]int64{1}, []float64{10})
	v := NewView(src, "absent")

	if v.Data() != nil {
		t.Error("missing field should read as nil")
	}
	v.SetWindow(&Window{Start: 0, End: 10})
	if v.Data() != nil {
		t.Error("missing field should read as nil under a window too")
	}
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: 10, End: 20}
	if !w.Contains(10) || !w.Contains(20) || !w.Contains(15) {
		t.Error("bounds are inclusive")
	}
	if w.Contains(9) || w.Contains(21) {
		t.Error("outside timestamps must not match")
	}
}
