package merge

import (
	"math"
	"testing"

	"github.com/xtxerr/seriesstore/internal/errors"
	"github.com/xtxerr/seriesstore/internal/series"
)

func numeric(vals ...float64) *series.Field {
	return &series.Field{Kind: series.KindNumeric, Floats: vals}
}

func fields(name string, f *series.Field) map[string]*series.Field {
	return map[string]*series.Field{name: f}
}

// equalFloats compares element-wise, treating two sentinels as equal.
func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) && math.IsNaN(b[i]) {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalTimes(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMerge_EmptyIncomingIsNoop(t *testing.T) {
	e := New(DefaultOptions())

	res, err := e.Merge([]int64{1, 2}, fields("v", numeric(10, 20)), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("empty incoming batch should yield a nil result, got %+v", res)
	}
}

func TestMerge_EmptyExistingCopiesIncoming(t *testing.T) {
	e := New(DefaultOptions())

	newTimes := []int64{1, 2, 3}
	newV := numeric(10, 20, 30)

	res, err := e.Merge(nil, nil, newTimes, fields("v", newV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalTimes(res.Times, newTimes) {
		t.Errorf("expected timeline %v, got %v", newTimes, res.Times)
	}
	if !equalFloats(res.Fields["v"].Floats, newV.Floats) {
		t.Errorf("expected values %v, got %v", newV.Floats, res.Fields["v"].Floats)
	}

	// The result must be a copy, not a view of the input.
	res.Times[0] = 99
	res.Fields["v"].Floats[0] = 99
	if newTimes[0] != 1 || newV.Floats[0] != 10 {
		t.Error("result shares backing arrays with the incoming batch")
	}
}

func TestMerge_FastPathAppend(t *testing.T) {
	e := New(DefaultOptions())

	res, err := e.Merge(
		[]int64{1, 2}, fields("v", numeric(10, 20)),
		[]int64{3, 4}, fields("v", numeric(30, 40)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalTimes(res.Times, []int64{1, 2, 3, 4}) {
		t.Errorf("expected [1 2 3 4], got %v", res.Times)
	}
	if !equalFloats(res.Fields["v"].Floats, []float64{10, 20, 30, 40}) {
		t.Errorf("expected [10 20 30 40], got %v", res.Fields["v"].Floats)
	}
	if got := e.StatsSnapshot().FastPath; got != 1 {
		t.Errorf("expected 1 fast-path merge, got %d", got)
	}
}

func TestMerge_NewestWins(t *testing.T) {
	e := New(DefaultOptions())

	res, err := e.Merge(
		[]int64{5}, fields("v", numeric(1)),
		[]int64{5}, fields("v", numeric(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalTimes(res.Times, []int64{5}) {
		t.Errorf("expected [5], got %v", res.Times)
	}
	if res.Fields["v"].Floats[0] != 2 {
		t.Errorf("expected incoming value 2 to win, got %v", res.Fields["v"].Floats[0])
	}
}

// The worked scenario: t=4 is contested and the incoming value wins.
func TestMerge_OverlapScenario(t *testing.T) {
	e := New(DefaultOptions())

	res, err := e.Merge(
		[]int64{1, 2, 4}, fields("v", numeric(10, 20, 40)),
		[]int64{3, 4, 5}, fields("v", numeric(30, 41, 50)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalTimes(res.Times, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("expected [1 2 3 4 5], got %v", res.Times)
	}
	if !equalFloats(res.Fields["v"].Floats, []float64{10, 20, 30, 41, 50}) {
		t.Errorf("expected [10 20 30 41 50], got %v", res.Fields["v"].Floats)
	}
}

func TestMerge_DedupCount(t *testing.T) {
	e := New(DefaultOptions())

	// N1=4, N2=4, overlap K=2 -> union length 6
	res, err := e.Merge(
		[]int64{1, 2, 3, 4}, fields("v", numeric(1, 2, 3, 4)),
		[]int64{3, 4, 5, 6}, fields("v", numeric(30, 40, 50, 60)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Times) != 6 {
		t.Errorf("expected union length 6 (N1+N2-K), got %d", len(res.Times))
	}
}

func TestMerge_LengthInvariant(t *testing.T) {
	e := New(DefaultOptions())

	res, err := e.Merge(
		[]int64{1, 3, 5}, map[string]*series.Field{
			"a": numeric(1, 3, 5),
			"b": series.NewNumeric([]int{2}, 3),
		},
		[]int64{2, 3}, fields("c", numeric(20, 30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, f := range res.Fields {
		if f.Rows() != len(res.Times) {
			t.Errorf("field %s: %d rows, timeline %d", name, f.Rows(), len(res.Times))
		}
	}
}

// A field present on only one side must hold the sentinel at every
// position the other side contributed.
func TestMerge_SentinelFill(t *testing.T) {
	e := New(DefaultOptions())

	res, err := e.Merge(
		[]int64{1, 3}, fields("old_only", numeric(1, 3)),
		[]int64{2, 3}, fields("new_only", numeric(20, 30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// union = [1 2 3]
	oldOnly := res.Fields["old_only"].Floats
	if oldOnly[0] != 1 || oldOnly[2] != 3 {
		t.Errorf("old_only values misplaced: %v", oldOnly)
	}
	if !series.IsSentinel(oldOnly[1]) {
		t.Errorf("old_only[1] should be sentinel, got %v", oldOnly[1])
	}

	newOnly := res.Fields["new_only"].Floats
	if newOnly[1] != 20 || newOnly[2] != 30 {
		t.Errorf("new_only values misplaced: %v", newOnly)
	}
	if !series.IsSentinel(newOnly[0]) {
		t.Errorf("new_only[0] should be sentinel, got %v", newOnly[0])
	}
}

func TestMerge_TrailingDimensions(t *testing.T) {
	e := New(DefaultOptions())

	ex := series.NewNumeric([]int{2}, 2)
	ex.Floats = []float64{1, 2, 3, 4} // rows for t=1, t=3
	in := series.NewNumeric([]int{2}, 2)
	in.Floats = []float64{30, 31, 50, 51} // rows for t=3, t=5

	res, err := e.Merge(
		[]int64{1, 3}, fields("vec", ex),
		[]int64{3, 5}, fields("vec", in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{1, 2, 30, 31, 50, 51} // t=3 row overwritten whole
	if !equalFloats(res.Fields["vec"].Floats, want) {
		t.Errorf("expected %v, got %v", want, res.Fields["vec"].Floats)
	}
	if res.Fields["vec"].Stride() != 2 {
		t.Errorf("trailing shape lost: stride=%d", res.Fields["vec"].Stride())
	}
}

func TestMerge_TextFields(t *testing.T) {
	e := New(DefaultOptions())

	ex := &series.Field{Kind: series.KindText, Texts: []string{"a", "b"}}
	in := &series.Field{Kind: series.KindText, Texts: []string{"B", "c"}}

	res, err := e.Merge(
		[]int64{1, 2}, fields("label", ex),
		[]int64{2, 3}, fields("label", in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := res.Fields["label"].Texts
	want := []string{"a", "B", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
			break
		}
	}
}

// Merging two non-overlapping ascending batches sequentially must equal
// merging their straight concatenation once.
func TestMerge_AppendEquivalence(t *testing.T) {
	e := New(DefaultOptions())

	b1Times, b1V := []int64{1, 2}, numeric(10, 20)
	b2Times, b2V := []int64{3, 4}, numeric(30, 40)

	// Sequential
	r1, err := e.Merge(nil, nil, b1Times, fields("v", b1V))
	if err != nil {
		t.Fatalf("merge 1: %v", err)
	}
	r2, err := e.Merge(r1.Times, r1.Fields, b2Times, fields("v", b2V))
	if err != nil {
		t.Fatalf("merge 2: %v", err)
	}

	// One-shot concatenation
	rc, err := e.Merge(nil, nil, []int64{1, 2, 3, 4}, fields("v", numeric(10, 20, 30, 40)))
	if err != nil {
		t.Fatalf("merge concat: %v", err)
	}

	if !equalTimes(r2.Times, rc.Times) {
		t.Errorf("timelines differ: %v vs %v", r2.Times, rc.Times)
	}
	if !equalFloats(r2.Fields["v"].Floats, rc.Fields["v"].Floats) {
		t.Errorf("values differ: %v vs %v", r2.Fields["v"].Floats, rc.Fields["v"].Floats)
	}
}

func TestMerge_RejectsNonMonotonic(t *testing.T) {
	e := New(DefaultOptions())

	_, err := e.Merge(nil, nil, []int64{2, 1}, fields("v", numeric(1, 2)))
	if !errors.Is(err, errors.ErrNonMonotonicTimeline) {
		t.Errorf("expected ErrNonMonotonicTimeline, got %v", err)
	}

	// Duplicate timestamps within one input are also non-monotonic.
	_, err = e.Merge(nil, nil, []int64{1, 1}, fields("v", numeric(1, 2)))
	if !errors.Is(err, errors.ErrNonMonotonicTimeline) {
		t.Errorf("expected ErrNonMonotonicTimeline for duplicates, got %v", err)
	}
}

func TestMerge_RejectsShapeMismatch(t *testing.T) {
	e := New(DefaultOptions())

	_, err := e.Merge(nil, nil, []int64{1, 2, 3}, fields("v", numeric(1, 2)))
	if !errors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestMerge_RejectsFieldConflict(t *testing.T) {
	e := New(DefaultOptions())

	ex := series.NewNumeric([]int{2}, 1)
	in := series.NewNumeric([]int{3}, 1)

	_, err := e.Merge([]int64{1}, fields("vec", ex), []int64{2}, fields("vec", in))
	if !errors.Is(err, errors.ErrFieldConflict) {
		t.Errorf("expected ErrFieldConflict, got %v", err)
	}
}

// The chunked and one-pass scatter paths must produce identical output
// for identical input.
func TestMerge_ChunkedEquivalence(t *testing.T) {
	// Interleaved timelines with overlap, multiple fields, one-sided
	// fields, and trailing dimensions.
	n := 500
	exTimes := make([]int64, n)
	newTimes := make([]int64, n)
	for i := 0; i < n; i++ {
		exTimes[i] = int64(i * 3)      // 0,3,6,...
		newTimes[i] = int64(i*2 + 300) // 300,302,... overlaps multiples of 6
	}

	mk := func(times []int64, scale float64) map[string]*series.Field {
		v := series.NewNumeric(nil, len(times))
		vec := series.NewNumeric([]int{3}, len(times))
		for i := range times {
			v.Floats[i] = scale * float64(times[i])
			for j := 0; j < 3; j++ {
				vec.Floats[i*3+j] = scale*float64(times[i]) + float64(j)
			}
		}
		return map[string]*series.Field{"v": v, "vec": vec}
	}

	exFields := mk(exTimes, 1)
	exFields["old_only"] = series.NewNumeric(nil, n)
	newFields := mk(newTimes, -1)
	newFields["new_only"] = series.NewNumeric(nil, n)

	plain := New(Options{ChunkThreshold: 0}) // chunking disabled
	chunked := New(Options{ChunkThreshold: 10, ChunkSize: 64})

	rp, err := plain.Merge(exTimes, exFields, newTimes, newFields)
	if err != nil {
		t.Fatalf("plain merge: %v", err)
	}
	rc, err := chunked.Merge(exTimes, exFields, newTimes, newFields)
	if err != nil {
		t.Fatalf("chunked merge: %v", err)
	}

	if chunked.StatsSnapshot().ChunkedRuns != 1 {
		t.Fatal("chunked path did not run")
	}
	if !equalTimes(rp.Times, rc.Times) {
		t.Fatal("timelines differ between chunked and one-pass paths")
	}
	for name := range rp.Fields {
		if !equalFloats(rp.Fields[name].Floats, rc.Fields[name].Floats) {
			t.Errorf("field %s differs between chunked and one-pass paths", name)
		}
	}
	if len(rp.Fields) != len(rc.Fields) {
		t.Errorf("field count differs: %d vs %d", len(rp.Fields), len(rc.Fields))
	}
}

// Chunk boundaries falling inside runs of one side must not lose rows.
func TestMerge_ChunkedTinyChunks(t *testing.T) {
	e := New(Options{ChunkThreshold: 1, ChunkSize: 2})

	res, err := e.Merge(
		[]int64{1, 2, 4, 7, 9}, fields("v", numeric(1, 2, 4, 7, 9)),
		[]int64{2, 3, 9, 10}, fields("v", numeric(-2, -3, -9, -10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantTimes := []int64{1, 2, 3, 4, 7, 9, 10}
	wantVals := []float64{1, -2, -3, 4, 7, -9, -10}
	if !equalTimes(res.Times, wantTimes) {
		t.Errorf("expected %v, got %v", wantTimes, res.Times)
	}
	if !equalFloats(res.Fields["v"].Floats, wantVals) {
		t.Errorf("expected %v, got %v", wantVals, res.Fields["v"].Floats)
	}
}

// Merge must not mutate its inputs.
func TestMerge_InputsUntouched(t *testing.T) {
	e := New(DefaultOptions())

	exTimes := []int64{1, 4}
	exV := numeric(10, 40)
	newTimes := []int64{4, 5}
	newV := numeric(41, 50)

	if _, err := e.Merge(exTimes, fields("v", exV), newTimes, fields("v", newV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exTimes[0] != 1 || exTimes[1] != 4 || exV.Floats[0] != 10 || exV.Floats[1] != 40 {
		t.Error("existing side mutated")
	}
	if newTimes[0] != 4 || newV.Floats[0] != 41 {
		t.Error("incoming side mutated")
	}
}
