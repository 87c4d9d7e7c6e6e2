package series

import "math"

// Kind indicates the value type of a field.
type Kind int

const (
	// KindNumeric is a float64-valued field. Missing positions hold NaN.
	KindNumeric Kind = iota
	// KindText is a string-valued field. Missing positions hold "".
	KindText
)

// String returns a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Field is one named array of values aligned 1:1 with a timeline.
//
// Numeric fields may carry trailing per-sample dimensions described by
// Shape: a field with Shape = [3] holds one 3-vector per timestamp,
// stored flattened row-major in Floats. Text fields are always scalar.
// The leading axis length (number of rows) always equals the owning
// timeline's length.
type Field struct {
	Kind  Kind
	Shape []int // trailing per-sample dimensions; nil or empty = scalar

	Floats []float64 // backing data for KindNumeric, len = rows * Stride()
	Texts  []string  // backing data for KindText, len = rows
}

// Sentinel is the missing-value marker for numeric fields. Positions of
// a union-shaped allocation not covered by either input batch hold this
// value after a merge.
func Sentinel() float64 { return math.NaN() }

// IsSentinel reports whether v is the numeric missing-value marker.
func IsSentinel(v float64) bool { return math.IsNaN(v) }

// NewNumeric creates a numeric field with n rows and the given trailing
// per-sample shape, filled with the sentinel value.
func NewNumeric(shape []int, n int) *Field {
	f := &Field{Kind: KindNumeric, Shape: copyShape(shape)}
	f.Floats = make([]float64, n*f.Stride())
	for i := range f.Floats {
		f.Floats[i] = math.NaN()
	}
	return f
}

// NewText creates a text field with n rows, filled with the empty-string
// sentinel.
func NewText(n int) *Field {
	return &Field{Kind: KindText, Texts: make([]string, n)}
}

// Stride returns the number of stored values per timestamp (the product
// of the trailing dimensions; 1 for scalar and text fields).
func (f *Field) Stride() int {
	if f.Kind == KindText {
		return 1
	}
	s := 1
	for _, d := range f.Shape {
		s *= d
	}
	return s
}

// Rows returns the leading axis length of the field.
func (f *Field) Rows() int {
	if f.Kind == KindText {
		return len(f.Texts)
	}
	return len(f.Floats) / f.Stride()
}

// Clone returns an independent deep copy of the field.
func (f *Field) Clone() *Field {
	out := &Field{Kind: f.Kind, Shape: copyShape(f.Shape)}
	if f.Floats != nil {
		out.Floats = make([]float64, len(f.Floats))
		copy(out.Floats, f.Floats)
	}
	if f.Texts != nil {
		out.Texts = make([]string, len(f.Texts))
		copy(out.Texts, f.Texts)
	}
	return out
}

// Slice returns a view of rows [lo, hi) sharing the backing arrays.
// Containers are never mutated in place once published, so shared views
// are safe for concurrent readers.
func (f *Field) Slice(lo, hi int) *Field {
	out := &Field{Kind: f.Kind, Shape: f.Shape}
	if f.Kind == KindText {
		out.Texts = f.Texts[lo:hi]
		return out
	}
	stride := f.Stride()
	out.Floats = f.Floats[lo*stride : hi*stride]
	return out
}

// CopyRow copies one row from src at srcRow into f at dstRow.
// Both fields must have the same kind and stride.
func (f *Field) CopyRow(dstRow int, src *Field, srcRow int) {
	if f.Kind == KindText {
		f.Texts[dstRow] = src.Texts[srcRow]
		return
	}
	stride := f.Stride()
	copy(f.Floats[dstRow*stride:(dstRow+1)*stride],
		src.Floats[srcRow*stride:(srcRow+1)*stride])
}

// CompatibleWith reports whether two fields can be merged into one
// output: same kind and same trailing per-sample shape. On mismatch it
// returns a short reason suitable for error messages.
func (f *Field) CompatibleWith(other *Field) (string, bool) {
	if f.Kind != other.Kind {
		return "kind " + f.Kind.String() + " vs " + other.Kind.String(), false
	}
	if len(f.Shape) != len(other.Shape) {
		return "trailing shape rank differs", false
	}
	for i := range f.Shape {
		if f.Shape[i] != other.Shape[i] {
			return "trailing shape differs", false
		}
	}
	return "", true
}

// Value returns the scalar value at the given row. For fields with
// trailing dimensions, it returns the first element of the row.
func (f *Field) Value(row int) float64 {
	return f.Floats[row*f.Stride()]
}

func copyShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
