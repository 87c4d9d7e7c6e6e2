package merge

import (
	"sort"

	"github.com/xtxerr/seriesstore/internal/series"
)

// unionTimelines performs a linear two-pointer merge of two sorted
// timelines, producing the union of unique timestamps in order. A
// timestamp present on both sides appears once.
func unionTimelines(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// indicesInto returns, for every timestamp in times, its position in the
// union timeline. Every input timestamp is present in the union, so the
// binary search always lands on an exact match.
func indicesInto(union, times []int64, buf []int) []int {
	buf = buf[:0]
	for _, ts := range times {
		buf = append(buf, series.SearchSorted(union, ts))
	}
	return buf
}

// scatterAll fills res.Fields in one pass: per-field sentinel-filled
// allocation, existing values scattered first, incoming values scattered
// after so that contested positions hold the incoming value.
func scatterAll(res *Result, exTimes []int64, exFields map[string]*series.Field,
	newTimes []int64, newFields map[string]*series.Field) {

	exIdx := indicesInto(res.Times, exTimes, nil)
	newIdx := indicesInto(res.Times, newTimes, nil)

	for _, name := range unionNames(exFields, newFields) {
		out := allocLike(prototype(name, exFields, newFields), len(res.Times))
		if f, ok := exFields[name]; ok {
			scatterRows(out, f, exIdx, 0, len(exTimes))
		}
		if f, ok := newFields[name]; ok {
			scatterRows(out, f, newIdx, 0, len(newTimes))
		}
		res.Fields[name] = out
	}
}

// scatterChunked is the bounded-memory variant of scatterAll. The union
// is processed in fixed-size sequential chunks; per-chunk insertion
// indices are recomputed against the chunk's slice of the union, so the
// temporary index buffers never exceed the chunk size. Chunks partition
// the union positions, and within each chunk existing values are
// scattered before incoming ones, so the output is identical to the
// one-pass path.
func scatterChunked(res *Result, exTimes []int64, exFields map[string]*series.Field,
	newTimes []int64, newFields map[string]*series.Field, chunkSize int) {

	names := unionNames(exFields, newFields)
	for _, name := range names {
		res.Fields[name] = allocLike(prototype(name, exFields, newFields), len(res.Times))
	}

	idxBuf := make([]int, 0, chunkSize)
	for lo := 0; lo < len(res.Times); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(res.Times) {
			hi = len(res.Times)
		}
		chunk := res.Times[lo:hi]

		for side := 0; side < 2; side++ {
			times, fields := exTimes, exFields
			if side == 1 {
				times, fields = newTimes, newFields
			}

			// Rows of this side whose timestamps land in the chunk.
			rowLo := series.SearchSorted(times, chunk[0])
			rowHi := series.SearchSorted(times, chunk[len(chunk)-1]+1)
			if rowLo == rowHi {
				continue
			}

			idxBuf = idxBuf[:0]
			for r := rowLo; r < rowHi; r++ {
				idxBuf = append(idxBuf, lo+series.SearchSorted(chunk, times[r]))
			}
			for _, name := range names {
				if f, ok := fields[name]; ok {
					scatterRows(res.Fields[name], f, idxBuf, rowLo, rowHi)
				}
			}
		}
	}
}

// scatterRows copies src rows [rowLo, rowHi) into dst at the positions
// given by idx, where idx[r-rowLo] is the destination row for source
// row r.
func scatterRows(dst, src *series.Field, idx []int, rowLo, rowHi int) {
	for r := rowLo; r < rowHi; r++ {
		dst.CopyRow(idx[r-rowLo], src, r)
	}
}

// copyRows copies n contiguous rows from src starting at srcRow into dst
// starting at dstRow.
func copyRows(dst *series.Field, dstRow int, src *series.Field, srcRow, n int) {
	if dst.Kind == series.KindText {
		copy(dst.Texts[dstRow:dstRow+n], src.Texts[srcRow:srcRow+n])
		return
	}
	stride := dst.Stride()
	copy(dst.Floats[dstRow*stride:(dstRow+n)*stride],
		src.Floats[srcRow*stride:(srcRow+n)*stride])
}

// allocLike allocates a sentinel-filled output field shaped like proto
// with n rows.
func allocLike(proto *series.Field, n int) *series.Field {
	if proto.Kind == series.KindText {
		return series.NewText(n)
	}
	return series.NewNumeric(proto.Shape, n)
}

// prototype picks the shape-defining field for an output: the incoming
// side's definition wins when both sides carry the field.
func prototype(name string, exFields, newFields map[string]*series.Field) *series.Field {
	if f, ok := newFields[name]; ok {
		return f
	}
	return exFields[name]
}

// unionNames returns the sorted union of field names from both sides.
func unionNames(a, b map[string]*series.Field) []string {
	names := make([]string, 0, len(a)+len(b))
	for name := range a {
		names = append(names, name)
	}
	for name := range b {
		if _, ok := a[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
