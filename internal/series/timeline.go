package series

// SearchSorted returns the leftmost index at which ts could be inserted
// into tl while keeping it sorted. tl must be sorted ascending.
func SearchSorted(tl []int64, ts int64) int {
	lo, hi := 0, len(tl)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if tl[mid] < ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// ClipBounds returns the half-open index range [lo, hi) of timestamps in
// tl falling within the inclusive window [start, end]. An empty
// intersection yields lo == hi.
func ClipBounds(tl []int64, start, end int64) (lo, hi int) {
	lo = SearchSorted(tl, start)
	hi = SearchSorted(tl, end+1)
	return lo, hi
}

// AscendingAt checks that tl is strictly increasing and returns the index
// of the first violation. Returns (-1, true) for a valid timeline; empty
// and single-element timelines are trivially valid.
func AscendingAt(tl []int64) (int, bool) {
	for i := 1; i < len(tl); i++ {
		if tl[i] <= tl[i-1] {
			return i, false
		}
	}
	return -1, true
}

// CopyTimeline returns an independent copy of tl.
func CopyTimeline(tl []int64) []int64 {
	if tl == nil {
		return nil
	}
	out := make([]int64, len(tl))
	copy(out, tl)
	return out
}
