package jagged

// Concat merges a fixed-width left block with a jagged right block into one
// jagged buffer, per example. The left block has exactly maxLenLeft rows per
// example at a uniform stride (no offsets needed); the right block's rows are
// addressed through offsetsRight. Example i's merged rows are
//
//	left[i*maxLenLeft : (i+1)*maxLenLeft] ++ right[offsetsRight[i] : offsetsRight[i+1]]
//
// laid out back-to-back in example order. Returns the merged flat buffer and
// the merged offsets (per-example lengths grow by maxLenLeft).
//
// Callers that want identity behavior for maxLenLeft == 0 should skip the
// call; Concat itself always allocates and copies.
func Concat[T Scalar](left, right []T, dim, maxLenLeft int, offsetsRight []int) ([]T, []int) {
	b := len(offsetsRight) - 1
	total := b*maxLenLeft + offsetsRight[b]
	out := make([]T, total*dim)
	offsets := make([]int, b+1)

	pos := 0
	for i := 0; i < b; i++ {
		offsets[i] = pos
		copy(out[pos*dim:], left[i*maxLenLeft*dim:(i+1)*maxLenLeft*dim])
		pos += maxLenLeft
		copy(out[pos*dim:], right[offsetsRight[i]*dim:offsetsRight[i+1]*dim])
		pos += offsetsRight[i+1] - offsetsRight[i]
	}
	offsets[b] = pos
	return out, offsets
}
