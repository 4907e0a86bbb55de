// Package jagged implements the flat-buffer representation of
// variable-length-per-example sequences: one contiguous value buffer plus
// per-example length and offset metadata, no padding. Example i's rows live
// at values[offsets[i]*dim : offsets[i+1]*dim].
//
// Functions in this package are pure layout transformations. Preconditions
// (non-negative lengths, offsets derived from lengths) are caller contracts;
// validation lives with the callers that cross trust boundaries.
package jagged

// Scalar constrains the element types stored in jagged buffers: float32 for
// embeddings and payload features, int64 for event timestamps.
type Scalar interface {
	~float32 | ~int64
}

// Offsets computes the exclusive prefix sum of per-example lengths. The
// result has len(lengths)+1 entries, starts at 0, and ends at the total
// element count. Recomputed every time lengths change.
func Offsets(lengths []int) []int {
	offsets := make([]int, len(lengths)+1)
	for i, n := range lengths {
		offsets[i+1] = offsets[i] + n
	}
	return offsets
}

// Uniform returns offsets for b examples that all have length n. A padded
// dense [b, n] buffer is exactly a jagged buffer with these offsets.
func Uniform(b, n int) []int {
	offsets := make([]int, b+1)
	for i := 1; i <= b; i++ {
		offsets[i] = i * n
	}
	return offsets
}

// Slice returns example i's rows as a sub-slice of the flat buffer.
func Slice[T Scalar](values []T, dim int, offsets []int, i int) []T {
	return values[offsets[i]*dim : offsets[i+1]*dim]
}
