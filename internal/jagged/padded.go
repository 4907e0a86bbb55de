package jagged

// ToPaddedDense converts a jagged buffer of dim-wide rows into a dense
// [B, maxLength, dim] layout, flattened row-major. For each example up to
// min(length, maxLength) rows are copied from the flat buffer; positions
// beyond that keep fill, whether the example was shorter than maxLength or
// was truncated. Length metadata is not touched — this is a layout change,
// not a filter.
func ToPaddedDense(values []float32, dim int, offsets []int, maxLength int, fill float32) []float32 {
	b := len(offsets) - 1
	out := make([]float32, b*maxLength*dim)
	if fill != 0 {
		for i := range out {
			out[i] = fill
		}
	}
	for i := 0; i < b; i++ {
		n := offsets[i+1] - offsets[i]
		if n > maxLength {
			n = maxLength
		}
		src := values[offsets[i]*dim : (offsets[i]+n)*dim]
		copy(out[i*maxLength*dim:], src)
	}
	return out
}
