package nn

import "math"

// LayerNorm normalizes each dim-wide row to zero mean and unit variance,
// then applies a learned scale (gamma) and shift (beta).
type LayerNorm struct {
	gamma []float32
	beta  []float32
	dim   int
	eps   float32
}

// NewLayerNorm creates a LayerNorm with gamma=1, beta=0.
func NewLayerNorm(dim int) *LayerNorm {
	gamma := make([]float32, dim)
	for i := range gamma {
		gamma[i] = 1
	}
	return &LayerNorm{
		gamma: gamma,
		beta:  make([]float32, dim),
		dim:   dim,
		eps:   1e-5,
	}
}

// SetParams replaces the learned scale and shift.
func (l *LayerNorm) SetParams(gamma, beta []float32) {
	copy(l.gamma, gamma)
	copy(l.beta, beta)
}

// Forward normalizes a flat [n, dim] buffer in place and returns it.
func (l *LayerNorm) Forward(in []float32) []float32 {
	n := len(in) / l.dim
	for r := 0; r < n; r++ {
		row := in[r*l.dim : (r+1)*l.dim]

		var mean float32
		for _, v := range row {
			mean += v
		}
		mean /= float32(l.dim)

		var variance float32
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float32(l.dim)

		inv := 1 / float32(math.Sqrt(float64(variance+l.eps)))
		for i, v := range row {
			row[i] = (v-mean)*inv*l.gamma[i] + l.beta[i]
		}
	}
	return in
}

// SwishLayerNorm computes x * sigmoid(LayerNorm(x)) per element — the
// activation used between the content MLP's two linear layers.
type SwishLayerNorm struct {
	norm *LayerNorm
}

// NewSwishLayerNorm creates a SwishLayerNorm over dim-wide rows.
func NewSwishLayerNorm(dim int) *SwishLayerNorm {
	return &SwishLayerNorm{norm: NewLayerNorm(dim)}
}

// SetParams replaces the inner LayerNorm's scale and shift.
func (s *SwishLayerNorm) SetParams(gamma, beta []float32) {
	s.norm.SetParams(gamma, beta)
}

// Forward applies the activation to a flat [n, dim] buffer.
func (s *SwishLayerNorm) Forward(in []float32) []float32 {
	normed := make([]float32, len(in))
	copy(normed, in)
	s.norm.Forward(normed)

	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = v * sigmoid(normed[i])
	}
	return out
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}
