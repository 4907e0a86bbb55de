// Package nn holds the small neural-network pieces the preprocessor owns:
// dense linear layers, layer norms, the content embedding MLP, and loading of
// externally trained weights (safetensors or ONNX). All tensors are flat
// row-major []float32 slices.
package nn

import (
	"math"
	"math/rand"
)

// Linear is a dense affine layer: y = W x + b.
type Linear struct {
	weights []float32 // row-major [outDim, inDim]
	bias    []float32 // [outDim]
	inDim   int
	outDim  int
}

// NewLinear creates a layer with xavier-normal weights
// (std = sqrt(2/(inDim+outDim))) and zero bias. The scaling matters for
// training dynamics when parameters are synced with an external optimizer,
// so keep it if touching this.
func NewLinear(inDim, outDim int, rng *rand.Rand) *Linear {
	std := math.Sqrt(2.0 / float64(inDim+outDim))
	weights := make([]float32, outDim*inDim)
	for i := range weights {
		weights[i] = float32(rng.NormFloat64() * std)
	}
	return &Linear{
		weights: weights,
		bias:    make([]float32, outDim),
		inDim:   inDim,
		outDim:  outDim,
	}
}

// SetParams replaces the layer's weights and bias. Slices must already have
// the right sizes; used when loading externally trained parameters.
func (l *Linear) SetParams(weights, bias []float32) {
	copy(l.weights, weights)
	copy(l.bias, bias)
}

// Forward applies the layer to a flat [n, inDim] buffer and returns a flat
// [n, outDim] buffer.
func (l *Linear) Forward(in []float32) []float32 {
	n := len(in) / l.inDim
	out := make([]float32, n*l.outDim)
	for r := 0; r < n; r++ {
		x := in[r*l.inDim : (r+1)*l.inDim]
		y := out[r*l.outDim : (r+1)*l.outDim]
		for i := 0; i < l.outDim; i++ {
			row := l.weights[i*l.inDim : (i+1)*l.inDim]
			sum := l.bias[i]
			for j, w := range row {
				sum += w * x[j]
			}
			y[i] = sum
		}
	}
	return out
}
