package preprocessor

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arcadian-io/seqprep/internal/nn"
)

// SlotProjection holds one weight matrix and bias per contextual slot and
// applies every slot's own affine transform across the batch in one fused
// pass. Slots are ordered to match the concatenation order of the feature
// specs; the total slot count is the sum of all features' max lengths.
type SlotProjection struct {
	weights []float32 // [slots, inDim, outDim] row-major
	bias    []float32 // [slots, outDim]
	slots   int
	inDim   int
	outDim  int
}

// NewSlotProjection creates per-slot weights drawn from
// Normal(0, sqrt(2/(inDim+outDim))) with zero bias. The fan-scaled std must
// be preserved to match training dynamics when parameters are synced with an
// external optimizer.
func NewSlotProjection(slots, inDim, outDim int, rng *rand.Rand) *SlotProjection {
	std := math.Sqrt(2.0 / float64(inDim+outDim))
	weights := make([]float32, slots*inDim*outDim)
	for i := range weights {
		weights[i] = float32(rng.NormFloat64() * std)
	}
	return &SlotProjection{
		weights: weights,
		bias:    make([]float32, slots*outDim),
		slots:   slots,
		inDim:   inDim,
		outDim:  outDim,
	}
}

// LoadSlotProjection reads trained per-slot weights from a safetensors file:
// contextual.weight [slots, inDim, outDim] and contextual.bias
// [slots, outDim].
func LoadSlotProjection(f *nn.TensorFile) (*SlotProjection, error) {
	weights, shape, err := f.Float32("contextual.weight")
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: contextual.weight: expected 3D tensor, got shape %v", ErrShapeMismatch, shape)
	}
	slots, inDim, outDim := shape[0], shape[1], shape[2]

	bias, biasShape, err := f.Float32("contextual.bias")
	if err != nil {
		return nil, err
	}
	if len(biasShape) != 2 || biasShape[0] != slots || biasShape[1] != outDim {
		return nil, fmt.Errorf("%w: contextual.bias: expected shape [%d %d], got %v",
			ErrShapeMismatch, slots, outDim, biasShape)
	}

	return &SlotProjection{
		weights: weights,
		bias:    bias,
		slots:   slots,
		inDim:   inDim,
		outDim:  outDim,
	}, nil
}

// Slots returns the number of contextual slots.
func (p *SlotProjection) Slots() int { return p.slots }

// InDim returns the per-slot input dimension.
func (p *SlotProjection) InDim() int { return p.inDim }

// OutDim returns the per-slot output dimension.
func (p *SlotProjection) OutDim() int { return p.outDim }

// Apply computes out[s] = in[s] @ weight[s] + bias[s] for every slot
// independently, batched in a single pass. dense is the flat [b, slots*inDim]
// contextual matrix; the result is flat [b*slots, outDim], batch-major, which
// is exactly the left-block layout the jagged concat expects.
func (p *SlotProjection) Apply(dense []float32, b int) []float32 {
	out := make([]float32, b*p.slots*p.outDim)
	for r := 0; r < b; r++ {
		for s := 0; s < p.slots; s++ {
			x := dense[(r*p.slots+s)*p.inDim : (r*p.slots+s+1)*p.inDim]
			w := p.weights[s*p.inDim*p.outDim : (s+1)*p.inDim*p.outDim]
			y := out[(r*p.slots+s)*p.outDim : (r*p.slots+s+1)*p.outDim]
			copy(y, p.bias[s*p.outDim:(s+1)*p.outDim])
			for j, xv := range x {
				row := w[j*p.outDim : (j+1)*p.outDim]
				for k, wv := range row {
					y[k] += xv * wv
				}
			}
		}
	}
	return out
}
