package preprocessor

import (
	"math"
	"math/rand"
	"testing"
)

func TestSlotProjectionApplyKnownValues(t *testing.T) {
	// Two slots, inDim 2, outDim 2. Slot 0 doubles, slot 1 swaps and adds
	// its bias.
	p := &SlotProjection{
		weights: []float32{
			2, 0, 0, 2, // slot 0: [in, out] row-major
			0, 1, 1, 0, // slot 1
		},
		bias:   []float32{0, 0, 10, 10},
		slots:  2,
		inDim:  2,
		outDim: 2,
	}

	// One example: slot 0 input [1, 2], slot 1 input [3, 4].
	out := p.Apply([]float32{1, 2, 3, 4}, 1)

	want := []float32{2, 4, 14, 13}
	if len(out) != len(want) {
		t.Fatalf("output length = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestSlotProjectionBatchMajorLayout(t *testing.T) {
	// With identity-per-slot weights the output must be batch-major:
	// example 0's slots first, then example 1's.
	p := &SlotProjection{
		weights: []float32{1, 0, 0, 1, 1, 0, 0, 1},
		bias:    make([]float32, 4),
		slots:   2,
		inDim:   2,
		outDim:  2,
	}

	dense := []float32{
		1, 2, 3, 4, // example 0: slot 0, slot 1
		5, 6, 7, 8, // example 1
	}
	out := p.Apply(dense, 2)
	for i, want := range dense {
		if out[i] != want {
			t.Fatalf("out[%d] = %v, want %v (batch-major layout broken)", i, out[i], want)
		}
	}
}

func TestSlotIndependence(t *testing.T) {
	// Perturbing one slot's weights must not change any other slot's output.
	rng := rand.New(rand.NewSource(11))
	base := NewSlotProjection(3, 4, 4, rng)

	dense := make([]float32, 2*3*4)
	for i := range dense {
		dense[i] = float32(rng.NormFloat64())
	}
	before := base.Apply(dense, 2)

	// Perturb slot 1 only.
	perturbed := &SlotProjection{
		weights: append([]float32(nil), base.weights...),
		bias:    append([]float32(nil), base.bias...),
		slots:   base.slots,
		inDim:   base.inDim,
		outDim:  base.outDim,
	}
	for i := 1 * 4 * 4; i < 2*4*4; i++ {
		perturbed.weights[i] += 100
	}
	after := perturbed.Apply(dense, 2)

	for r := 0; r < 2; r++ {
		for s := 0; s < 3; s++ {
			for k := 0; k < 4; k++ {
				i := (r*3+s)*4 + k
				if s == 1 {
					if before[i] == after[i] {
						t.Errorf("example %d slot 1 output unchanged after perturbation", r)
					}
				} else if before[i] != after[i] {
					t.Errorf("example %d slot %d output changed by perturbing slot 1", r, s)
				}
			}
		}
	}
}

func TestNewSlotProjectionInit(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := NewSlotProjection(4, 16, 8, rng)

	for i, b := range p.bias {
		if b != 0 {
			t.Fatalf("bias[%d] = %v, want 0", i, b)
		}
	}

	var sum, sumSq float64
	for _, w := range p.weights {
		sum += float64(w)
		sumSq += float64(w) * float64(w)
	}
	n := float64(len(p.weights))
	std := math.Sqrt(sumSq/n - (sum/n)*(sum/n))
	want := math.Sqrt(2.0 / float64(16+8))
	if math.Abs(std-want) > 0.2*want {
		t.Errorf("empirical weight std = %v, want ~%v", std, want)
	}
}
