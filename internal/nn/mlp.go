package nn

import (
	"fmt"
	"math/rand"
)

// Transform maps a flat [n, InDim] row-major buffer to [n, OutDim]. It is the
// content-embedding capability the preprocessor composes with: every element
// is visited, none are filtered, and only the last dimension may change.
// Implementations must be safe for concurrent Forward calls as long as their
// parameters are not concurrently written.
type Transform interface {
	Forward(values []float32) ([]float32, error)
	InDim() int
	OutDim() int
}

// DefaultHiddenDim is the hidden width of the content MLP.
const DefaultHiddenDim = 256

// ContentMLP transforms content embeddings through
// Linear → SwishLayerNorm → Linear → LayerNorm.
type ContentMLP struct {
	lin1 *Linear
	act  *SwishLayerNorm
	lin2 *Linear
	out  *LayerNorm

	inDim  int
	outDim int
}

// NewContentMLP builds a randomly initialized content MLP. rng seeds the
// xavier-normal weight draws; pass a fixed-seed source for reproducible runs.
func NewContentMLP(inDim, hiddenDim, outDim int, rng *rand.Rand) *ContentMLP {
	return &ContentMLP{
		lin1:   NewLinear(inDim, hiddenDim, rng),
		act:    NewSwishLayerNorm(hiddenDim),
		lin2:   NewLinear(hiddenDim, outDim, rng),
		out:    NewLayerNorm(outDim),
		inDim:  inDim,
		outDim: outDim,
	}
}

// Forward transforms a flat [n, inDim] buffer into [n, outDim].
func (m *ContentMLP) Forward(values []float32) ([]float32, error) {
	if len(values)%m.inDim != 0 {
		return nil, fmt.Errorf("nn: content buffer size %d not divisible by input dim %d", len(values), m.inDim)
	}
	h := m.lin1.Forward(values)
	h = m.act.Forward(h)
	h = m.lin2.Forward(h)
	return m.out.Forward(h), nil
}

// InDim returns the input embedding dimension.
func (m *ContentMLP) InDim() int { return m.inDim }

// OutDim returns the output embedding dimension.
func (m *ContentMLP) OutDim() int { return m.outDim }
