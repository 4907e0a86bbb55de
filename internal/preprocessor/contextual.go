package preprocessor

import (
	"fmt"
	"math/rand"

	"github.com/arcadian-io/seqprep/internal/jagged"
	"github.com/arcadian-io/seqprep/internal/nn"
)

// Contextual is the InputPreprocessor that prepends slot-projected contextual
// features ahead of the content sequence. Parameters (content transform and
// slot weights) are fixed at construction; Forward never mutates them.
type Contextual struct {
	content  nn.Transform
	slots    *SlotProjection
	features []FeatureSpec
	width    int // total contextual slots = sum of feature max lengths
	inDim    int
	outDim   int
}

// NewContextual creates a Contextual preprocessor with randomly initialized
// slot weights. Per-slot input/output dimensions follow the content
// transform's. rng seeds the weight draws.
func NewContextual(content nn.Transform, features []FeatureSpec, rng *rand.Rand) (*Contextual, error) {
	width, err := contextualWidth(features)
	if err != nil {
		return nil, err
	}
	p := &Contextual{
		content:  content,
		features: features,
		width:    width,
		inDim:    content.InDim(),
		outDim:   content.OutDim(),
	}
	if width > 0 {
		p.slots = NewSlotProjection(width, p.inDim, p.outDim, rng)
	}
	return p, nil
}

// NewContextualFromWeights creates a Contextual preprocessor around trained
// slot weights. The projection's slot count and dimensions must agree with
// the feature specs and the content transform.
func NewContextualFromWeights(content nn.Transform, features []FeatureSpec, slots *SlotProjection) (*Contextual, error) {
	width, err := contextualWidth(features)
	if err != nil {
		return nil, err
	}
	if width > 0 {
		if slots == nil {
			return nil, fmt.Errorf("%w: %d contextual slots declared but no slot weights given", ErrShapeMismatch, width)
		}
		if slots.Slots() != width {
			return nil, fmt.Errorf("%w: slot weights cover %d slots, feature specs declare %d",
				ErrShapeMismatch, slots.Slots(), width)
		}
		if slots.InDim() != content.InDim() || slots.OutDim() != content.OutDim() {
			return nil, fmt.Errorf("%w: slot weights are %dx%d, content transform is %dx%d",
				ErrShapeMismatch, slots.InDim(), slots.OutDim(), content.InDim(), content.OutDim())
		}
	}
	return &Contextual{
		content:  content,
		slots:    slots,
		features: features,
		width:    width,
		inDim:    content.InDim(),
		outDim:   content.OutDim(),
	}, nil
}

func contextualWidth(features []FeatureSpec) (int, error) {
	width := 0
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		if f.Name == "" {
			return 0, fmt.Errorf("%w: contextual feature with empty name", ErrShapeMismatch)
		}
		if seen[f.Name] {
			return 0, fmt.Errorf("%w: duplicate contextual feature %q", ErrShapeMismatch, f.Name)
		}
		seen[f.Name] = true
		if f.MaxLength < 0 {
			return 0, fmt.Errorf("%w: feature %q has negative max length %d", ErrShapeMismatch, f.Name, f.MaxLength)
		}
		width += f.MaxLength
	}
	return width, nil
}

// ContextualWidth returns the total number of contextual slots prepended to
// every example.
func (p *Contextual) ContextualWidth() int { return p.width }

// Forward runs the preprocessing state machine: compute offsets, transform
// content embeddings, and — when any contextual slots are declared — pad,
// gate, and project the contextual features, prepend them per example ahead
// of the content block, and recompute the merged bookkeeping.
func (p *Contextual) Forward(batch Batch) (Result, error) {
	if err := validateLengths(batch, p.inDim); err != nil {
		return Result{}, err
	}
	offsets := jagged.Offsets(batch.Lengths)

	embeddings, err := p.content.Forward(batch.Embeddings)
	if err != nil {
		return Result{}, fmt.Errorf("preprocessor: content transform: %w", err)
	}

	out := Result{
		MaxSeqLen:  batch.MaxSeqLen,
		Lengths:    batch.Lengths,
		Offsets:    offsets,
		Timestamps: batch.Timestamps,
		Embeddings: embeddings,
		NumTargets: batch.NumTargets,
		Payloads:   batch.Payloads,
	}
	if p.width == 0 {
		return out, nil
	}

	dense, err := p.contextualDense(batch.Lengths, batch.Payloads)
	if err != nil {
		return Result{}, err
	}
	left := p.slots.Apply(dense, len(batch.Lengths))

	out.Embeddings, _ = jagged.Concat(left, embeddings, p.outDim, p.width, offsets)
	zeros := make([]int64, len(batch.Lengths)*p.width)
	out.Timestamps, _ = jagged.Concat(zeros, batch.Timestamps, 1, p.width, offsets)

	out.MaxSeqLen = batch.MaxSeqLen + p.width
	lengths := make([]int, len(batch.Lengths))
	for i, n := range batch.Lengths {
		lengths[i] = n + p.width
	}
	out.Lengths = lengths
	out.Offsets = jagged.Offsets(lengths)
	return out, nil
}

// InterleavesTargets reports false: this variant never interleaves
// prediction targets into the sequence.
func (p *Contextual) InterleavesTargets() bool { return false }

// contextualDense extracts each declared feature from the payloads, pads it
// to its slot budget, applies the minimum-history gate, and lays the
// flattened results side by side into the [b, width*inDim] dense contextual
// matrix.
func (p *Contextual) contextualDense(lengths []int, payloads Payloads) ([]float32, error) {
	b := len(lengths)
	rowWidth := p.width * p.inDim
	dense := make([]float32, b*rowWidth)

	col := 0
	for _, spec := range p.features {
		values, ok := payloads.Float[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: contextual feature %q", ErrMissingPayload, spec.Name)
		}
		offsetsKey := spec.Name + "_offsets"
		featOffsets, ok := payloads.Int[offsetsKey]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingPayload, offsetsKey)
		}
		if err := validateOffsets(offsetsKey, featOffsets, b); err != nil {
			return nil, err
		}
		if featOffsets[b]*p.inDim != len(values) {
			return nil, fmt.Errorf("%w: feature %q holds %d values, offsets require %d",
				ErrShapeMismatch, spec.Name, len(values), featOffsets[b]*p.inDim)
		}

		padded := jagged.ToPaddedDense(values, p.inDim, featOffsets, spec.MaxLength, 0)
		featWidth := spec.MaxLength * p.inDim
		for i := 0; i < b; i++ {
			row := dense[i*rowWidth+col : i*rowWidth+col+featWidth]
			copy(row, padded[i*featWidth:(i+1)*featWidth])
			if spec.MinHistoryLength > 0 {
				// Multiplicative gate: no history means zero contextual
				// contribution, applied as *0 rather than a select.
				var mask float32
				if lengths[i] >= spec.MinHistoryLength {
					mask = 1
				}
				for k := range row {
					row[k] *= mask
				}
			}
		}
		col += featWidth
	}
	return dense, nil
}
