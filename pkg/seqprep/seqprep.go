package seqprep

import (
	"fmt"
	"math/rand"

	"github.com/arcadian-io/seqprep/internal/nn"
	"github.com/arcadian-io/seqprep/internal/preprocessor"
)

// Re-exported preprocessing types; see the internal preprocessor package for
// field documentation.
type (
	// Batch is one forward call's input.
	Batch = preprocessor.Batch
	// Result is the unified jagged sequence a forward call produces.
	Result = preprocessor.Result
	// Payloads carries str-keyed auxiliary tensors.
	Payloads = preprocessor.Payloads
	// FeatureSpec declares one contextual feature.
	FeatureSpec = preprocessor.FeatureSpec
)

// Contract violations surfaced by Forward.
var (
	ErrBadLengths     = preprocessor.ErrBadLengths
	ErrMissingPayload = preprocessor.ErrMissingPayload
	ErrShapeMismatch  = preprocessor.ErrShapeMismatch
)

// Preprocessor transforms raw jagged batches into unified jagged sequences.
// Safe for concurrent Forward calls; parameters are fixed at construction.
type Preprocessor struct {
	inner  preprocessor.InputPreprocessor
	onnx   *nn.ONNXTransform // non-nil when the content transform is ONNX-backed
	outDim int
}

// New creates a Preprocessor mapping inputDim-wide embeddings to
// outputDim-wide ones. Without options the content MLP and slot weights are
// randomly initialized and there are no contextual features.
func New(inputDim, outputDim int, opts ...Option) (*Preprocessor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.passthrough {
		return &Preprocessor{
			inner:  preprocessor.NewPassthrough(),
			outDim: inputDim,
		}, nil
	}

	var weights *nn.TensorFile
	if o.weightsPath != "" {
		f, err := nn.OpenTensorFile(o.weightsPath)
		if err != nil {
			return nil, fmt.Errorf("seqprep: %w", err)
		}
		weights = f
	}

	rng := rand.New(rand.NewSource(o.seed))

	var content nn.Transform
	var onnx *nn.ONNXTransform
	switch {
	case o.onnxPath != "":
		t, err := nn.NewONNXTransform(o.onnxPath)
		if err != nil {
			return nil, fmt.Errorf("seqprep: %w", err)
		}
		content, onnx = t, t
	case weights != nil && weights.Has("content_mlp.lin1.weight"):
		m, err := nn.LoadContentMLP(weights)
		if err != nil {
			return nil, fmt.Errorf("seqprep: %w", err)
		}
		content = m
	default:
		content = nn.NewContentMLP(inputDim, o.hiddenDim, outputDim, rng)
	}

	if content.InDim() != inputDim || content.OutDim() != outputDim {
		closeONNX(onnx)
		return nil, fmt.Errorf("seqprep: content transform is %dx%d, want %dx%d",
			content.InDim(), content.OutDim(), inputDim, outputDim)
	}

	var inner preprocessor.InputPreprocessor
	var err error
	if weights != nil && weights.Has("contextual.weight") {
		slots, serr := preprocessor.LoadSlotProjection(weights)
		if serr != nil {
			closeONNX(onnx)
			return nil, fmt.Errorf("seqprep: %w", serr)
		}
		inner, err = preprocessor.NewContextualFromWeights(content, o.features, slots)
	} else {
		inner, err = preprocessor.NewContextual(content, o.features, rng)
	}
	if err != nil {
		closeONNX(onnx)
		return nil, fmt.Errorf("seqprep: %w", err)
	}

	return &Preprocessor{inner: inner, onnx: onnx, outDim: outputDim}, nil
}

func closeONNX(t *nn.ONNXTransform) {
	if t != nil {
		t.Close()
	}
}

// Forward preprocesses one batch.
func (p *Preprocessor) Forward(batch Batch) (Result, error) {
	return p.inner.Forward(batch)
}

// InterleavesTargets reports whether prediction targets are interleaved into
// the emitted sequence. Always false for the variants this package builds.
func (p *Preprocessor) InterleavesTargets() bool {
	return p.inner.InterleavesTargets()
}

// OutDim returns the embedding dimension of emitted sequences.
func (p *Preprocessor) OutDim() int { return p.outDim }

// Close releases resources held by an ONNX-backed content transform. Safe to
// call on any Preprocessor.
func (p *Preprocessor) Close() error {
	if p.onnx != nil {
		return p.onnx.Close()
	}
	return nil
}
