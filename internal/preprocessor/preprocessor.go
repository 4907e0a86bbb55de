// Package preprocessor prepares per-user jagged event sequences for a
// sequence-transduction model: content embeddings pass through the content
// transform, contextual features are padded, gated, slot-projected, and
// prepended ahead of the content block, and length/offset bookkeeping is
// recomputed for the merged sequence.
//
// Preprocessing is a pure function of its inputs and the current parameter
// values: no I/O, no retries, no partial results. Concurrent Forward calls
// sharing one preprocessor are safe as long as parameters are not written
// concurrently.
package preprocessor

import (
	"errors"
	"fmt"

	"github.com/arcadian-io/seqprep/internal/jagged"
)

// Contract violations surfaced by Forward. All are caller errors; none are
// retried internally.
var (
	// ErrBadLengths reports lengths that don't sum to the flat buffer size,
	// negative lengths, or non-monotonic offsets.
	ErrBadLengths = errors.New("preprocessor: inconsistent sequence lengths")
	// ErrMissingPayload reports a contextual feature or its offsets key
	// absent from the batch payloads.
	ErrMissingPayload = errors.New("preprocessor: missing payload key")
	// ErrShapeMismatch reports dimensions that disagree with the declared
	// feature specs.
	ErrShapeMismatch = errors.New("preprocessor: shape contract violation")
)

// Payloads carries the str-keyed auxiliary tensors that ride along with a
// batch. Feature values live in Float under the feature name; their jagged
// offsets live in Int under name+"_offsets". Entries the preprocessor does
// not consume pass through untouched.
type Payloads struct {
	Float map[string][]float32
	Int   map[string][]int
}

// Batch is one forward call's input: a jagged content sequence plus
// auxiliary payloads. Embeddings are flat [L, D] row-major with
// sum(Lengths) == L; Timestamps share the same jagged layout with one
// value per event.
type Batch struct {
	MaxSeqLen  int
	Lengths    []int
	Timestamps []int64
	Embeddings []float32
	NumTargets []int
	Payloads   Payloads
}

// Result is the unified jagged sequence a forward call produces. Offsets is
// the exclusive prefix sum of Lengths. NumTargets and Payloads are the
// input's, unchanged.
type Result struct {
	MaxSeqLen  int
	Lengths    []int
	Offsets    []int
	Timestamps []int64
	Embeddings []float32
	NumTargets []int
	Payloads   Payloads
}

// InputPreprocessor transforms raw per-example sequences into the unified
// jagged sequence the downstream transduction model consumes. Implementations
// report via InterleavesTargets whether prediction targets are interleaved
// into the sequence they emit.
type InputPreprocessor interface {
	Forward(batch Batch) (Result, error)
	InterleavesTargets() bool
}

// FeatureSpec declares one contextual feature: a fixed slot budget
// (MaxLength) regardless of the actual per-example count, and an optional
// minimum history length below which the feature is zeroed for an example.
type FeatureSpec struct {
	Name             string
	MaxLength        int
	MinHistoryLength int
}

// validateLengths checks the jagged bookkeeping of a batch against the
// expected embedding dimension.
func validateLengths(batch Batch, inDim int) error {
	total := 0
	for i, n := range batch.Lengths {
		if n < 0 {
			return fmt.Errorf("%w: negative length %d at example %d", ErrBadLengths, n, i)
		}
		total += n
	}
	if len(batch.Embeddings) != total*inDim {
		return fmt.Errorf("%w: embeddings hold %d values, lengths require %d",
			ErrBadLengths, len(batch.Embeddings), total*inDim)
	}
	if len(batch.Timestamps) != total {
		return fmt.Errorf("%w: timestamps hold %d values, lengths require %d",
			ErrBadLengths, len(batch.Timestamps), total)
	}
	return nil
}

// validateOffsets checks a payload's own jagged offsets.
func validateOffsets(name string, offsets []int, b int) error {
	if len(offsets) != b+1 {
		return fmt.Errorf("%w: %s has %d offsets, want %d", ErrShapeMismatch, name, len(offsets), b+1)
	}
	if offsets[0] != 0 {
		return fmt.Errorf("%w: %s offsets start at %d", ErrBadLengths, name, offsets[0])
	}
	for i := 0; i < b; i++ {
		if offsets[i+1] < offsets[i] {
			return fmt.Errorf("%w: %s offsets decrease at %d", ErrBadLengths, name, i)
		}
	}
	return nil
}

// Passthrough is the no-op InputPreprocessor variant: it computes offsets
// from lengths and returns everything else verbatim.
type Passthrough struct{}

// NewPassthrough creates a Passthrough preprocessor.
func NewPassthrough() *Passthrough { return &Passthrough{} }

// Forward computes offsets and passes the batch through unchanged.
func (p *Passthrough) Forward(batch Batch) (Result, error) {
	for i, n := range batch.Lengths {
		if n < 0 {
			return Result{}, fmt.Errorf("%w: negative length %d at example %d", ErrBadLengths, n, i)
		}
	}
	return Result{
		MaxSeqLen:  batch.MaxSeqLen,
		Lengths:    batch.Lengths,
		Offsets:    jagged.Offsets(batch.Lengths),
		Timestamps: batch.Timestamps,
		Embeddings: batch.Embeddings,
		NumTargets: batch.NumTargets,
		Payloads:   batch.Payloads,
	}, nil
}

// InterleavesTargets reports false: targets are never interleaved.
func (p *Passthrough) InterleavesTargets() bool { return false }
