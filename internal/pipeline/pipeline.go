// Package pipeline connects a batch source, a preprocessor, and an output
// into a streaming processing pipeline.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arcadian-io/seqprep/internal/model"
	"github.com/arcadian-io/seqprep/internal/output"
	"github.com/arcadian-io/seqprep/internal/preprocessor"
	"github.com/arcadian-io/seqprep/internal/source"
)

// Pipeline streams batches from a source through a preprocessor to an output.
type Pipeline struct {
	source source.Source
	pre    preprocessor.InputPreprocessor
	output output.Output
	outDim int
}

// New creates a Pipeline from the given components. outDim is the embedding
// dimension of the preprocessor's results, recorded on every emitted record.
func New(src source.Source, pre preprocessor.InputPreprocessor, out output.Output, outDim int) *Pipeline {
	return &Pipeline{
		source: src,
		pre:    pre,
		output: out,
		outDim: outDim,
	}
}

// Stream processes batches as they arrive, tagging each result with a fresh
// record ID. Blocks until the source drains or the context is cancelled.
// A batch that violates the preprocessing contract aborts the stream: such
// failures indicate upstream data corruption, not transient conditions.
func (p *Pipeline) Stream(ctx context.Context, cfg source.Config) error {
	ch, err := p.source.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-ch:
			if !ok {
				return nil
			}
			res, err := p.pre.Forward(rec.Batch())
			if err != nil {
				return fmt.Errorf("pipeline process: %w", err)
			}
			id := uuid.NewString()
			if err := p.output.Write(ctx, model.NewResultRecord(id, res, p.outDim)); err != nil {
				return fmt.Errorf("pipeline output: %w", err)
			}
			slog.Debug("batch preprocessed",
				"id", id,
				"examples", len(res.Lengths),
				"max_seq_len", res.MaxSeqLen,
			)
		}
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
