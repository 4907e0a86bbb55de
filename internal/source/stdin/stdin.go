// Package stdin streams NDJSON batch records from standard input.
package stdin

import (
	"context"
	"os"

	"github.com/arcadian-io/seqprep/internal/model"
	"github.com/arcadian-io/seqprep/internal/source"
)

func init() {
	source.Register("stdin", func() source.Source { return &Source{} })
}

// Source reads batch records from os.Stdin, one JSON object per line.
type Source struct{}

// Stream decodes records until EOF.
func (s *Source) Stream(ctx context.Context, _ source.Config) (<-chan model.BatchRecord, error) {
	return source.StreamLines(ctx, os.Stdin), nil
}
