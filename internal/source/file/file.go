// Package file streams NDJSON batch records from a file on disk.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/arcadian-io/seqprep/internal/model"
	"github.com/arcadian-io/seqprep/internal/source"
)

func init() {
	source.Register("file", func() source.Source { return &Source{} })
}

// Source reads batch records from the file named in the source config.
type Source struct{}

// Stream opens cfg.Path and decodes records until EOF. The file is closed
// when the stream drains or the context is cancelled.
func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.BatchRecord, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file source: no input path configured")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}

	inner := source.StreamLines(ctx, f)
	ch := make(chan model.BatchRecord)
	go func() {
		defer close(ch)
		defer f.Close()
		for rec := range inner {
			select {
			case ch <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
