// Package output defines where preprocessed batches go. Implementations
// write NDJSON result records to stdout, files, or a trainer ingest endpoint.
package output

import (
	"context"

	"github.com/arcadian-io/seqprep/internal/model"
)

// Output defines the interface for preprocessed-batch destinations.
type Output interface {
	Write(ctx context.Context, rec model.ResultRecord) error
	Close() error
}
