// Package source defines where raw input batches come from. Sources decode
// NDJSON batch records and hand them to the pipeline as they arrive.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/arcadian-io/seqprep/internal/model"
)

// Source defines the interface all batch sources implement.
type Source interface {
	// Stream sends decoded batch records as they arrive, closing the channel
	// at end of input.
	Stream(ctx context.Context, cfg Config) (<-chan model.BatchRecord, error)
}

// Config holds source-specific settings.
type Config struct {
	Provider string
	Path     string // input path, for file-backed sources
}

// maxLineSize bounds one NDJSON line; embedding buffers make lines large.
const maxLineSize = 64 * 1024 * 1024

// StreamLines decodes NDJSON batch records from r onto a channel. Lines that
// fail to decode are logged and skipped rather than aborting the stream.
// Shared by the stdin and file sources.
func StreamLines(ctx context.Context, r io.Reader) <-chan model.BatchRecord {
	ch := make(chan model.BatchRecord)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var rec model.BatchRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				slog.Warn("skipping undecodable batch record", "error", err)
				continue
			}
			select {
			case ch <- rec:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Error("batch stream read failed", "error", err)
		}
	}()
	return ch
}
