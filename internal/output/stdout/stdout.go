package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/arcadian-io/seqprep/internal/model"
	"github.com/arcadian-io/seqprep/internal/output"
)

// Output writes JSON-encoded result records to stdout.
type Output struct {
	enc       *json.Encoder
	verbosity output.Verbosity
}

// New creates a stdout Output with verbosity-aware field omission and
// optional pretty-printed JSON.
func New(verbosity output.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, rec model.ResultRecord) error {
	formatted := output.FormatRecord(rec, o.verbosity)
	if err := o.enc.Encode(formatted); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
