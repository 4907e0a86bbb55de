package output

import "github.com/arcadian-io/seqprep/internal/model"

// Verbosity controls how much of a result record sinks emit.
type Verbosity int

const (
	// Minimal strips the tensor buffers, keeping only the bookkeeping —
	// useful when a sink only monitors lengths and offsets.
	Minimal Verbosity = iota
	// Full preserves every field.
	Full
)

// ParseVerbosity converts a config string to a Verbosity. Unknown strings
// default to Full.
func ParseVerbosity(s string) Verbosity {
	if s == "minimal" {
		return Minimal
	}
	return Full
}

// FormatRecord returns a copy of the record with fields stripped according
// to verbosity. At Minimal the embedding and timestamp buffers are nil
// (omitted from JSON); at Full all fields are preserved.
func FormatRecord(rec model.ResultRecord, verbosity Verbosity) model.ResultRecord {
	if verbosity == Minimal {
		rec.Embeddings = nil
		rec.Timestamps = nil
	}
	return rec
}
