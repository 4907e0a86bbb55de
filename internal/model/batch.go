// Package model holds the wire types batches travel in: NDJSON records on
// the way into a preprocessor and back out of it.
package model

import (
	"github.com/arcadian-io/seqprep/internal/preprocessor"
)

// BatchRecord is the NDJSON form of one raw input batch. Embeddings and
// Timestamps are flat jagged buffers; Payloads carries contextual feature
// values keyed by name with their jagged offsets in PayloadOffsets under the
// same key.
type BatchRecord struct {
	MaxSeqLen      int                  `json:"max_seq_len"`
	Lengths        []int                `json:"lengths"`
	Timestamps     []int64              `json:"timestamps"`
	Embeddings     []float32            `json:"embeddings"`
	NumTargets     []int                `json:"num_targets,omitempty"`
	Payloads       map[string][]float32 `json:"payloads,omitempty"`
	PayloadOffsets map[string][]int     `json:"payload_offsets,omitempty"`
}

// Batch converts the record into the preprocessor's input form, mapping
// PayloadOffsets entries to the "<name>_offsets" payload keys.
func (r BatchRecord) Batch() preprocessor.Batch {
	payloads := preprocessor.Payloads{}
	if len(r.Payloads) > 0 {
		payloads.Float = make(map[string][]float32, len(r.Payloads))
		for name, values := range r.Payloads {
			payloads.Float[name] = values
		}
	}
	if len(r.PayloadOffsets) > 0 {
		payloads.Int = make(map[string][]int, len(r.PayloadOffsets))
		for name, offsets := range r.PayloadOffsets {
			payloads.Int[name+"_offsets"] = offsets
		}
	}
	return preprocessor.Batch{
		MaxSeqLen:  r.MaxSeqLen,
		Lengths:    r.Lengths,
		Timestamps: r.Timestamps,
		Embeddings: r.Embeddings,
		NumTargets: r.NumTargets,
		Payloads:   payloads,
	}
}

// ResultRecord is the NDJSON form of one preprocessed batch: the unified
// jagged sequence with its recomputed bookkeeping. ID tags the record for
// correlation across sinks.
type ResultRecord struct {
	ID         string    `json:"id"`
	MaxSeqLen  int       `json:"max_seq_len"`
	Lengths    []int     `json:"lengths"`
	Offsets    []int     `json:"offsets"`
	Timestamps []int64   `json:"timestamps,omitempty"`
	Embeddings []float32 `json:"embeddings,omitempty"`
	Dim        int       `json:"dim"`
	NumTargets []int     `json:"num_targets,omitempty"`
}

// NewResultRecord builds the wire form of a preprocessor result.
func NewResultRecord(id string, res preprocessor.Result, dim int) ResultRecord {
	return ResultRecord{
		ID:         id,
		MaxSeqLen:  res.MaxSeqLen,
		Lengths:    res.Lengths,
		Offsets:    res.Offsets,
		Timestamps: res.Timestamps,
		Embeddings: res.Embeddings,
		Dim:        dim,
		NumTargets: res.NumTargets,
	}
}
