package seqprep

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type tensorSpec struct {
	Shape []int
	Data  []float32
}

// writeTensorFile builds a minimal safetensors file from named float32
// tensors.
func writeTensorFile(t *testing.T, tensors map[string]tensorSpec) string {
	t.Helper()

	type meta struct {
		Dtype       string `json:"dtype"`
		Shape       []int  `json:"shape"`
		DataOffsets [2]int `json:"data_offsets"`
	}
	header := make(map[string]meta, len(tensors))
	var payload []byte
	for name, tensor := range tensors {
		start := len(payload)
		for _, v := range tensor.Data {
			payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(v))
		}
		header[name] = meta{
			Dtype:       "F32",
			Shape:       tensor.Shape,
			DataOffsets: [2]int{start, len(payload)},
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("failed to marshal header: %v", err)
	}

	var buf []byte
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(headerJSON)))
	buf = append(buf, headerJSON...)
	buf = append(buf, payload...)

	path := filepath.Join(t.TempDir(), "weights.safetensors")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write tensor file: %v", err)
	}
	return path
}

func testBatch() Batch {
	return Batch{
		MaxSeqLen:  3,
		Lengths:    []int{2, 3},
		Timestamps: []int64{10, 20, 30, 40, 50},
		Embeddings: []float32{
			1, 2,
			3, 4,
			5, 6,
			7, 8,
			9, 10,
		},
		NumTargets: []int{1, 1},
	}
}

func TestNewDefault(t *testing.T) {
	p, err := New(2, 4, WithSeed(7))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if p.OutDim() != 4 {
		t.Fatalf("OutDim() = %d, want 4", p.OutDim())
	}
	if p.InterleavesTargets() {
		t.Error("InterleavesTargets() = true, want false")
	}

	res, err := p.Forward(testBatch())
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(res.Embeddings) != 5*4 {
		t.Errorf("embeddings hold %d values, want %d", len(res.Embeddings), 5*4)
	}
	if len(res.Offsets) != 3 || res.Offsets[0] != 0 || res.Offsets[2] != 5 {
		t.Errorf("offsets = %v, want [0 2 5]", res.Offsets)
	}
}

func TestNewSeedDeterminism(t *testing.T) {
	a, err := New(2, 4, WithSeed(42))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, err := New(2, 4, WithSeed(42))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ra, err := a.Forward(testBatch())
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	rb, err := b.Forward(testBatch())
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for i := range ra.Embeddings {
		if ra.Embeddings[i] != rb.Embeddings[i] {
			t.Fatalf("embeddings diverge at %d: %v vs %v", i, ra.Embeddings[i], rb.Embeddings[i])
		}
	}
}

func TestNewPassthroughOption(t *testing.T) {
	p, err := New(2, 4, WithPassthrough(), WithFeature("genre", 3, 0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.OutDim() != 2 {
		t.Fatalf("OutDim() = %d, want input dim 2 for passthrough", p.OutDim())
	}

	batch := testBatch()
	res, err := p.Forward(batch)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for i := range batch.Embeddings {
		if res.Embeddings[i] != batch.Embeddings[i] {
			t.Fatalf("embeddings changed at %d", i)
		}
	}
	if res.MaxSeqLen != batch.MaxSeqLen {
		t.Errorf("MaxSeqLen = %d, want %d", res.MaxSeqLen, batch.MaxSeqLen)
	}
}

func TestNewWithFeatureExtendsSequences(t *testing.T) {
	p, err := New(2, 4, WithSeed(1), WithFeature("genre", 2, 0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	batch := testBatch()
	batch.Payloads = Payloads{
		Float: map[string][]float32{"genre": {1, 2, 3, 4, 5, 6}},
		Int:   map[string][]int{"genre_offsets": {0, 1, 3}},
	}

	res, err := p.Forward(batch)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if res.MaxSeqLen != 5 {
		t.Errorf("MaxSeqLen = %d, want 5", res.MaxSeqLen)
	}
	if res.Lengths[0] != 4 || res.Lengths[1] != 5 {
		t.Errorf("lengths = %v, want [4 5]", res.Lengths)
	}
	if len(res.Timestamps) != 9 {
		t.Errorf("timestamps hold %d values, want 9", len(res.Timestamps))
	}
	// Contextual slots carry timestamp zero ahead of each example's events.
	if res.Timestamps[0] != 0 || res.Timestamps[1] != 0 || res.Timestamps[2] != 10 {
		t.Errorf("timestamps start %v, want [0 0 10 ...]", res.Timestamps[:3])
	}
}

func TestNewWithSlotWeights(t *testing.T) {
	// One slot, in=2, out=2, identity weight and zero bias. The content MLP
	// stays randomly initialized because no content_mlp tensors are present.
	path := writeTensorFile(t, map[string]tensorSpec{
		"contextual.weight": {Shape: []int{1, 2, 2}, Data: []float32{1, 0, 0, 1}},
		"contextual.bias":   {Shape: []int{1, 2}, Data: []float32{0, 0}},
	})

	p, err := New(2, 2, WithSeed(3), WithFeature("genre", 1, 0), WithWeights(path))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	batch := testBatch()
	batch.Payloads = Payloads{
		Float: map[string][]float32{"genre": {5, -5, 7, -7}},
		Int:   map[string][]int{"genre_offsets": {0, 1, 2}},
	}

	res, err := p.Forward(batch)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	// Identity projection: the slot row is the raw feature values.
	if res.Embeddings[0] != 5 || res.Embeddings[1] != -5 {
		t.Errorf("slot row = %v, want [5 -5]", res.Embeddings[:2])
	}
	if res.Embeddings[6] != 7 || res.Embeddings[7] != -7 {
		t.Errorf("example 1 slot row = %v, want [7 -7]", res.Embeddings[6:8])
	}
}

func TestNewWithSlotWeightsMismatch(t *testing.T) {
	// Two slots in the file, one feature slot declared.
	path := writeTensorFile(t, map[string]tensorSpec{
		"contextual.weight": {Shape: []int{2, 2, 2}, Data: make([]float32, 8)},
		"contextual.bias":   {Shape: []int{2, 2}, Data: make([]float32, 4)},
	})

	if _, err := New(2, 2, WithFeature("genre", 1, 0), WithWeights(path)); err == nil {
		t.Fatal("expected error for slot count mismatch")
	}
}

func TestNewWithContentWeightsDimMismatch(t *testing.T) {
	// The file's MLP maps 2 -> 1 but the caller asks for 2 -> 4.
	path := writeTensorFile(t, map[string]tensorSpec{
		"content_mlp.lin1.weight": {Shape: []int{2, 2}, Data: []float32{1, 0, 0, 1}},
		"content_mlp.lin1.bias":   {Shape: []int{2}, Data: []float32{0, 0}},
		"content_mlp.lin2.weight": {Shape: []int{1, 2}, Data: []float32{1, 1}},
		"content_mlp.lin2.bias":   {Shape: []int{1}, Data: []float32{0}},
	})

	if _, err := New(2, 4, WithWeights(path)); err == nil {
		t.Fatal("expected error for content transform dimension mismatch")
	}
}

func TestNewMissingWeightsFile(t *testing.T) {
	if _, err := New(2, 4, WithWeights(filepath.Join(t.TempDir(), "absent.safetensors"))); err == nil {
		t.Fatal("expected error for missing weights file")
	}
}

func TestForwardPropagatesContractErrors(t *testing.T) {
	p, err := New(2, 4, WithSeed(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	batch := testBatch()
	batch.Lengths = []int{-1, 3}
	if _, err := p.Forward(batch); !errors.Is(err, ErrBadLengths) {
		t.Fatalf("error = %v, want ErrBadLengths", err)
	}
}

func TestCloseWithoutONNX(t *testing.T) {
	p, err := New(2, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
