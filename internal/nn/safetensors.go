package nn

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// TensorFile is a parsed safetensors file: named F32 tensors exported by the
// training stack. Tensors are decoded lazily, one per Float32 call.
type TensorFile struct {
	data    []byte
	base    int // byte offset where the tensor payload section starts
	entries map[string]tensorMeta
}

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// OpenTensorFile reads and parses a safetensors file: an 8-byte LE uint64
// header length, a JSON header mapping tensor names to metadata, then the
// raw tensor bytes.
func OpenTensorFile(path string) (*TensorFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &raw); err != nil {
		return nil, fmt.Errorf("safetensors: failed to parse header: %w", err)
	}

	entries := make(map[string]tensorMeta, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var meta tensorMeta
		if err := json.Unmarshal(msg, &meta); err != nil {
			return nil, fmt.Errorf("safetensors: failed to parse metadata for %q: %w", name, err)
		}
		entries[name] = meta
	}

	return &TensorFile{
		data:    data,
		base:    int(8 + headerLen),
		entries: entries,
	}, nil
}

// Has reports whether the file contains a tensor with the given name.
func (f *TensorFile) Has(name string) bool {
	_, ok := f.entries[name]
	return ok
}

// Float32 decodes the named F32 tensor, returning its flat data and shape.
func (f *TensorFile) Float32(name string) ([]float32, []int, error) {
	meta, ok := f.entries[name]
	if !ok {
		return nil, nil, fmt.Errorf("safetensors: tensor %q not found", name)
	}
	if meta.Dtype != "F32" {
		return nil, nil, fmt.Errorf("safetensors: tensor %q: expected dtype F32, got %s", name, meta.Dtype)
	}

	numFloats := 1
	for _, d := range meta.Shape {
		numFloats *= d
	}

	dataStart := f.base + meta.DataOffsets[0]
	dataEnd := f.base + meta.DataOffsets[1]
	if dataEnd-dataStart != numFloats*4 {
		return nil, nil, fmt.Errorf("safetensors: tensor %q: data size %d doesn't match shape %v",
			name, dataEnd-dataStart, meta.Shape)
	}
	if dataEnd > len(f.data) {
		return nil, nil, fmt.Errorf("safetensors: tensor %q: data range [%d:%d] exceeds file size %d",
			name, dataStart, dataEnd, len(f.data))
	}

	values := make([]float32, numFloats)
	for i := range values {
		bits := binary.LittleEndian.Uint32(f.data[dataStart+i*4 : dataStart+i*4+4])
		values[i] = math.Float32frombits(bits)
	}
	return values, meta.Shape, nil
}

// LoadContentMLP builds a ContentMLP from trained weights. Required tensors:
// content_mlp.lin1.weight [hidden, in], content_mlp.lin1.bias [hidden],
// content_mlp.lin2.weight [out, hidden], content_mlp.lin2.bias [out].
// Optional: content_mlp.swish_norm.{gamma,beta} and
// content_mlp.out_norm.{gamma,beta}; absent norms keep identity scale/shift.
// Dimensions are inferred from the tensor shapes.
func LoadContentMLP(f *TensorFile) (*ContentMLP, error) {
	w1, shape1, err := f.Float32("content_mlp.lin1.weight")
	if err != nil {
		return nil, err
	}
	if len(shape1) != 2 {
		return nil, fmt.Errorf("safetensors: content_mlp.lin1.weight: expected 2D tensor, got shape %v", shape1)
	}
	hiddenDim, inDim := shape1[0], shape1[1]

	w2, shape2, err := f.Float32("content_mlp.lin2.weight")
	if err != nil {
		return nil, err
	}
	if len(shape2) != 2 || shape2[1] != hiddenDim {
		return nil, fmt.Errorf("safetensors: content_mlp.lin2.weight: shape %v doesn't match hidden dim %d", shape2, hiddenDim)
	}
	outDim := shape2[0]

	b1, err := loadVector(f, "content_mlp.lin1.bias", hiddenDim)
	if err != nil {
		return nil, err
	}
	b2, err := loadVector(f, "content_mlp.lin2.bias", outDim)
	if err != nil {
		return nil, err
	}

	m := &ContentMLP{
		lin1:   &Linear{weights: w1, bias: b1, inDim: inDim, outDim: hiddenDim},
		act:    NewSwishLayerNorm(hiddenDim),
		lin2:   &Linear{weights: w2, bias: b2, inDim: hiddenDim, outDim: outDim},
		out:    NewLayerNorm(outDim),
		inDim:  inDim,
		outDim: outDim,
	}

	if err := loadNorm(f, "content_mlp.swish_norm", hiddenDim, m.act.SetParams); err != nil {
		return nil, err
	}
	if err := loadNorm(f, "content_mlp.out_norm", outDim, m.out.SetParams); err != nil {
		return nil, err
	}
	return m, nil
}

func loadVector(f *TensorFile, name string, dim int) ([]float32, error) {
	v, shape, err := f.Float32(name)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 || shape[0] != dim {
		return nil, fmt.Errorf("safetensors: %s: expected shape [%d], got %v", name, dim, shape)
	}
	return v, nil
}

// loadNorm applies a norm layer's gamma/beta if present. Both tensors must
// be present or absent together.
func loadNorm(f *TensorFile, prefix string, dim int, set func(gamma, beta []float32)) error {
	hasGamma := f.Has(prefix + ".gamma")
	hasBeta := f.Has(prefix + ".beta")
	if !hasGamma && !hasBeta {
		return nil
	}
	if hasGamma != hasBeta {
		return fmt.Errorf("safetensors: %s: gamma and beta must both be present", prefix)
	}
	gamma, err := loadVector(f, prefix+".gamma", dim)
	if err != nil {
		return err
	}
	beta, err := loadVector(f, prefix+".beta", dim)
	if err != nil {
		return err
	}
	set(gamma, beta)
	return nil
}
