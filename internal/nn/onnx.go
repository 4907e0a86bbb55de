package nn

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXTransform is a Transform backed by an ONNX Runtime session, for content
// MLPs trained and exported elsewhere. The model must have a single float32
// input of shape [n, inDim] and a single float32 output of shape [n, outDim],
// with a dynamic first dimension.
type ONNXTransform struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inDim      int64
	outDim     int64
}

// NewONNXTransform loads the ONNX model and creates an inference session.
// The ONNX Runtime shared library is expected alongside the model file.
func NewONNXTransform(modelPath string) (*ONNXTransform, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected a single input tensor, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("onnx: expected a single output tensor, got %d", len(outputs))
	}

	inDims := inputs[0].Dimensions
	if len(inDims) != 2 || inDims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected [n, dim] input tensor, got %v", inDims)
	}
	outDims := outputs[0].Dimensions
	if len(outDims) != 2 || outDims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected [n, dim] output tensor, got %v", outDims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNXTransform{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		inDim:      inDims[1],
		outDim:     outDims[1],
	}, nil
}

// Forward runs one inference call over a flat [n, inDim] buffer.
func (t *ONNXTransform) Forward(values []float32) ([]float32, error) {
	if len(values)%int(t.inDim) != 0 {
		return nil, fmt.Errorf("onnx: buffer size %d not divisible by input dim %d", len(values), t.inDim)
	}
	n := int64(len(values)) / t.inDim

	tIn, err := ort.NewTensor(ort.NewShape(n, t.inDim), values)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(n, t.outDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := t.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before the tensor is destroyed.
	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

// InDim returns the input embedding dimension.
func (t *ONNXTransform) InDim() int { return int(t.inDim) }

// OutDim returns the output embedding dimension.
func (t *ONNXTransform) OutDim() int { return int(t.outDim) }

// Close releases the ONNX session resources.
func (t *ONNXTransform) Close() error {
	return t.session.Destroy()
}
