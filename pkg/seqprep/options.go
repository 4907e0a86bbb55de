package seqprep

import "github.com/arcadian-io/seqprep/internal/nn"

type options struct {
	features    []FeatureSpec
	hiddenDim   int
	seed        int64
	weightsPath string
	onnxPath    string
	passthrough bool
}

// Option configures a Preprocessor.
type Option func(*options)

// WithFeature declares one contextual feature: maxLength slots are reserved
// for it ahead of every example's content, and examples with fewer than
// minHistory events get a zeroed contribution. Order of WithFeature calls
// fixes the slot order.
func WithFeature(name string, maxLength, minHistory int) Option {
	return func(o *options) {
		o.features = append(o.features, FeatureSpec{
			Name:             name,
			MaxLength:        maxLength,
			MinHistoryLength: minHistory,
		})
	}
}

// WithFeatures declares the full contextual feature list at once, replacing
// any earlier declarations.
func WithFeatures(features []FeatureSpec) Option {
	return func(o *options) { o.features = features }
}

// WithHiddenDim sets the content MLP's hidden width. Default: 256. Ignored
// when the content transform is loaded from weights or ONNX.
func WithHiddenDim(dim int) Option {
	return func(o *options) { o.hiddenDim = dim }
}

// WithSeed seeds the random weight initialization for reproducible runs.
// Default: 0.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithWeights loads trained parameters from a safetensors file. The content
// MLP is taken from content_mlp.* tensors and the slot projection from
// contextual.{weight,bias}; tensors absent from the file keep their random
// initialization.
func WithWeights(path string) Option {
	return func(o *options) { o.weightsPath = path }
}

// WithONNXContentModel runs the content transform through an exported ONNX
// model instead of the native MLP. The model must map [n, inputDim] float32
// to [n, outputDim].
func WithONNXContentModel(path string) Option {
	return func(o *options) { o.onnxPath = path }
}

// WithPassthrough builds the no-op preprocessor variant: offsets are computed
// and everything else passes through verbatim. Feature and weight options are
// ignored.
func WithPassthrough() Option {
	return func(o *options) { o.passthrough = true }
}

func defaultOptions() options {
	return options{hiddenDim: nn.DefaultHiddenDim}
}
