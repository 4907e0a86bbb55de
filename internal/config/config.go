// Package config loads seqprep configuration from environment variables and
// the YAML feature-spec file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/arcadian-io/seqprep/internal/preprocessor"
)

// Config holds all seqprep configuration.
type Config struct {
	Source    SourceConfig
	Model     ModelConfig
	Output    OutputConfig
	LogLevel  string
	LogFormat string // "text" or "json"
}

// SourceConfig holds batch-source settings.
type SourceConfig struct {
	Provider string // "stdin" or "file"
	Path     string // input path for the file source
}

// ModelConfig holds preprocessor model settings.
type ModelConfig struct {
	InputDim     int
	OutputDim    int
	HiddenDim    int
	Seed         int64
	FeaturesPath string // YAML feature-spec file; empty means no contextual features
	WeightsPath  string // safetensors file; empty means random init
	ONNXPath     string // ONNX content model; empty means the native MLP
	Passthrough  bool
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format    string // "stdout" or "file"
	Path      string // output path for the file sink
	Verbosity string // "minimal" or "full"
	Pretty    bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Source: SourceConfig{
			Provider: getenv("SEQPREP_SOURCE", "stdin"),
			Path:     os.Getenv("SEQPREP_INPUT_PATH"),
		},
		Model: ModelConfig{
			InputDim:     getenvInt("SEQPREP_INPUT_DIM", 64),
			OutputDim:    getenvInt("SEQPREP_OUTPUT_DIM", 64),
			HiddenDim:    getenvInt("SEQPREP_HIDDEN_DIM", 256),
			Seed:         int64(getenvInt("SEQPREP_SEED", 0)),
			FeaturesPath: os.Getenv("SEQPREP_FEATURES_PATH"),
			WeightsPath:  os.Getenv("SEQPREP_WEIGHTS_PATH"),
			ONNXPath:     os.Getenv("SEQPREP_ONNX_PATH"),
			Passthrough:  getenvBool("SEQPREP_PASSTHROUGH", false),
		},
		Output: OutputConfig{
			Format:    getenv("SEQPREP_OUTPUT", "stdout"),
			Path:      os.Getenv("SEQPREP_OUTPUT_PATH"),
			Verbosity: getenv("SEQPREP_VERBOSITY", "full"),
			Pretty:    getenvBool("SEQPREP_PRETTY", false),
		},
		LogLevel:  getenv("SEQPREP_LOG_LEVEL", "info"),
		LogFormat: getenv("SEQPREP_LOG_FORMAT", "text"),
	}
}

// featureFile is the YAML form of the contextual feature specs:
//
//	features:
//	  - name: user_profile
//	    max_length: 1
//	    min_history_length: 0
type featureFile struct {
	Features []struct {
		Name             string `yaml:"name"`
		MaxLength        int    `yaml:"max_length"`
		MinHistoryLength int    `yaml:"min_history_length"`
	} `yaml:"features"`
}

// LoadFeatures parses a YAML feature-spec file. An empty path yields no
// features (zero contextual width).
func LoadFeatures(path string) ([]preprocessor.FeatureSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var file featureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	specs := make([]preprocessor.FeatureSpec, 0, len(file.Features))
	for _, f := range file.Features {
		specs = append(specs, preprocessor.FeatureSpec{
			Name:             f.Name,
			MaxLength:        f.MaxLength,
			MinHistoryLength: f.MinHistoryLength,
		})
	}
	return specs, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
