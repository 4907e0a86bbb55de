package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SEQPREP_SOURCE", "SEQPREP_INPUT_PATH",
		"SEQPREP_INPUT_DIM", "SEQPREP_OUTPUT_DIM", "SEQPREP_HIDDEN_DIM",
		"SEQPREP_SEED", "SEQPREP_FEATURES_PATH", "SEQPREP_WEIGHTS_PATH",
		"SEQPREP_ONNX_PATH", "SEQPREP_PASSTHROUGH",
		"SEQPREP_OUTPUT", "SEQPREP_OUTPUT_PATH", "SEQPREP_VERBOSITY",
		"SEQPREP_PRETTY", "SEQPREP_LOG_LEVEL", "SEQPREP_LOG_FORMAT",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Source.Provider != "stdin" {
		t.Errorf("default provider = %q, want stdin", cfg.Source.Provider)
	}
	if cfg.Model.InputDim != 64 || cfg.Model.OutputDim != 64 {
		t.Errorf("default dims = (%d, %d), want (64, 64)", cfg.Model.InputDim, cfg.Model.OutputDim)
	}
	if cfg.Model.HiddenDim != 256 {
		t.Errorf("default hidden dim = %d, want 256", cfg.Model.HiddenDim)
	}
	if cfg.Model.Passthrough {
		t.Error("default Passthrough = true, want false")
	}
	if cfg.Output.Format != "stdout" {
		t.Errorf("default output = %q, want stdout", cfg.Output.Format)
	}
	if cfg.Output.Verbosity != "full" {
		t.Errorf("default verbosity = %q, want full", cfg.Output.Verbosity)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("default logging = (%q, %q), want (info, text)", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEQPREP_SOURCE", "file")
	t.Setenv("SEQPREP_INPUT_PATH", "/data/batches.jsonl")
	t.Setenv("SEQPREP_INPUT_DIM", "128")
	t.Setenv("SEQPREP_SEED", "7")
	t.Setenv("SEQPREP_PASSTHROUGH", "true")
	t.Setenv("SEQPREP_VERBOSITY", "minimal")

	cfg := Load()

	if cfg.Source.Provider != "file" || cfg.Source.Path != "/data/batches.jsonl" {
		t.Errorf("source = %+v, want file provider with path", cfg.Source)
	}
	if cfg.Model.InputDim != 128 {
		t.Errorf("input dim = %d, want 128", cfg.Model.InputDim)
	}
	if cfg.Model.Seed != 7 {
		t.Errorf("seed = %d, want 7", cfg.Model.Seed)
	}
	if !cfg.Model.Passthrough {
		t.Error("Passthrough = false, want true")
	}
	if cfg.Output.Verbosity != "minimal" {
		t.Errorf("verbosity = %q, want minimal", cfg.Output.Verbosity)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEQPREP_INPUT_DIM", "not-a-number")
	t.Setenv("SEQPREP_PASSTHROUGH", "not-a-bool")

	cfg := Load()

	if cfg.Model.InputDim != 64 {
		t.Errorf("input dim = %d, want fallback 64", cfg.Model.InputDim)
	}
	if cfg.Model.Passthrough {
		t.Error("Passthrough = true, want fallback false")
	}
}

func TestLoadFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.yaml")
	content := `features:
  - name: user_profile
    max_length: 1
    min_history_length: 0
  - name: recent_genres
    max_length: 4
    min_history_length: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write features file: %v", err)
	}

	specs, err := LoadFeatures(path)
	if err != nil {
		t.Fatalf("LoadFeatures error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Name != "user_profile" || specs[0].MaxLength != 1 {
		t.Errorf("spec 0 = %+v, want user_profile max_length=1", specs[0])
	}
	if specs[1].Name != "recent_genres" || specs[1].MaxLength != 4 || specs[1].MinHistoryLength != 2 {
		t.Errorf("spec 1 = %+v", specs[1])
	}
}

func TestLoadFeaturesEmptyPath(t *testing.T) {
	specs, err := LoadFeatures("")
	if err != nil {
		t.Fatalf("LoadFeatures error: %v", err)
	}
	if specs != nil {
		t.Errorf("specs = %v, want nil for empty path", specs)
	}
}

func TestLoadFeaturesBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.yaml")
	if err := os.WriteFile(path, []byte("features: [not: {valid"), 0o644); err != nil {
		t.Fatalf("failed to write features file: %v", err)
	}
	if _, err := LoadFeatures(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadFeaturesMissingFile(t *testing.T) {
	if _, err := LoadFeatures(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
