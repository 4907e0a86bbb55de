package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arcadian-io/seqprep/internal/config"
	"github.com/arcadian-io/seqprep/internal/logging"
	"github.com/arcadian-io/seqprep/internal/output"
	outfile "github.com/arcadian-io/seqprep/internal/output/file"
	"github.com/arcadian-io/seqprep/internal/output/stdout"
	"github.com/arcadian-io/seqprep/internal/pipeline"
	"github.com/arcadian-io/seqprep/internal/source"
	"github.com/arcadian-io/seqprep/pkg/seqprep"

	// Register source implementations.
	_ "github.com/arcadian-io/seqprep/internal/source/file"
	_ "github.com/arcadian-io/seqprep/internal/source/stdin"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogFormat == "json", logging.ParseLevel(cfg.LogLevel))

	// Build the preprocessor from model config.
	pre, err := buildPreprocessor(cfg.Model)
	if err != nil {
		log.Fatalf("failed to create preprocessor: %v", err)
	}
	defer pre.Close()

	// Resolve the batch source.
	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		log.Fatalf("failed to get source: %v", err)
	}
	src := ctor()

	// Build the output.
	out, err := buildOutput(cfg.Output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}

	p := pipeline.New(src, pre, out, pre.OutDim())
	defer p.Close()

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	srcCfg := source.Config{
		Provider: cfg.Source.Provider,
		Path:     cfg.Source.Path,
	}

	fmt.Fprintf(os.Stderr, "seqprep: starting with source=%s\n", cfg.Source.Provider)
	if err := p.Stream(ctx, srcCfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("pipeline error: %v", err)
	}
}

func buildPreprocessor(cfg config.ModelConfig) (*seqprep.Preprocessor, error) {
	features, err := config.LoadFeatures(cfg.FeaturesPath)
	if err != nil {
		return nil, err
	}

	opts := []seqprep.Option{
		seqprep.WithFeatures(features),
		seqprep.WithHiddenDim(cfg.HiddenDim),
		seqprep.WithSeed(cfg.Seed),
	}
	if cfg.WeightsPath != "" {
		opts = append(opts, seqprep.WithWeights(cfg.WeightsPath))
	}
	if cfg.ONNXPath != "" {
		opts = append(opts, seqprep.WithONNXContentModel(cfg.ONNXPath))
	}
	if cfg.Passthrough {
		opts = append(opts, seqprep.WithPassthrough())
	}
	return seqprep.New(cfg.InputDim, cfg.OutputDim, opts...)
}

func buildOutput(cfg config.OutputConfig) (output.Output, error) {
	verbosity := output.ParseVerbosity(cfg.Verbosity)
	switch cfg.Format {
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file output requires SEQPREP_OUTPUT_PATH")
		}
		return outfile.New(cfg.Path, verbosity)
	case "stdout", "":
		return stdout.New(verbosity, cfg.Pretty), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}
}
