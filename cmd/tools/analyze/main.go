// Package main provides a command-line batch analyzer.
//
// The analyze tool reads a .csv, .json or .txt file, classifies every text
// through the same orchestrator the server uses and writes the results as a
// CSV or JSON export next to a short summary on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/app"
	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	"github.com/lueurxax/sentiment-dashboard/internal/dashboard"
	"github.com/lueurxax/sentiment-dashboard/internal/ingest/upload"
	"github.com/lueurxax/sentiment-dashboard/internal/output/export"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/process/aggregate"
)

const errFmt = "%v\n"

var errNoInput = errors.New("-input is required")

type analyzeConfig struct {
	inputPath string
	outputDir string
	format    string
	maxBytes  int64
	verbose   bool
}

func main() {
	toolCfg := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if toolCfg.verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, nil, &logger)
	runner := application.NewOrchestrator(application.NewClassifier())

	path, err := run(ctx, toolCfg, runner, os.Stdout, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
}

func parseFlags() analyzeConfig {
	cfg := analyzeConfig{}

	flag.StringVar(&cfg.inputPath, "input", "", "Path to a .csv, .json or .txt file")
	flag.StringVar(&cfg.outputDir, "out", ".", "Directory for the export file")
	flag.StringVar(&cfg.format, "format", string(export.FormatCSV), "Export format (csv|json)")
	flag.Int64Var(&cfg.maxBytes, "max-bytes", upload.DefaultMaxBytes, "Maximum input size in bytes")
	flag.BoolVar(&cfg.verbose, "v", false, "Verbose logging")

	flag.Parse()

	return cfg
}

// run analyzes the input file and writes the export, returning its path.
func run(ctx context.Context, cfg analyzeConfig, runner dashboard.Runner, out io.Writer, now time.Time) (string, error) {
	if cfg.inputPath == "" {
		return "", errNoInput
	}

	format, err := export.ParseFormat(cfg.format)
	if err != nil {
		return "", fmt.Errorf("format: %w", err)
	}

	texts, err := readTexts(cfg.inputPath, cfg.maxBytes)
	if err != nil {
		return "", err
	}

	report, err := runner.Run(ctx, texts, func(p domain.Progress) {
		fmt.Fprintf(out, "\r%3.0f%% (%d/%d)", p.Percent, p.Completed, p.Total)
	})

	fmt.Fprintln(out)

	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}

	for _, f := range report.Failures {
		fmt.Fprintf(out, "skipped text %d: %v\n", f.Index, f.Err)
	}

	history, stats := aggregate.MergeRun(nil, domain.RunningStats{}, domain.Run{Submitted: len(texts), Results: report.Results})
	printSummary(out, history, stats)

	art, err := export.Export(history, format, now)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	path := filepath.Join(cfg.outputDir, art.Filename)
	if err := os.WriteFile(path, art.Content, 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	return path, nil
}

func readTexts(path string, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	data, err := upload.ReadLimited(f, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	texts, err := upload.ParseFile(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}

	return texts, nil
}

func printSummary(out io.Writer, history []domain.SentimentResult, stats domain.RunningStats) {
	fmt.Fprintf(out, "Texts analyzed:     %d\n", stats.TextsProcessed)
	fmt.Fprintf(out, "Average confidence: %.3f\n", stats.AverageConfidence)

	for _, s := range aggregate.Summarize(history) {
		fmt.Fprintf(out, "  %-9s %4d  (avg confidence %.3f)\n", s.Label, s.Count, s.AverageConfidence)
	}
}
