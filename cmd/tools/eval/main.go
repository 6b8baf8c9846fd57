// Package main measures classifier quality against a labeled golden set.
//
// The eval tool reads JSONL records of {"text", "label"}, classifies every
// text through the batch orchestrator and reports accuracy plus per-label
// precision and recall.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/app"
	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	"github.com/lueurxax/sentiment-dashboard/internal/dashboard"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
)

const (
	maxScannerBufferSize    = 1024
	scannerBufferMultiplier = 64

	errFmt = "%v\n"
)

var (
	errAccuracyBelowThreshold = errors.New("accuracy below threshold")
	errNoRecords              = errors.New("no labeled records")
)

type evalRecord struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type labelStats struct {
	tp int
	fp int
	fn int
}

type evalStats struct {
	total    int
	skipped  int
	failed   int
	correct  int
	perLabel map[domain.Label]*labelStats
}

type evalConfig struct {
	inputPath   string
	minAccuracy float64
}

func main() {
	cfg := parseFlags()

	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Failed texts are counted rather than aborting the run.
	appCfg.BatchFailurePolicy = config.FailurePolicyPartial

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(appCfg, nil, &logger)
	runner := application.NewOrchestrator(application.NewClassifier())

	stats, err := evaluateFile(ctx, cfg.inputPath, runner)
	if err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}

	printSummary(os.Stdout, stats)

	if err := checkThresholds(stats, cfg); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}
}

func parseFlags() evalConfig {
	cfg := evalConfig{}

	flag.StringVar(&cfg.inputPath, "input", "docs/eval/golden.jsonl", "Path to JSONL dataset")
	flag.Float64Var(&cfg.minAccuracy, "min-accuracy", -1, "Fail if accuracy is below this value (disabled if <0)")

	flag.Parse()

	return cfg
}

func evaluateFile(ctx context.Context, path string, runner dashboard.Runner) (evalStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return evalStats{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return evaluate(ctx, f, runner)
}

func evaluate(ctx context.Context, r io.Reader, runner dashboard.Runner) (evalStats, error) {
	texts, labels, skipped, err := scanRecords(r)
	if err != nil {
		return evalStats{}, err
	}

	stats := evalStats{skipped: skipped, perLabel: make(map[domain.Label]*labelStats, len(domain.Labels))}
	for _, l := range domain.Labels {
		stats.perLabel[l] = &labelStats{}
	}

	if len(texts) == 0 {
		return stats, errNoRecords
	}

	report, err := runner.Run(ctx, texts, nil)
	if err != nil {
		return stats, fmt.Errorf("classify: %w", err)
	}

	failed := make(map[int]bool, len(report.Failures))
	for _, f := range report.Failures {
		failed[f.Index] = true
	}

	next := 0

	for i, want := range labels {
		if failed[i] {
			stats.failed++
			continue
		}

		got := report.Results[next].Label
		next++

		stats.total++
		updateConfusion(&stats, want, got)
	}

	return stats, nil
}

func scanRecords(r io.Reader) ([]string, []domain.Label, int, error) {
	var (
		texts   []string
		labels  []domain.Label
		skipped int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scannerBufferMultiplier*maxScannerBufferSize), maxScannerBufferSize*maxScannerBufferSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec evalRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			continue
		}

		label, ok := domain.ParseLabel(rec.Label)
		if !ok || strings.TrimSpace(rec.Text) == "" {
			skipped++
			continue
		}

		texts = append(texts, rec.Text)
		labels = append(labels, label)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, skipped, fmt.Errorf("failed to read input: %w", err)
	}

	return texts, labels, skipped, nil
}

func updateConfusion(stats *evalStats, want, got domain.Label) {
	if want == got {
		stats.correct++
		stats.perLabel[want].tp++

		return
	}

	stats.perLabel[want].fn++

	if s, ok := stats.perLabel[got]; ok {
		s.fp++
	}
}

func checkThresholds(stats evalStats, cfg evalConfig) error {
	accuracy := ratio(stats.correct, stats.total)

	if cfg.minAccuracy >= 0 && accuracy < cfg.minAccuracy {
		return fmt.Errorf("%w: %.3f < %.3f", errAccuracyBelowThreshold, accuracy, cfg.minAccuracy)
	}

	return nil
}

func printSummary(out io.Writer, stats evalStats) {
	fmt.Fprintf(out, "Evaluation Summary\n")
	fmt.Fprintf(out, "  Records: %d (skipped: %d, failed: %d)\n", stats.total, stats.skipped, stats.failed)
	fmt.Fprintf(out, "  Accuracy: %.3f\n", ratio(stats.correct, stats.total))

	for _, l := range domain.Labels {
		s := stats.perLabel[l]
		fmt.Fprintf(out, "  %-9s precision=%.3f recall=%.3f\n", l, ratio(s.tp, s.tp+s.fp), ratio(s.tp, s.tp+s.fn))
	}
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}

	return float64(numerator) / float64(denominator)
}
