// Package aggregate folds classification runs into a user's history and
// running statistics, and derives badges and per-label summaries from them.
// Every function is pure: inputs are never modified.
package aggregate

import "github.com/lueurxax/sentiment-dashboard/internal/core/domain"

// Merge prepends newResults to history as one block and updates stats,
// treating newResults as the whole submission.
func Merge(history []domain.SentimentResult, stats domain.RunningStats, newResults []domain.SentimentResult) ([]domain.SentimentResult, domain.RunningStats) {
	return MergeRun(history, stats, domain.Run{Submitted: len(newResults), Results: newResults})
}

// MergeRun prepends the run's results to history as one block and folds the
// run into stats.
func MergeRun(history []domain.SentimentResult, stats domain.RunningStats, run domain.Run) ([]domain.SentimentResult, domain.RunningStats) {
	merged := make([]domain.SentimentResult, 0, len(run.Results)+len(history))
	merged = append(merged, run.Results...)
	merged = append(merged, history...)

	return merged, Fold(stats, run)
}

// Fold adds a run to stats. A run counts as a completed batch when more than
// one text was submitted, however many of them came back. A run without
// results leaves stats unchanged.
func Fold(stats domain.RunningStats, run domain.Run) domain.RunningStats {
	n := len(run.Results)
	if n == 0 {
		return stats
	}

	avgNew := Delta(run).AverageConfidence
	processed := stats.TextsProcessed + n

	next := domain.RunningStats{
		TextsProcessed:   processed,
		BatchesCompleted: stats.BatchesCompleted,
	}

	if run.IsBatch() {
		next.BatchesCompleted++
	}

	if stats.TextsProcessed == 0 {
		next.AverageConfidence = avgNew
	} else {
		next.AverageConfidence = (stats.AverageConfidence*float64(stats.TextsProcessed) + avgNew*float64(n)) / float64(processed)
	}

	return next
}

// Delta returns the run's own contribution: its text count, 1 or 0 batches,
// and the mean confidence of its results. Stores add it to the persisted
// counters instead of overwriting them.
func Delta(run domain.Run) domain.RunningStats {
	n := len(run.Results)
	if n == 0 {
		return domain.RunningStats{}
	}

	var sum float64
	for _, r := range run.Results {
		sum += r.Confidence
	}

	delta := domain.RunningStats{TextsProcessed: n, AverageConfidence: sum / float64(n)}
	if run.IsBatch() {
		delta.BatchesCompleted = 1
	}

	return delta
}

// Cap keeps the newest max entries of history. A non-positive max disables the cap.
func Cap(history []domain.SentimentResult, max int) []domain.SentimentResult {
	if max <= 0 || len(history) <= max {
		return history
	}

	return history[:max:max]
}
