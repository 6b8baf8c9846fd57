package aggregate

import "github.com/lueurxax/sentiment-dashboard/internal/core/domain"

// LabelSummary is the distribution entry for one label.
type LabelSummary struct {
	Label             domain.Label `json:"label"`
	Count             int          `json:"count"`
	AverageConfidence float64      `json:"averageConfidence"`
}

// Summarize counts results per label and averages their confidence.
// Entries follow domain.Labels order; an empty class averages to 0.
func Summarize(history []domain.SentimentResult) []LabelSummary {
	counts := make(map[domain.Label]int, len(domain.Labels))
	sums := make(map[domain.Label]float64, len(domain.Labels))

	for _, r := range history {
		counts[r.Label]++
		sums[r.Label] += r.Confidence
	}

	out := make([]LabelSummary, 0, len(domain.Labels))

	for _, l := range domain.Labels {
		s := LabelSummary{Label: l, Count: counts[l]}
		if s.Count > 0 {
			s.AverageConfidence = sums[l] / float64(s.Count)
		}

		out = append(out, s)
	}

	return out
}
