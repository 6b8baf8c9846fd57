// Package domain holds the value types shared by the classifier, the batch
// orchestrator, the aggregator and the persistence bridge.
package domain

import "time"

// Label is the sentiment class chosen by the classifier.
type Label string

// Sentiment labels.
const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Labels lists every label in display order.
var Labels = []Label{LabelPositive, LabelNeutral, LabelNegative}

// ParseLabel normalizes a label and reports whether it is one of the three classes.
func ParseLabel(s string) (Label, bool) {
	switch l := Label(normalizeToken(s)); l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return l, true
	default:
		return "", false
	}
}

// Scores is the three-way probability mapping returned by the classifier.
// The classifier is expected to make them sum to 1.0; nothing here enforces it.
type Scores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Of returns the score for a label.
func (s Scores) Of(l Label) float64 {
	switch l {
	case LabelPositive:
		return s.Positive
	case LabelNeutral:
		return s.Neutral
	case LabelNegative:
		return s.Negative
	default:
		return 0
	}
}

// Keyword is a token the classifier highlighted as driving the sentiment.
type Keyword struct {
	Token    string  `json:"token"`
	Polarity Label   `json:"polarity"`
	Score    float64 `json:"score"`
}

// SentimentResult is one classified text. It is built once by the classifier
// and never modified afterwards.
type SentimentResult struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Label       Label     `json:"label"`
	Scores      Scores    `json:"scores"`
	Confidence  float64   `json:"confidence"`
	Explanation string    `json:"explanation"`
	Keywords    []Keyword `json:"keywords"`
	Timestamp   time.Time `json:"timestamp"`
}

// RunningStats are the per-user counters maintained by the aggregator.
type RunningStats struct {
	TextsProcessed    int     `json:"textsProcessed"`
	BatchesCompleted  int     `json:"batchesCompleted"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// Run is one completed submission: how many texts were sent and the results
// that came back. Under a partial failure policy Results may be shorter than
// Submitted.
type Run struct {
	Submitted int
	Results   []SentimentResult
}

// IsBatch reports whether the submission counts toward BatchesCompleted.
func (r Run) IsBatch() bool {
	return r.Submitted > 1
}

// Badge is a milestone derived from RunningStats. It is never stored.
type Badge struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Threshold   float64 `json:"threshold"`
	Progress    float64 `json:"progress"`
	Unlocked    bool    `json:"unlocked"`
}

// Progress is a batch progress observation.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}
