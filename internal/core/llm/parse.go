package llm

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

type rawScores struct {
	Positive *float64 `json:"positive"`
	Neutral  *float64 `json:"neutral"`
	Negative *float64 `json:"negative"`
}

type rawKeyword struct {
	Token    string  `json:"token"`
	Polarity string  `json:"polarity"`
	Score    float64 `json:"score"`
}

type rawClassification struct {
	Label       string       `json:"label"`
	Scores      *rawScores   `json:"scores"`
	Explanation string       `json:"explanation"`
	Keywords    []rawKeyword `json:"keywords"`
}

// extractJSON pulls the JSON object out of a model answer that may be wrapped
// in a markdown code fence or surrounded by prose. It returns the trimmed input
// when nothing better is found.
func extractJSON(content string) string {
	text := strings.TrimSpace(content)

	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if json.Valid([]byte(text)) {
		return text
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end > start {
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	return text
}

// parseClassification decodes a model answer and builds the result for text.
// confidence is always derived from the returned scores and label.
func parseClassification(text, content string, now time.Time) (domain.SentimentResult, error) {
	payload := extractJSON(content)

	var raw rawClassification
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return domain.SentimentResult{}, &apperrors.UpstreamFormatError{Reason: "payload is not a JSON object", Content: truncate(content, maxLoggedContent), Err: err}
	}

	label, ok := domain.ParseLabel(raw.Label)
	if !ok {
		return domain.SentimentResult{}, &apperrors.UpstreamFormatError{Reason: "unknown label " + quote(raw.Label), Content: truncate(content, maxLoggedContent)}
	}

	scores, reason := validScores(raw.Scores)
	if reason != "" {
		return domain.SentimentResult{}, &apperrors.UpstreamFormatError{Reason: reason, Content: truncate(content, maxLoggedContent)}
	}

	return domain.SentimentResult{
		ID:          uuid.NewString(),
		Text:        text,
		Label:       label,
		Scores:      scores,
		Confidence:  scores.Of(label),
		Explanation: strings.TrimSpace(raw.Explanation),
		Keywords:    normalizeKeywords(raw.Keywords),
		Timestamp:   now.UTC().Truncate(time.Millisecond),
	}, nil
}

func validScores(raw *rawScores) (domain.Scores, string) {
	if raw == nil {
		return domain.Scores{}, "missing scores"
	}

	if raw.Positive == nil || raw.Neutral == nil || raw.Negative == nil {
		return domain.Scores{}, "scores must include positive, neutral and negative"
	}

	scores := domain.Scores{Positive: *raw.Positive, Neutral: *raw.Neutral, Negative: *raw.Negative}
	for _, v := range []float64{scores.Positive, scores.Neutral, scores.Negative} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Scores{}, "scores must be non-negative numbers"
		}
	}

	return scores, ""
}

func normalizeKeywords(raw []rawKeyword) []domain.Keyword {
	keywords := make([]domain.Keyword, 0, len(raw))

	for _, k := range raw {
		token := strings.TrimSpace(k.Token)
		if token == "" {
			continue
		}

		keywords = append(keywords, domain.Keyword{
			Token:    token,
			Polarity: domain.ParsePolarity(k.Polarity),
			Score:    clamp01(k.Score),
		})
	}

	return keywords
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func quote(s string) string {
	return `"` + s + `"`
}
