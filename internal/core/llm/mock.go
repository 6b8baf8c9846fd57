package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
)

const (
	mockNeutralWeight  = 0.5
	mockKeywordScore   = 0.8
	mockNoCueNeutral   = 0.8
	mockNoCueRemainder = 0.1
)

var (
	mockPositiveWords = map[string]bool{
		"love": true, "great": true, "good": true, "excellent": true, "amazing": true,
		"happy": true, "wonderful": true, "best": true, "like": true, "awesome": true,
		"fantastic": true, "nice": true, "perfect": true, "enjoy": true, "recommend": true,
		"g\u00e9nial": true,
	}
	mockNegativeWords = map[string]bool{
		"hate": true, "terrible": true, "bad": true, "awful": true, "worst": true,
		"horrible": true, "sad": true, "poor": true, "disappointing": true, "broken": true,
		"angry": true, "useless": true, "annoying": true, "slow": true, "never": true,
		"p\u00e9simo": true,
	}
)

// mockClassifier is a deterministic word-list classifier used when no gateway
// is configured. It honours the same input contract as the real adapter.
type mockClassifier struct {
	now func() time.Time
}

// NewMock creates the mock classifier.
func NewMock() Classifier {
	return &mockClassifier{now: time.Now}
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (domain.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.SentimentResult{}, fmt.Errorf("%w: text is required", apperrors.ErrInvalidInput)
	}

	if err := ctx.Err(); err != nil {
		return domain.SentimentResult{}, &apperrors.UpstreamTransportError{Err: err}
	}

	var (
		pos, neg int
		keywords []domain.Keyword
		seen     = make(map[string]bool)
	)

	// composed form so that "e" + U+0301 tokenizes like "é"
	for _, word := range strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		polarity := domain.Label("")

		switch {
		case mockPositiveWords[word]:
			pos++
			polarity = domain.LabelPositive
		case mockNegativeWords[word]:
			neg++
			polarity = domain.LabelNegative
		}

		if polarity != "" && !seen[word] {
			seen[word] = true
			keywords = append(keywords, domain.Keyword{Token: word, Polarity: polarity, Score: mockKeywordScore})
		}
	}

	scores := mockScores(pos, neg)
	label := argmax(scores)

	return domain.SentimentResult{
		ID:          uuid.NewString(),
		Text:        text,
		Label:       label,
		Scores:      scores,
		Confidence:  scores.Of(label),
		Explanation: fmt.Sprintf("Mock classifier found %d positive and %d negative cue words.", pos, neg),
		Keywords:    append([]domain.Keyword{}, keywords...),
		Timestamp:   m.now().UTC().Truncate(time.Millisecond),
	}, nil
}

func mockScores(pos, neg int) domain.Scores {
	total := float64(pos + neg)
	if total == 0 {
		return domain.Scores{Positive: mockNoCueRemainder, Neutral: mockNoCueNeutral, Negative: mockNoCueRemainder}
	}

	denom := total + mockNeutralWeight

	return domain.Scores{
		Positive: float64(pos) / denom,
		Neutral:  mockNeutralWeight / denom,
		Negative: float64(neg) / denom,
	}
}

// argmax prefers neutral, then positive, on ties.
func argmax(s domain.Scores) domain.Label {
	best := domain.LabelNeutral

	for _, l := range []domain.Label{domain.LabelPositive, domain.LabelNegative} {
		if s.Of(l) > s.Of(best) {
			best = l
		}
	}

	return best
}
