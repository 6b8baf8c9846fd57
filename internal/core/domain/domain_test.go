package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in     string
		want   Label
		wantOK bool
	}{
		{"positive", LabelPositive, true},
		{" Negative ", LabelNegative, true},
		{"NEUTRAL", LabelNeutral, true},
		{"mixed", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLabel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestScoresOf(t *testing.T) {
	s := Scores{Positive: 0.7, Neutral: 0.2, Negative: 0.1}

	assert.InDelta(t, 0.7, s.Of(LabelPositive), 1e-9)
	assert.InDelta(t, 0.2, s.Of(LabelNeutral), 1e-9)
	assert.InDelta(t, 0.1, s.Of(LabelNegative), 1e-9)
	assert.Zero(t, s.Of(Label("other")))
}

func TestParsePolarity(t *testing.T) {
	assert.Equal(t, LabelPositive, ParsePolarity("Positive"))
	assert.Equal(t, LabelNeutral, ParsePolarity("sarcastic"))
}
