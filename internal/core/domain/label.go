package domain

import "strings"

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParsePolarity maps a keyword polarity to a label, falling back to neutral
// for anything the classifier made up.
func ParsePolarity(s string) Label {
	if l, ok := ParseLabel(s); ok {
		return l
	}

	return LabelNeutral
}
