// Package export renders a result history as a downloadable CSV or JSON file.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const (
	mimeCSV        = "text/csv"
	mimeJSON       = "application/json"
	filenamePrefix = "sentiment-analysis-"
	jsonIndent     = "  "
	csvHeader      = "Text,Label,Confidence,Positive Score,Neutral Score,Negative Score,Explanation"
)

// Artifact is a rendered export ready to be served as a download.
type Artifact struct {
	Content  []byte
	Filename string
	MimeType string
}

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", apperrors.ErrInvalidInput, s)
	}
}

// Export renders history in the given format. now stamps the filename.
func Export(history []domain.SentimentResult, format Format, now time.Time) (Artifact, error) {
	if len(history) == 0 {
		return Artifact{}, apperrors.ErrNothingToExport
	}

	var (
		art Artifact
		err error
	)

	switch format {
	case FormatCSV:
		art = Artifact{Content: []byte(renderCSV(history)), MimeType: mimeCSV}
	case FormatJSON:
		art.MimeType = mimeJSON

		art.Content, err = json.MarshalIndent(history, "", jsonIndent)
		if err != nil {
			return Artifact{}, fmt.Errorf("marshal export: %w", err)
		}
	default:
		return Artifact{}, fmt.Errorf("%w: unsupported export format %q", apperrors.ErrInvalidInput, format)
	}

	art.Filename = fmt.Sprintf("%s%d.%s", filenamePrefix, now.UnixMilli(), format)

	observability.Exports.WithLabelValues(string(format)).Inc()

	return art, nil
}

// renderCSV always quotes the free-text columns so spreadsheet tools never
// split them, which encoding/csv only does when a field needs it.
func renderCSV(history []domain.SentimentResult) string {
	var sb strings.Builder

	sb.WriteString(csvHeader)

	for _, r := range history {
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, "%s,%s,%.3f,%.3f,%.3f,%.3f,%s",
			quoteField(r.Text),
			r.Label,
			r.Confidence,
			r.Scores.Positive,
			r.Scores.Neutral,
			r.Scores.Negative,
			quoteField(r.Explanation),
		)
	}

	return sb.String()
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
