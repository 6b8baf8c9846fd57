// Package upload turns uploaded files and pasted text into the ordered list
// of texts handed to the batch orchestrator.
package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
)

// Kind is the upload format, chosen from the file extension.
type Kind string

// Supported kinds. Unknown extensions are read as plain text.
const (
	KindJSON Kind = "json"
	KindCSV  Kind = "csv"
	KindText Kind = "txt"
)

// DefaultMaxBytes bounds an upload when no limit is configured.
const DefaultMaxBytes = 5 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	errEmptyUpload = errors.New("upload contains no text")
	errInvalidUTF8 = errors.New("text is not valid UTF-8")
)

// KindFromFilename picks the parser for a file name.
func KindFromFilename(name string) Kind {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "json":
		return KindJSON
	case "csv":
		return KindCSV
	default:
		return KindText
	}
}

// ReadLimited reads r fully, failing with ErrInvalidInput past maxBytes.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", apperrors.ErrInvalidInput, maxBytes)
	}

	return data, nil
}

// ParseFile parses content according to the extension of name.
func ParseFile(name string, content []byte) ([]string, error) {
	return Parse(KindFromFilename(name), content)
}

// Parse extracts texts from content. Texts are kept exactly as written apart
// from line endings. Blank texts are dropped, and an upload that yields
// nothing or holds invalid UTF-8 is invalid.
func Parse(kind Kind, content []byte) ([]string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	var (
		texts []string
		err   error
	)

	switch kind {
	case KindJSON:
		texts, err = parseJSON(content)
	case KindCSV:
		texts, err = parseCSV(content)
	default:
		texts = parseText(content)
	}

	if err != nil {
		return nil, err
	}

	return clean(texts)
}

// FreeText wraps typed or pasted text as a single-item submission.
func FreeText(s string) ([]string, error) {
	return clean([]string{s})
}

// Clean drops blank entries from texts submitted as a list and rejects
// invalid UTF-8.
func Clean(texts []string) ([]string, error) {
	return clean(texts)
}

// parseJSON maps array elements to texts: strings as-is, objects with a
// string "text" field to that field, anything else to its compact encoding.
// A document that is not an array is one text.
func parseJSON(content []byte) ([]string, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("%w: malformed JSON upload", apperrors.ErrInvalidInput)
	}

	doc := gjson.ParseBytes(content)
	if !doc.IsArray() {
		return []string{string(content)}, nil
	}

	var texts []string

	doc.ForEach(func(_, item gjson.Result) bool {
		switch {
		case item.Type == gjson.String:
			texts = append(texts, item.Str)
		case item.IsObject() && item.Get("text").Type == gjson.String && item.Get("text").Str != "":
			texts = append(texts, item.Get("text").Str)
		default:
			texts = append(texts, gjson.Get(item.Raw, "@ugly").Raw)
		}

		return true
	})

	return texts, nil
}

// parseCSV takes the first column of every record after the header.
func parseCSV(content []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed CSV upload: %w", apperrors.ErrInvalidInput, err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	texts := make([]string, 0, len(records)-1)

	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}

		texts = append(texts, rec[0])
	}

	return texts, nil
}

func parseText(content []byte) []string {
	lines := strings.Split(string(content), "\n")
	texts := make([]string, 0, len(lines))

	for _, line := range lines {
		texts = append(texts, strings.TrimSuffix(line, "\r"))
	}

	return texts
}

func clean(texts []string) ([]string, error) {
	out := make([]string, 0, len(texts))

	for i, t := range texts {
		if !utf8.ValidString(t) {
			return nil, fmt.Errorf("%w: text %d: %w", apperrors.ErrInvalidInput, i, errInvalidUTF8)
		}

		if strings.TrimSpace(t) == "" {
			continue
		}

		out = append(out, t)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, errEmptyUpload)
	}

	return out, nil
}
