package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/sentiment-dashboard/internal/core/llm"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/process/batch"
)

func TestRun_WritesExport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "reviews.txt")
	require.NoError(t, os.WriteFile(input, []byte("I love it\n\nterrible support\nit arrived\n"), 0o600))

	runner := batch.New(config.BatchConfig{ChunkSize: 2}, llm.NewMock(), nil)
	now := time.UnixMilli(1700000000000)

	var out bytes.Buffer

	path, err := run(context.Background(), analyzeConfig{inputPath: input, outputDir: dir, format: "json", maxBytes: 1 << 10}, runner, &out, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sentiment-analysis-1700000000000.json"), path)
	assert.Contains(t, out.String(), "Texts analyzed:     3")
	assert.Contains(t, out.String(), "100%")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "["))
	assert.Contains(t, string(data), "terrible support")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	runner := batch.New(config.BatchConfig{}, llm.NewMock(), nil)

	_, err := run(context.Background(), analyzeConfig{}, runner, &bytes.Buffer{}, time.Now())
	require.ErrorIs(t, err, errNoInput)

	_, err = run(context.Background(), analyzeConfig{inputPath: "x.txt", format: "xml"}, runner, &bytes.Buffer{}, time.Now())
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n  \n"), 0o600))

	_, err = run(context.Background(), analyzeConfig{inputPath: empty, outputDir: dir, format: "csv", maxBytes: 1 << 10}, runner, &bytes.Buffer{}, time.Now())
	require.Error(t, err)
}
