package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const segmentSample = "Cats purr when content.\n\nStocks fell sharply today."

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSegmentCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := executeCommand("segment")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSegmentCmd_PrintsChunks(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "sample.txt", segmentSample)

	out, err := executeCommand("segment", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Chunk 1")
	assert.Contains(t, out, "Chunk 2")
	assert.Contains(t, out, "Stocks fell sharply today.")
	assert.Contains(t, out, "Total: 2 chunks")
}

func TestSegmentCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "sample.txt", segmentSample)

	out, err := executeCommand("segment", "--json", path)

	require.NoError(t, err)
	var chunks []segmentChunk
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, "Cats purr when content.", chunks[0].Content)
}

func TestSegmentCmd_ReadsStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockSegmentService{}
	segmentService = mock
	rootCmd.SetIn(strings.NewReader("From stdin."))
	defer rootCmd.SetIn(nil)

	_, err := executeCommand("segment", "-")

	require.NoError(t, err)
	assert.Equal(t, "From stdin.", mock.text)
}

func TestSegmentCmd_NoFlagsUsesConfiguredSettings(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockSegmentService{}
	segmentService = mock
	path := writeTempFile(t, "sample.txt", segmentSample)

	_, err := executeCommand("segment", path)

	require.NoError(t, err)
	assert.Nil(t, mock.opts.Settings)
	assert.Equal(t, "auto", mock.opts.Splitter)
}

func TestSegmentCmd_FlagsOverrideSettings(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockSegmentService{}
	segmentService = mock
	path := writeTempFile(t, "sample.txt", segmentSample)

	_, err := executeCommand("segment", "--min-tokens", "10", "--target-tokens", "50",
		"--max-tokens", "80", "--smoothing-radius", "0", "--splitter", "regex", path)

	require.NoError(t, err)
	require.NotNil(t, mock.opts.Settings)
	assert.Equal(t, 10, mock.opts.Settings.MinTokens)
	assert.Equal(t, 50, mock.opts.Settings.TargetTokens)
	assert.Equal(t, 80, mock.opts.Settings.MaxTokens)
	assert.Equal(t, 0, mock.opts.Settings.SmoothingWindowRadius)
	d := domain.DefaultSegmentationSettings()
	assert.Equal(t, d.SimilarityDropThreshold, mock.opts.Settings.SimilarityDropThreshold)
	assert.Equal(t, "regex", mock.opts.Splitter)
}

func TestSegmentCmd_InvalidBounds(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, "sample.txt", segmentSample)

	_, err := executeCommand("segment", "--min-tokens", "5000", path)

	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestSegmentCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("segment", filepath.Join(t.TempDir(), "missing.txt"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestSegmentCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := executeCommand("segment", "-")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "segment service not configured")
}
