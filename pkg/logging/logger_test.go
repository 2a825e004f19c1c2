package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Info(CategoryWorkflow, "artifact_created", "created vision", map[string]any{
		"artifact": "Vision Document",
	}))
	require.NoError(t, logger.Error(CategoryModel, "provider_error", "bad status", nil))

	events := readEvents(t, filepath.Join(dir, "events.jsonl"))
	require.Len(t, events, 2)
	assert.Equal(t, CategoryWorkflow, events[0].Category)
	assert.Equal(t, "artifact_created", events[0].EventType)
	assert.False(t, events[0].Timestamp.IsZero())

	errs := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	require.Len(t, errs, 1)
	assert.Equal(t, "provider_error", errs[0].EventType)
}

func TestLoggerMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Debug(CategoryStorage, "query", "ignored at info level", nil))
	events := readEvents(t, filepath.Join(dir, "events.jsonl"))
	assert.Empty(t, events)

	logger.SetMinLevel(LevelDebug)
	require.NoError(t, logger.Debug(CategoryStorage, "query", "visible at debug level", nil))
	events = readEvents(t, filepath.Join(dir, "events.jsonl"))
	assert.Len(t, events, 1)
}

func TestDiscardLoggerIsSafe(t *testing.T) {
	logger := Discard()
	assert.NoError(t, logger.Info(CategoryAPI, "request", "dropped", nil))
	assert.NoError(t, logger.Close())

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Log(Event{Level: LevelInfo}))
}
