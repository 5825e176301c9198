package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTeeLogger_Levels(t *testing.T) {
	var console, file bytes.Buffer
	logger := NewTeeLogger(&console, &file)

	logger.Debug("debug detail", zap.Int("attempt", 3))
	logger.Info("schedule generated", zap.String("scenario", "strict-pairs"))
	require.NoError(t, logger.Sync())

	// Console only gets Info and above
	assert.NotContains(t, console.String(), "debug detail")
	assert.Contains(t, console.String(), "schedule generated")

	// File gets everything as JSON lines
	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "schedule generated", entry["msg"])
	assert.Equal(t, "strict-pairs", entry["scenario"])
	assert.Contains(t, entry, "timestamp")
}

func TestInitLogger_CreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := InitLogger("test", dir)
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "test_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".log"))
}
