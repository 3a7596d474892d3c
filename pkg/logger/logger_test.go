package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info").With(String("component", "test"))

	l.Info("analysis done", Int("tickers", 3), Float64("threshold", 0.7), Strings("symbols", []string{"A", "B"}), Error(errors.New("boom")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analysis done", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, float64(3), entry["tickers"])
	assert.Equal(t, 0.7, entry["threshold"])
	assert.Equal(t, "A, B", entry["symbols"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Info("dropped")
	l.Debug("dropped")
	assert.Zero(t, buf.Len())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}
