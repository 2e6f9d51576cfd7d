package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("warn", &buf)

	l.Debug("hidden")
	l.Info("hidden %d", 1)
	l.Warn("careful %s", "now")
	l.Error(errors.New("boom"))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "careful now", got[0]["message"])
	assert.Equal(t, "error", got[1]["level"])
	assert.Equal(t, "boom", got[1]["message"])
}

func TestLogger_FormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", &buf)

	l.Info("plain %s", "100%")
	l.Error("transcription - %s: %v", "inference", errors.New("bad audio"))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "plain 100%", got[0]["message"])
	assert.Equal(t, "transcription - inference: bad audio", got[1]["message"])
	assert.NotEmpty(t, got[1]["caller"])
}
