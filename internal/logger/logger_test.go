package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	t.Run("writes structured records", func(t *testing.T) {
		// given
		var buf bytes.Buffer
		log := NewJSONLogger(&buf, false)

		// when
		log.Info("product created", slog.String("barcode", "8000500310427"), slog.Int64("price_converted", 676620))

		// then
		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry), buf.String())
		assert.Equal(t, "product created", logEntry["msg"])
		assert.Equal(t, "8000500310427", logEntry["barcode"])
		assert.Equal(t, float64(676620), logEntry["price_converted"])
		assert.Equal(t, "INFO", logEntry["level"])
		assert.Contains(t, logEntry, "time")
	})

	t.Run("debug records are dropped by default", func(t *testing.T) {
		// given
		var buf bytes.Buffer
		log := NewJSONLogger(&buf, false)

		// when
		log.Debug("hidden")
		log.Warn("visible")

		// then
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], "visible")
	})

	t.Run("debug mode emits debug records", func(t *testing.T) {
		// given
		var buf bytes.Buffer
		log := NewJSONLogger(&buf, true)

		// when
		log.Debug("product removed during sweep", slog.String("barcode", "1"))

		// then
		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
		assert.Equal(t, "DEBUG", logEntry["level"])
	})
}
