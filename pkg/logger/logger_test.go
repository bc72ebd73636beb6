package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLoggerIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("before init", zap.String("k", "v"))
		Sync()
	})
}

func TestSetCapturesEntries(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Info("lead rescored", zap.String("lead_id", "abc"))
	Debug("dropped below level")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "lead rescored", entries[0].Message)
		assert.Equal(t, "abc", entries[0].ContextMap()["lead_id"])
	}
	assert.NotNil(t, L())
}
