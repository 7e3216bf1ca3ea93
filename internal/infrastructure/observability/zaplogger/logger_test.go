package zaplogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/observability"
)

func TestWrap_EmitsFieldsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core))

	log.With(observability.F("component", "checkout_service")).Info("order_created",
		observability.F("order_id", "ord-1"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "order_created", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "checkout_service", fields["component"])
	assert.Equal(t, "ord-1", fields["order_id"])
}

func TestWrap_LevelRouting(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core))

	log.Debug("d")
	log.Warn("w")
	log.Error("e")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}
