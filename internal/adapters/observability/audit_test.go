package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_inventory/internal/adapters/observability"
	"travel_inventory/internal/domain"
)

func TestAuditor_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	a := observability.NewAuditor(zerolog.New(&buf))

	err := a.Record(context.Background(), domain.AuditEntry{
		Action:   "calendar.rule_applied",
		RoomID:   12,
		Detail:   map[string]any{"count": 4, "price": "150"},
		Occurred: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["stream"])
	assert.Equal(t, "calendar.rule_applied", line["action"])
	assert.EqualValues(t, 12, line["room_id"])
	assert.EqualValues(t, 4, line["count"])
	assert.Equal(t, "150", line["price"])
}

func TestNewLogger_LevelFallback(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, observability.NewLogger("prod", "debug").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, observability.NewLogger("prod", "loud").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, observability.NewLogger("dev", "").GetLevel())
}
