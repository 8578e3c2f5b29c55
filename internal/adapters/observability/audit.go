package observability

import (
	"context"

	"github.com/rs/zerolog"

	"travel_inventory/internal/domain"
)

// Auditor writes audit entries as structured log lines on a dedicated logger.
type Auditor struct {
	l zerolog.Logger
}

func NewAuditor(l zerolog.Logger) *Auditor {
	return &Auditor{l: l.With().Str("stream", "audit").Logger()}
}

func (a *Auditor) Record(ctx context.Context, e domain.AuditEntry) error {
	ev := a.l.Info().
		Str("action", e.Action).
		Time("occurred", e.Occurred)
	if e.RoomID != 0 {
		ev = ev.Int64("room_id", e.RoomID)
	}
	if len(e.Detail) > 0 {
		ev = ev.Fields(e.Detail)
	}
	ev.Msg("audit")
	return nil
}
