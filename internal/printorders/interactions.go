package printorders

import (
	"context"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/mixam"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

const directionOutbound = "outbound"

// InteractionLogger turns broker exchanges into audit records and mirrors
// each one to the structured log.
type InteractionLogger struct {
	logg *logger.Logger
}

func NewInteractionLogger(logg *logger.Logger) *InteractionLogger {
	return &InteractionLogger{logg: logg}
}

// Record builds the stored record for one broker call. The caller appends it
// to the order in the same write as the rest of the outcome.
func (l *InteractionLogger) Record(ctx context.Context, order *models.PrintOrder, in mixam.Interaction) types.BrokerInteraction {
	record := types.BrokerInteraction{
		Timestamp:      in.StartedAt.UTC(),
		OrderID:        order.ID.String(),
		MixamOrderID:   order.MixamOrderID,
		Operation:      in.Operation,
		Direction:      directionOutbound,
		Method:         in.Method,
		Path:           in.Path,
		PayloadSummary: in.RequestSummary,
		DurationMS:     in.Duration.Milliseconds(),
	}
	if in.HTTPStatus > 0 {
		status := in.HTTPStatus
		record.HTTPStatus = &status
	}
	if in.Error != "" {
		msg := in.Error
		record.ErrorMessage = &msg
	}

	fields := map[string]any{
		"operation":   in.Operation,
		"method":      in.Method,
		"path":        in.Path,
		"duration_ms": record.DurationMS,
		"http_status": in.HTTPStatus,
	}
	if order.MixamOrderID != nil {
		fields["mixam_order_id"] = *order.MixamOrderID
	}
	logCtx := l.logg.WithFields(l.logg.WithOrderID(ctx, order.ID.String()), fields)
	if in.Error != "" {
		l.logg.Warn(l.logg.WithField(logCtx, "error", in.Error), "mixam.interaction")
		return record
	}
	l.logg.Info(logCtx, "mixam.interaction")
	if in.ResponseSnippet != "" {
		l.logg.Debug(l.logg.WithField(logCtx, "response", in.ResponseSnippet), "mixam.interaction.response")
	}
	return record
}
