package printorders

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/mixam"
)

func TestInteractionLoggerRecordsFailureBeforeResponse(t *testing.T) {
	var buf bytes.Buffer
	il := NewInteractionLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf}))
	mixamID := "MX-7"
	order := &models.PrintOrder{ID: uuid.New(), MixamOrderID: &mixamID}

	record := il.Record(context.Background(), order, mixam.Interaction{
		Operation:      mixam.OpCancelOrder,
		Method:         "POST",
		Path:           "/api/public/orders/MX-7/cancel",
		RequestSummary: "orderId=MX-7",
		Error:          "mixam cancel_order: context deadline exceeded",
		StartedAt:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("BST", 3600)),
		Duration:       1500 * time.Millisecond,
	})

	assert.Equal(t, order.ID.String(), record.OrderID)
	assert.Equal(t, &mixamID, record.MixamOrderID)
	assert.Equal(t, "outbound", record.Direction)
	assert.Equal(t, "orderId=MX-7", record.PayloadSummary)
	assert.Nil(t, record.HTTPStatus)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, int64(1500), record.DurationMS)
	assert.Equal(t, time.UTC, record.Timestamp.Location())
	assert.Contains(t, buf.String(), `"message":"mixam.interaction"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestInteractionLoggerRecordsSuccess(t *testing.T) {
	il := NewInteractionLogger(nil)
	record := il.Record(context.Background(), &models.PrintOrder{ID: uuid.New()}, mixam.Interaction{
		Operation:  mixam.OpGetStatus,
		HTTPStatus: 200,
	})
	require.NotNil(t, record.HTTPStatus)
	assert.Equal(t, 200, *record.HTTPStatus)
	assert.Nil(t, record.ErrorMessage)
}
