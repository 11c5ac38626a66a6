package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyprint-backend/pkg/enums"
)

// PrintOrderEvent is the shared payload of every print order lifecycle event.
type PrintOrderEvent struct {
	OrderID           uuid.UUID               `json:"order_id"`
	ParentUID         uuid.UUID               `json:"parent_uid"`
	StoryID           uuid.UUID               `json:"story_id"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	PreviousStatus    enums.FulfillmentStatus `json:"previous_status,omitempty"`
	MixamOrderID      *string                 `json:"mixam_order_id,omitempty"`
	MixamStatus       *string                 `json:"mixam_status,omitempty"`
	TrackingURL       *string                 `json:"tracking_url,omitempty"`
	Reason            *string                 `json:"reason,omitempty"`
	ContactEmail      string                  `json:"contact_email"`
	OccurredAt        time.Time               `json:"occurred_at"`
}

// PrintOrderPaidEvent is emitted when the parent pays for an order.
type PrintOrderPaidEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ParentUID uuid.UUID `json:"parent_uid"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	PaidAt    time.Time `json:"paid_at"`
}
