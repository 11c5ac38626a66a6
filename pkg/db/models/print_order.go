package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

// PrintOrder is one request to print physical copies of a storybook.
type PrintOrder struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentUID uuid.UUID `gorm:"column:parent_uid;type:uuid;not null"`
	StoryID   uuid.UUID `gorm:"column:story_id;type:uuid;not null"`
	OutputID  uuid.UUID `gorm:"column:output_id;type:uuid;not null"`

	PrintProductID  uuid.UUID             `gorm:"column:print_product_id;type:uuid;not null"`
	ProductSnapshot types.ProductSnapshot `gorm:"column:product_snapshot;type:jsonb;serializer:json;not null"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	CustomOptions   map[string]any        `gorm:"column:custom_options;type:jsonb;serializer:json"`
	EstimatedCost   types.CostEstimate    `gorm:"column:estimated_cost;type:jsonb;serializer:json;not null"`

	PrintableFiles    types.PrintableFiles    `gorm:"column:printable_files;type:jsonb;serializer:json;not null"`
	PrintableMetadata types.PrintableMetadata `gorm:"column:printable_metadata;type:jsonb;serializer:json;not null"`

	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	ContactEmail    string                `gorm:"column:contact_email;not null"`

	MixamOrderID         *string         `gorm:"column:mixam_order_id"`
	MixamJobNumber       *string         `gorm:"column:mixam_job_number"`
	MixamStatus          *string         `gorm:"column:mixam_status"`
	MixamStatusCheckedAt *time.Time      `gorm:"column:mixam_status_checked_at"`
	MixamResponse        json.RawMessage `gorm:"column:mixam_response;type:jsonb"`
	TrackingURL          *string         `gorm:"column:tracking_url"`
	EstimatedDelivery    *time.Time      `gorm:"column:estimated_delivery"`

	FulfillmentStatus  enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null"`
	PaymentStatus      enums.PaymentStatus     `gorm:"column:payment_status;not null;default:unpaid"`
	PaidAt             *time.Time              `gorm:"column:paid_at"`
	ValidationResult   *types.ValidationResult `gorm:"column:validation_result;type:jsonb;serializer:json"`
	FulfillmentNotes   *string                 `gorm:"column:fulfillment_notes"`
	CancellationReason *string                 `gorm:"column:cancellation_reason"`
	SubmitAttempts     int                     `gorm:"column:submit_attempts;not null;default:0"`
	ApprovedAt         *time.Time              `gorm:"column:approved_at"`
	ApprovedBy         *uuid.UUID              `gorm:"column:approved_by;type:uuid"`
	SubmittedAt        *time.Time              `gorm:"column:submitted_at"`
	ConfirmedAt        *time.Time              `gorm:"column:confirmed_at"`
	CancelledAt        *time.Time              `gorm:"column:cancelled_at"`

	StatusHistory     []types.StatusHistoryEntry `gorm:"column:status_history;type:jsonb;serializer:json;not null"`
	ProcessLog        []types.ProcessLogEntry    `gorm:"column:process_log;type:jsonb;serializer:json;not null"`
	MixamInteractions []types.BrokerInteraction  `gorm:"column:mixam_interactions;type:jsonb;serializer:json;not null"`

	Version   int       `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PrintOrder) TableName() string { return "print_orders" }

// LatestValidation returns the stored validation outcome, if any.
func (o *PrintOrder) LatestValidation() (types.ValidationResult, bool) {
	if o.ValidationResult == nil {
		return types.ValidationResult{}, false
	}
	return *o.ValidationResult, true
}
