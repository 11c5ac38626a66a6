package printorders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/pagination"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

// PrintOrderDTO is the API view of a print order. Process log and broker
// interactions are only populated for admins.
type PrintOrderDTO struct {
	ID                 uuid.UUID                  `json:"id"`
	ParentUID          uuid.UUID                  `json:"parentUid"`
	StoryID            uuid.UUID                  `json:"storyId"`
	OutputID           uuid.UUID                  `json:"outputId"`
	ProductID          uuid.UUID                  `json:"productId"`
	Product            types.ProductSnapshot      `json:"product"`
	Quantity           int                        `json:"quantity"`
	CustomOptions      map[string]any             `json:"customOptions,omitempty"`
	EstimatedCost      types.CostEstimate         `json:"estimatedCost"`
	PrintableFiles     types.PrintableFiles       `json:"printableFiles"`
	PrintableMetadata  types.PrintableMetadata    `json:"printableMetadata"`
	ShippingAddress    types.ShippingAddress      `json:"shippingAddress"`
	ContactEmail       string                     `json:"contactEmail"`
	FulfillmentStatus  string                     `json:"fulfillmentStatus"`
	PaymentStatus      string                     `json:"paymentStatus"`
	PaidAt             *time.Time                 `json:"paidAt,omitempty"`
	ValidationResult   *types.ValidationResult    `json:"validationResult,omitempty"`
	MixamOrderID       *string                    `json:"mixamOrderId,omitempty"`
	MixamJobNumber     *string                    `json:"mixamJobNumber,omitempty"`
	MixamStatus        *string                    `json:"mixamStatus,omitempty"`
	MixamCheckedAt     *time.Time                 `json:"mixamStatusCheckedAt,omitempty"`
	TrackingURL        *string                    `json:"trackingUrl,omitempty"`
	EstimatedDelivery  *time.Time                 `json:"estimatedDelivery,omitempty"`
	FulfillmentNotes   *string                    `json:"fulfillmentNotes,omitempty"`
	CancellationReason *string                    `json:"cancellationReason,omitempty"`
	SubmitAttempts     int                        `json:"submitAttempts"`
	ApprovedAt         *time.Time                 `json:"approvedAt,omitempty"`
	ApprovedBy         *uuid.UUID                 `json:"approvedBy,omitempty"`
	SubmittedAt        *time.Time                 `json:"submittedAt,omitempty"`
	ConfirmedAt        *time.Time                 `json:"confirmedAt,omitempty"`
	CancelledAt        *time.Time                 `json:"cancelledAt,omitempty"`
	StatusHistory      []types.StatusHistoryEntry `json:"statusHistory"`
	ProcessLog         []types.ProcessLogEntry    `json:"processLog,omitempty"`
	MixamInteractions  []types.BrokerInteraction  `json:"mixamInteractions,omitempty"`
	Version            int                        `json:"version"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
}

// AdminDTO includes the full audit trail.
func AdminDTO(o *models.PrintOrder) PrintOrderDTO {
	dto := ParentDTO(o)
	dto.ProcessLog = o.ProcessLog
	dto.MixamInteractions = o.MixamInteractions
	return dto
}

func ParentDTO(o *models.PrintOrder) PrintOrderDTO {
	return PrintOrderDTO{
		ID:                 o.ID,
		ParentUID:          o.ParentUID,
		StoryID:            o.StoryID,
		OutputID:           o.OutputID,
		ProductID:          o.PrintProductID,
		Product:            o.ProductSnapshot,
		Quantity:           o.Quantity,
		CustomOptions:      o.CustomOptions,
		EstimatedCost:      o.EstimatedCost,
		PrintableFiles:     o.PrintableFiles,
		PrintableMetadata:  o.PrintableMetadata,
		ShippingAddress:    o.ShippingAddress,
		ContactEmail:       o.ContactEmail,
		FulfillmentStatus:  string(o.FulfillmentStatus),
		PaymentStatus:      string(o.PaymentStatus),
		PaidAt:             o.PaidAt,
		ValidationResult:   o.ValidationResult,
		MixamOrderID:       o.MixamOrderID,
		MixamJobNumber:     o.MixamJobNumber,
		MixamStatus:        o.MixamStatus,
		MixamCheckedAt:     o.MixamStatusCheckedAt,
		TrackingURL:        o.TrackingURL,
		EstimatedDelivery:  o.EstimatedDelivery,
		FulfillmentNotes:   o.FulfillmentNotes,
		CancellationReason: o.CancellationReason,
		SubmitAttempts:     o.SubmitAttempts,
		ApprovedAt:         o.ApprovedAt,
		ApprovedBy:         o.ApprovedBy,
		SubmittedAt:        o.SubmittedAt,
		ConfirmedAt:        o.ConfirmedAt,
		CancelledAt:        o.CancelledAt,
		StatusHistory:      o.StatusHistory,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// PageDTO maps a page of orders through view.
func PageDTO(page pagination.Page[models.PrintOrder], view func(*models.PrintOrder) PrintOrderDTO) pagination.Page[PrintOrderDTO] {
	items := make([]PrintOrderDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, view(&page.Items[i]))
	}
	return pagination.Page[PrintOrderDTO]{Items: items, NextCursor: page.NextCursor}
}
