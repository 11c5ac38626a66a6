package enums

import "fmt"

// FulfillmentStatus is the lifecycle position of a print order.
type FulfillmentStatus string

const (
	FulfillmentDraft            FulfillmentStatus = "draft"
	FulfillmentValidating       FulfillmentStatus = "validating"
	FulfillmentValidationFailed FulfillmentStatus = "validation_failed"
	FulfillmentReadyToSubmit    FulfillmentStatus = "ready_to_submit"
	FulfillmentAwaitingApproval FulfillmentStatus = "awaiting_approval"
	FulfillmentApproved         FulfillmentStatus = "approved"
	FulfillmentSubmitting       FulfillmentStatus = "submitting"
	FulfillmentSubmitted        FulfillmentStatus = "submitted"
	FulfillmentOnHold           FulfillmentStatus = "on_hold"
	FulfillmentConfirmed        FulfillmentStatus = "confirmed"
	FulfillmentInProduction     FulfillmentStatus = "in_production"
	FulfillmentPrinted          FulfillmentStatus = "printed"
	FulfillmentShipped          FulfillmentStatus = "shipped"
	FulfillmentDelivered        FulfillmentStatus = "delivered"
	FulfillmentCancelled        FulfillmentStatus = "cancelled"
	FulfillmentFailed           FulfillmentStatus = "failed"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentDraft,
	FulfillmentValidating,
	FulfillmentValidationFailed,
	FulfillmentReadyToSubmit,
	FulfillmentAwaitingApproval,
	FulfillmentApproved,
	FulfillmentSubmitting,
	FulfillmentSubmitted,
	FulfillmentOnHold,
	FulfillmentConfirmed,
	FulfillmentInProduction,
	FulfillmentPrinted,
	FulfillmentShipped,
	FulfillmentDelivered,
	FulfillmentCancelled,
	FulfillmentFailed,
}

// String implements fmt.Stringer.
func (s FulfillmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (s FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s FulfillmentStatus) IsTerminal() bool {
	switch s {
	case FulfillmentDelivered, FulfillmentCancelled, FulfillmentFailed:
		return true
	default:
		return false
	}
}

// FulfillmentStatuses returns every known status in lifecycle order.
func FulfillmentStatuses() []FulfillmentStatus {
	out := make([]FulfillmentStatus, len(validFulfillmentStatuses))
	copy(out, validFulfillmentStatuses)
	return out
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
