package enums

import "fmt"

// PrintOrderFilter groups fulfillment statuses for admin listings.
type PrintOrderFilter string

const (
	PrintOrderFilterPending   PrintOrderFilter = "pending"
	PrintOrderFilterApproved  PrintOrderFilter = "approved"
	PrintOrderFilterSubmitted PrintOrderFilter = "submitted"
	PrintOrderFilterCompleted PrintOrderFilter = "completed"
	PrintOrderFilterAll       PrintOrderFilter = "all"
)

var printOrderFilterStatuses = map[PrintOrderFilter][]FulfillmentStatus{
	PrintOrderFilterPending: {
		FulfillmentDraft,
		FulfillmentValidating,
		FulfillmentValidationFailed,
		FulfillmentReadyToSubmit,
		FulfillmentAwaitingApproval,
	},
	PrintOrderFilterApproved: {
		FulfillmentApproved,
		FulfillmentSubmitting,
	},
	PrintOrderFilterSubmitted: {
		FulfillmentSubmitted,
		FulfillmentOnHold,
		FulfillmentConfirmed,
		FulfillmentInProduction,
		FulfillmentPrinted,
		FulfillmentShipped,
	},
	PrintOrderFilterCompleted: {
		FulfillmentDelivered,
		FulfillmentCancelled,
		FulfillmentFailed,
	},
	PrintOrderFilterAll: nil,
}

// IsValid reports whether the value is a known PrintOrderFilter.
func (f PrintOrderFilter) IsValid() bool {
	_, ok := printOrderFilterStatuses[f]
	return ok
}

// Statuses lists the statuses the filter selects. A nil slice means no
// restriction.
func (f PrintOrderFilter) Statuses() []FulfillmentStatus {
	statuses := printOrderFilterStatuses[f]
	if statuses == nil {
		return nil
	}
	out := make([]FulfillmentStatus, len(statuses))
	copy(out, statuses)
	return out
}

// ParsePrintOrderFilter converts raw input into a PrintOrderFilter. An empty
// value selects every order.
func ParsePrintOrderFilter(value string) (PrintOrderFilter, error) {
	if value == "" {
		return PrintOrderFilterAll, nil
	}
	f := PrintOrderFilter(value)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid print order filter %q", value)
	}
	return f, nil
}
