package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregatePrintOrder OutboxAggregateType = "print_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePrintOrder,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPrintOrderCreated       OutboxEventType = "print_order_created"
	EventPrintOrderApproved      OutboxEventType = "print_order_approved"
	EventPrintOrderSubmitted     OutboxEventType = "print_order_submitted"
	EventPrintOrderConfirmed     OutboxEventType = "print_order_confirmed"
	EventPrintOrderCancelled     OutboxEventType = "print_order_cancelled"
	EventPrintOrderStatusChanged OutboxEventType = "print_order_status_changed"
	EventPrintOrderPaid          OutboxEventType = "print_order_paid"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPrintOrderCreated,
	EventPrintOrderApproved,
	EventPrintOrderSubmitted,
	EventPrintOrderConfirmed,
	EventPrintOrderCancelled,
	EventPrintOrderStatusChanged,
	EventPrintOrderPaid,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
