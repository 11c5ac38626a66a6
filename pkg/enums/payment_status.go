package enums

import (
	"fmt"
	"slices"
)

// PaymentStatus tracks whether the parent has settled a print order. Payment
// is independent of fulfillment; an order can be paid at any stage until it
// is cancelled or has failed.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

var validPaymentStatuses = []PaymentStatus{PaymentStatusUnpaid, PaymentStatusPaid}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return slices.Contains(validPaymentStatuses, p) }

// IsPaid reports whether no further payment is expected.
func (p PaymentStatus) IsPaid() bool { return p == PaymentStatusPaid }

// ParsePaymentStatus converts raw input into a PaymentStatus. Empty input is
// treated as unpaid.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if value == "" {
		return PaymentStatusUnpaid, nil
	}
	p := PaymentStatus(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid payment status %q", value)
	}
	return p, nil
}
