package mixam

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storyprint-backend/pkg/enums"
)

// NormalizeStatus lower-cases the broker value and folds spaces and dashes
// into underscores.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// MapStatus translates a broker status into the local fulfillment status.
func MapStatus(raw string) (enums.FulfillmentStatus, error) {
	switch NormalizeStatus(raw) {
	case "submitted", "pending":
		return enums.FulfillmentSubmitted, nil
	case "on_hold":
		return enums.FulfillmentOnHold, nil
	case "confirmed":
		return enums.FulfillmentConfirmed, nil
	case "in_production":
		return enums.FulfillmentInProduction, nil
	case "printed":
		return enums.FulfillmentPrinted, nil
	case "shipped", "dispatched":
		return enums.FulfillmentShipped, nil
	case "delivered":
		return enums.FulfillmentDelivered, nil
	case "cancelled", "canceled":
		return enums.FulfillmentCancelled, nil
	case "failed":
		return enums.FulfillmentFailed, nil
	default:
		return "", &Error{
			Op:     "map_status",
			Reason: fmt.Sprintf("unrecognised status %q", raw),
			Err:    ErrUnknownStatus,
		}
	}
}
