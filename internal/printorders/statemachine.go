package printorders

import "github.com/angelmondragon/storyprint-backend/pkg/enums"

type statusSet map[enums.FulfillmentStatus]struct{}

func newStatusSet(statuses ...enums.FulfillmentStatus) statusSet {
	set := make(statusSet, len(statuses))
	for _, status := range statuses {
		set[status] = struct{}{}
	}
	return set
}

func (s statusSet) has(status enums.FulfillmentStatus) bool {
	_, ok := s[status]
	return ok
}

// allowedTransitions is the complete fulfillment graph. Jumps forward out of
// submitted, on_hold and confirmed exist for broker refreshes, which may
// report a later stage directly.
var allowedTransitions = map[enums.FulfillmentStatus]statusSet{
	enums.FulfillmentDraft: newStatusSet(
		enums.FulfillmentValidating,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentValidating: newStatusSet(
		enums.FulfillmentValidationFailed,
		enums.FulfillmentReadyToSubmit,
		enums.FulfillmentSubmitting,
		enums.FulfillmentApproved,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentValidationFailed: newStatusSet(
		enums.FulfillmentValidating,
		enums.FulfillmentReadyToSubmit,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentReadyToSubmit: newStatusSet(
		enums.FulfillmentAwaitingApproval,
		enums.FulfillmentApproved,
		enums.FulfillmentValidating,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentAwaitingApproval: newStatusSet(
		enums.FulfillmentApproved,
		enums.FulfillmentValidating,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentApproved: newStatusSet(
		enums.FulfillmentValidating,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentSubmitting: newStatusSet(
		enums.FulfillmentSubmitted,
		enums.FulfillmentApproved,
		enums.FulfillmentCancelled,
	),
	enums.FulfillmentSubmitted: newStatusSet(
		enums.FulfillmentConfirmed,
		enums.FulfillmentOnHold,
		enums.FulfillmentInProduction,
		enums.FulfillmentPrinted,
		enums.FulfillmentShipped,
		enums.FulfillmentCancelled,
		enums.FulfillmentFailed,
	),
	enums.FulfillmentOnHold: newStatusSet(
		enums.FulfillmentSubmitted,
		enums.FulfillmentConfirmed,
		enums.FulfillmentInProduction,
		enums.FulfillmentCancelled,
		enums.FulfillmentFailed,
	),
	enums.FulfillmentConfirmed: newStatusSet(
		enums.FulfillmentInProduction,
		enums.FulfillmentPrinted,
		enums.FulfillmentShipped,
		enums.FulfillmentCancelled,
		enums.FulfillmentFailed,
	),
	enums.FulfillmentInProduction: newStatusSet(
		enums.FulfillmentPrinted,
		enums.FulfillmentShipped,
		enums.FulfillmentFailed,
	),
	enums.FulfillmentPrinted: newStatusSet(
		enums.FulfillmentShipped,
		enums.FulfillmentFailed,
	),
	enums.FulfillmentShipped: newStatusSet(
		enums.FulfillmentDelivered,
		enums.FulfillmentFailed,
	),
}

// CanTransition reports whether from → to is an edge of the fulfillment graph.
func CanTransition(from, to enums.FulfillmentStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next.has(to)
}

var (
	approvableStatuses   = newStatusSet(enums.FulfillmentAwaitingApproval, enums.FulfillmentReadyToSubmit)
	confirmableStatuses  = newStatusSet(enums.FulfillmentSubmitted, enums.FulfillmentOnHold)
	// validating is included so a check interrupted by a failed write can be rerun
	revalidatableStatuses = newStatusSet(
		enums.FulfillmentDraft,
		enums.FulfillmentValidating,
		enums.FulfillmentValidationFailed,
		enums.FulfillmentReadyToSubmit,
		enums.FulfillmentAwaitingApproval,
		enums.FulfillmentApproved,
	)
	// no cancel once the printer has started or the order has ended
	nonCancellableStatuses = newStatusSet(
		enums.FulfillmentInProduction,
		enums.FulfillmentPrinted,
		enums.FulfillmentShipped,
		enums.FulfillmentDelivered,
		enums.FulfillmentCancelled,
		enums.FulfillmentFailed,
	)
	unpayableStatuses = newStatusSet(enums.FulfillmentCancelled, enums.FulfillmentFailed)
)
