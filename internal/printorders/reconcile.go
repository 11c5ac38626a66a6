package printorders

import (
	"fmt"
	"time"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/mixam"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

const (
	logStatusRegressionIgnored = "status_regression_ignored"
	logStatusUnknown           = "mixam_status_unknown"
	logStatusRefreshed         = "mixam_status_changed"
)

type reconcileOutcome struct {
	patch Patch
	// next is the fulfillment status after the patch is applied.
	next enums.FulfillmentStatus
	err  error
}

// reconcile folds a fetched broker status into a patch for order. History is
// only written when the broker status differs from the one last seen.
func reconcile(order *models.PrintOrder, remote *mixam.OrderStatus, record types.BrokerInteraction, now time.Time) reconcileOutcome {
	current := order.FulfillmentStatus
	normalized := mixam.NormalizeStatus(remote.Status)
	previous := ""
	if order.MixamStatus != nil {
		previous = *order.MixamStatus
	}

	out := reconcileOutcome{next: current}
	out.patch.Interactions = []types.BrokerInteraction{record}

	mapped, mapErr := mixam.MapStatus(remote.Status)
	switch {
	case normalized == previous:
	case mapErr != nil:
		out.err = mapErr
		out.patch.Log = []types.ProcessLogEntry{{
			Event:     logStatusUnknown,
			Timestamp: now,
			Message:   fmt.Sprintf("Mixam reported unrecognised status %q", remote.Status),
			Data:      map[string]any{"mixamStatus": remote.Status},
			Source:    string(enums.AuditSourceMixam),
		}}
	default:
		from := previous
		if from == "" {
			from = "none"
		}
		note := fmt.Sprintf("Mixam status changed from %s to %s", from, normalized)
		out.patch.History = &types.StatusHistoryEntry{
			Timestamp: now,
			Note:      note,
			Source:    string(enums.AuditSourceMixam),
		}
		out.patch.Log = []types.ProcessLogEntry{{
			Event:     logStatusRefreshed,
			Timestamp: now,
			Message:   note,
			Data:      map[string]any{"from": previous, "to": normalized},
			Source:    string(enums.AuditSourceMixam),
		}}
		if mapped != current {
			if CanTransition(current, mapped) {
				out.next = mapped
				out.patch.Status = &mapped
			} else {
				out.patch.Log = append(out.patch.Log, types.ProcessLogEntry{
					Event:     logStatusRegressionIgnored,
					Timestamp: now,
					Message:   fmt.Sprintf("Kept %s: Mixam status %s maps to %s which is not reachable", current, normalized, mapped),
					Data:      map[string]any{"current": string(current), "mapped": string(mapped)},
					Source:    string(enums.AuditSourceSystem),
				})
			}
		}
	}

	next := out.next
	out.patch.Mutate = func(o *models.PrintOrder) {
		o.MixamStatusCheckedAt = &now
		if remote.TrackingURL != nil && *remote.TrackingURL != "" {
			o.TrackingURL = remote.TrackingURL
		}
		if remote.EstimatedDelivery != nil {
			o.EstimatedDelivery = remote.EstimatedDelivery
		}
		if o.MixamOrderID == nil && remote.OrderID != "" {
			id := remote.OrderID
			o.MixamOrderID = &id
		}
		if o.MixamJobNumber == nil && remote.JobNumber != "" {
			job := remote.JobNumber
			o.MixamJobNumber = &job
		}
		if mapErr == nil {
			o.MixamStatus = &normalized
		}
		if next == enums.FulfillmentConfirmed && o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
		if next == enums.FulfillmentCancelled && o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
	return out
}
