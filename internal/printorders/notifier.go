package printorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/outbox"
	"github.com/angelmondragon/storyprint-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier queues lifecycle events after a transition has been committed.
// Delivery is best-effort: a failure is logged and the order is left as is.
type Notifier struct {
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

func NewNotifier(tx txRunner, emitter outboxEmitter, logg *logger.Logger) *Notifier {
	return &Notifier{tx: tx, outbox: emitter, logg: logg}
}

// Changed emits the event for order's new status. previous is empty for
// newly created orders.
func (n *Notifier) Changed(ctx context.Context, actor Actor, order *models.PrintOrder, previous enums.FulfillmentStatus, reason *string) {
	if n == nil || n.tx == nil || n.outbox == nil {
		return
	}
	now := time.Now().UTC()
	data := payloads.PrintOrderEvent{
		OrderID:           order.ID,
		ParentUID:         order.ParentUID,
		StoryID:           order.StoryID,
		FulfillmentStatus: order.FulfillmentStatus,
		PreviousStatus:    previous,
		MixamOrderID:      order.MixamOrderID,
		MixamStatus:       order.MixamStatus,
		TrackingURL:       order.TrackingURL,
		Reason:            reason,
		ContactEmail:      order.ContactEmail,
		OccurredAt:        now,
	}
	n.emit(ctx, actor, order.ID, eventFor(order.FulfillmentStatus, previous), data, now)
}

// Paid emits the payment event.
func (n *Notifier) Paid(ctx context.Context, actor Actor, order *models.PrintOrder) {
	if n == nil || n.tx == nil || n.outbox == nil {
		return
	}
	paidAt := time.Now().UTC()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	data := payloads.PrintOrderPaidEvent{
		OrderID:   order.ID,
		ParentUID: order.ParentUID,
		Total:     order.EstimatedCost.Total.StringFixed(2),
		Currency:  order.EstimatedCost.Currency,
		PaidAt:    paidAt,
	}
	n.emit(ctx, actor, order.ID, enums.EventPrintOrderPaid, data, paidAt)
}

func (n *Notifier) emit(ctx context.Context, actor Actor, orderID uuid.UUID, eventType enums.OutboxEventType, data any, at time.Time) {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePrintOrder,
		AggregateID:   orderID,
		Data:          data,
		OccurredAt:    at,
	}
	if actor.UserID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
	}
	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return n.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		logCtx := n.logg.WithFields(n.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"event_type": eventType,
			"error":      err.Error(),
		})
		n.logg.Warn(logCtx, "print order notification failed")
	}
}

func eventFor(status, previous enums.FulfillmentStatus) enums.OutboxEventType {
	if previous == "" {
		return enums.EventPrintOrderCreated
	}
	switch status {
	case enums.FulfillmentApproved:
		return enums.EventPrintOrderApproved
	case enums.FulfillmentSubmitted:
		return enums.EventPrintOrderSubmitted
	case enums.FulfillmentConfirmed:
		return enums.EventPrintOrderConfirmed
	case enums.FulfillmentCancelled:
		return enums.EventPrintOrderCancelled
	default:
		return enums.EventPrintOrderStatusChanged
	}
}
