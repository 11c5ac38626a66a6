package printorders

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/mixam"
	"github.com/angelmondragon/storyprint-backend/pkg/pagination"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

func TestSubmitHappyPath(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	ctx := context.Background()

	order := f.mustCreate(t, 5)
	assert.Equal(t, enums.FulfillmentAwaitingApproval, order.FulfillmentStatus)
	assert.Equal(t, "NW1 5LY", order.ShippingAddress.PostalCode)
	assert.True(t, order.EstimatedCost.Total.Equal(decimal.RequireFromString("69.99")))

	order, err := f.svc.Approve(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentApproved, order.FulfillmentStatus)
	require.NotNil(t, order.ApprovedBy)
	assert.Equal(t, f.admin.UserID, *order.ApprovedBy)

	order, err = f.svc.Submit(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentSubmitted, order.FulfillmentStatus)
	require.NotNil(t, order.MixamOrderID)
	assert.Equal(t, "J-1001", *order.MixamJobNumber)
	assert.Equal(t, 1, order.SubmitAttempts)
	require.Len(t, f.broker.submitted, 1)
	assert.Equal(t, order.ID.String(), f.broker.submitted[0].Metadata.ExternalOrderID)

	stored := f.reload(t, order.ID)
	assert.Equal(t, []string{"awaiting_approval", "approved", "validating", "submitting", "submitted"}, historyStatuses(stored))
	assert.Equal(t, []string{logOrderCreated, logApproved, logSubmitAttempt, logSubmitted}, logEvents(stored))
	require.Len(t, stored.MixamInteractions, 1)
	assert.Equal(t, mixam.OpSubmitOrder, stored.MixamInteractions[0].Operation)
	assert.Equal(t, order.MixamOrderID, stored.MixamInteractions[0].MixamOrderID)
	assert.Equal(t, 5, stored.Version)

	assert.Equal(t, []enums.OutboxEventType{
		enums.EventPrintOrderCreated,
		enums.EventPrintOrderApproved,
		enums.EventPrintOrderSubmitted,
	}, f.eventTypes(t, order.ID))
	assert.Contains(t, f.logs.String(), "mixam.interaction")
}

func TestSubmitRejectsPageCount(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 30)
	order := f.mustApprove(t, 5)

	_, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Message(), "must be a multiple of 4")

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentApproved, stored.FulfillmentStatus)
	assert.Equal(t, 0, stored.SubmitAttempts)
	assert.Equal(t, logSubmitRejected, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
	assert.Empty(t, f.broker.submitted)
}

func TestCancelRefusedWhileInProduction(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustSubmit(t, 5)
	f.broker.cancel = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
		err := &mixam.Error{Op: mixam.OpCancelOrder, StatusCode: http.StatusConflict, Reason: "Order is already in production"}
		return nil, interactionFor(mixam.OpCancelOrder, "POST", "/api/public/orders/"+orderID+"/cancel", http.StatusConflict, err.Error()), err
	}

	_, err := f.svc.Cancel(context.Background(), f.admin, order.ID, strPtr("changed my mind"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentSubmitted, stored.FulfillmentStatus)
	assert.Nil(t, stored.CancelledAt)
	last := stored.MixamInteractions[len(stored.MixamInteractions)-1]
	assert.Equal(t, mixam.OpCancelOrder, last.Operation)
	require.NotNil(t, last.ErrorMessage)
	require.NotNil(t, last.HTTPStatus)
	assert.Equal(t, http.StatusConflict, *last.HTTPStatus)
	assert.Equal(t, logCancelRefused, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}

func TestSubmitNetworkFailureRollsBack(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustApprove(t, 5)
	f.broker.submit = func(ctx context.Context, doc mixam.Document) (*mixam.SubmitResult, mixam.Interaction, error) {
		err := &mixam.Error{Op: mixam.OpSubmitOrder, Reason: "dial tcp: connection refused", Err: errors.New("connection refused")}
		return nil, interactionFor(mixam.OpSubmitOrder, "POST", "/api/public/orders", 0, err.Error()), err
	}

	_, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeBroker, typed.Code())
	assert.Equal(t, "dial tcp: connection refused", typed.Message())

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentApproved, stored.FulfillmentStatus)
	assert.Nil(t, stored.MixamOrderID)
	assert.Equal(t, 1, stored.SubmitAttempts)
	last := stored.StatusHistory[len(stored.StatusHistory)-1]
	assert.Equal(t, "approved", last.Status)
	assert.Equal(t, "submission_failed: dial tcp: connection refused", last.Note)
	require.NotNil(t, stored.FulfillmentNotes)
	assert.Equal(t, last.Note, *stored.FulfillmentNotes)
	assert.Equal(t, logSubmitFailed, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
	require.Len(t, stored.MixamInteractions, 1)
	assert.Nil(t, stored.MixamInteractions[0].HTTPStatus)

	f.broker.submit = nil
	resubmitted, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentSubmitted, resubmitted.FulfillmentStatus)
	assert.Equal(t, 2, resubmitted.SubmitAttempts)
	assert.Nil(t, resubmitted.FulfillmentNotes)

	attempts := 0
	for _, entry := range resubmitted.ProcessLog {
		if entry.Event == logSubmitAttempt {
			attempts++
		}
	}
	assert.Equal(t, 2, attempts)
}

func TestSubmitBrokerRejectionKeepsReasonVerbatim(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustApprove(t, 5)
	f.broker.submit = func(ctx context.Context, doc mixam.Document) (*mixam.SubmitResult, mixam.Interaction, error) {
		err := &mixam.Error{Op: mixam.OpSubmitOrder, StatusCode: http.StatusUnprocessableEntity, Reason: "Spine width exceeds cover bleed"}
		return nil, interactionFor(mixam.OpSubmitOrder, "POST", "/api/public/orders", http.StatusUnprocessableEntity, err.Error()), err
	}

	_, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	require.Error(t, err)
	assert.Equal(t, "Spine width exceeds cover bleed", pkgerrors.As(err).Message())
	stored := f.reload(t, order.ID)
	require.NotNil(t, stored.MixamInteractions[0].HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, *stored.MixamInteractions[0].HTTPStatus)
}

func TestSubmitRequiresApprovedStatus(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustCreate(t, 5)

	_, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, enums.FulfillmentAwaitingApproval, f.reload(t, order.ID).FulfillmentStatus)
}

func TestCreateRejectsInvalidIntake(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	input := f.createInput(101)
	input.ShippingAddress.CountryCode = "FR"

	_, err := f.svc.Create(context.Background(), f.parent, input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["errors"], 2)

	other := Actor{UserID: uuid.New(), Role: enums.ActorRoleParent}
	_, err = f.svc.Create(context.Background(), other, f.createInput(1))
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestApproveRejectsFailedValidation(t *testing.T) {
	f := newServiceFixture(t, enums.BindingCase, 20)
	order := f.mustCreate(t, 2)

	revalidated, err := f.svc.Revalidate(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentValidationFailed, revalidated.FulfillmentStatus)
	require.NotNil(t, revalidated.ValidationResult)
	assert.False(t, revalidated.ValidationResult.Valid)

	_, err = f.svc.Approve(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	f.pages = 24
	revalidated, err = f.svc.Revalidate(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentReadyToSubmit, revalidated.FulfillmentStatus)

	approved, err := f.svc.Approve(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentApproved, approved.FulfillmentStatus)
}

func TestApproveRejectsInvalidStoredResult(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustCreate(t, 2)
	_, err := f.repo.Update(context.Background(), order.ID, order.Version, Patch{Mutate: func(o *models.PrintOrder) {
		o.ValidationResult.Valid = false
		o.ValidationResult.Errors = []string{"cover PDF is missing"}
	}})
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentAwaitingApproval, stored.FulfillmentStatus)
	assert.Equal(t, logApproveRejected, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}

func TestConfirmAndRefresh(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	ctx := context.Background()
	order := f.mustSubmit(t, 5)

	order, err := f.svc.Confirm(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentConfirmed, order.FulfillmentStatus)
	assert.NotNil(t, order.ConfirmedAt)
	historyLen := len(order.StatusHistory)

	f.broker.status = func(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error) {
		return &mixam.OrderStatus{OrderID: ref.OrderID, Status: "Confirmed"}, interactionFor(mixam.OpGetStatus, "GET", "/x", 200, ""), nil
	}
	order, err = f.svc.RefreshStatus(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Len(t, order.StatusHistory, historyLen, "unchanged broker status adds no history")
	assert.NotNil(t, order.MixamStatusCheckedAt)

	tracking := "https://track.test/abc"
	f.broker.status = func(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error) {
		return &mixam.OrderStatus{OrderID: ref.OrderID, Status: "Dispatched", TrackingURL: &tracking}, interactionFor(mixam.OpGetStatus, "GET", "/x", 200, ""), nil
	}
	order, err = f.svc.RefreshStatus(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentShipped, order.FulfillmentStatus)
	require.Len(t, order.StatusHistory, historyLen+1)
	assert.Equal(t, "Mixam status changed from confirmed to dispatched", order.StatusHistory[historyLen].Note)
	assert.Equal(t, &tracking, order.TrackingURL)

	events := f.eventTypes(t, order.ID)
	assert.Equal(t, enums.EventPrintOrderStatusChanged, events[len(events)-1])
}

func TestConfirmFailureLeavesStatus(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustSubmit(t, 5)
	f.broker.confirm = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
		err := &mixam.Error{Op: mixam.OpConfirmOrder, StatusCode: 502, Reason: "upstream unavailable"}
		return nil, interactionFor(mixam.OpConfirmOrder, "POST", "/x", 502, err.Error()), err
	}

	_, err := f.svc.Confirm(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeBroker, pkgerrors.CodeOf(err))
	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentSubmitted, stored.FulfillmentStatus)
	assert.Len(t, stored.MixamInteractions, 2)
	assert.Equal(t, logConfirmFailed, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}

func TestConfirmRequiresBrokerOrder(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustApprove(t, 5)
	_, err := f.svc.Confirm(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentApproved, stored.FulfillmentStatus)
	assert.Equal(t, logConfirmRejected, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}

func TestRefreshUnknownStatusIsBrokerError(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustSubmit(t, 5)
	f.broker.status = func(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error) {
		return &mixam.OrderStatus{OrderID: ref.OrderID, Status: "teleported"}, interactionFor(mixam.OpGetStatus, "GET", "/x", 200, ""), nil
	}

	_, err := f.svc.RefreshStatus(context.Background(), f.admin, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBroker, pkgerrors.CodeOf(err))
	assert.True(t, errors.Is(err, mixam.ErrUnknownStatus))

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentSubmitted, stored.FulfillmentStatus)
	assert.Equal(t, "submitted", *stored.MixamStatus)
	assert.Equal(t, logStatusUnknown, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}

func TestRefreshRequiresBrokerReference(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustCreate(t, 1)
	_, err := f.svc.RefreshStatus(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	stored := f.reload(t, order.ID)
	assert.Equal(t, logRefreshRejected, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}

func TestCancelBrokerErrorStillCancels(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustSubmit(t, 5)
	f.broker.cancel = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
		err := &mixam.Error{Op: mixam.OpCancelOrder, StatusCode: 500, Reason: "internal error"}
		return nil, interactionFor(mixam.OpCancelOrder, "POST", "/x", 500, err.Error()), err
	}

	cancelled, err := f.svc.Cancel(context.Background(), f.admin, order.ID, strPtr("  duplicate order "))
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentCancelled, cancelled.FulfillmentStatus)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "duplicate order", *cancelled.CancellationReason)
	assert.Contains(t, logEvents(cancelled), logCancelBrokerErr)
	assert.Contains(t, f.logs.String(), "mixam cancel failed")

	_, err = f.svc.Cancel(context.Background(), f.admin, order.ID, nil)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestCancelBeforeSubmitSkipsBroker(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustCreate(t, 1)
	f.broker.cancel = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
		t.Fatal("broker cancel should not be called")
		return nil, mixam.Interaction{}, nil
	}

	cancelled, err := f.svc.Cancel(context.Background(), f.admin, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentCancelled, cancelled.FulfillmentStatus)
	assert.Empty(t, cancelled.MixamInteractions)
}

func TestPayIsOwnerOnlyAndIdempotent(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustCreate(t, 1)

	_, err := f.svc.Pay(context.Background(), Actor{UserID: uuid.New(), Role: enums.ActorRoleParent}, order.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	paid, err := f.svc.Pay(context.Background(), f.parent, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)

	again, err := f.svc.Pay(context.Background(), f.parent, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paid.Version, again.Version)

	events := f.eventTypes(t, order.ID)
	assert.Equal(t, enums.EventPrintOrderPaid, events[len(events)-1])
}

func TestGetAndListScopeParents(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	ctx := context.Background()
	first := f.mustCreate(t, 1)
	f.mustApprove(t, 2)

	_, err := f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.ActorRoleParent}, first.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
	got, err := f.svc.Get(ctx, f.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	page, err := f.svc.List(ctx, f.admin, ListInput{Filter: enums.PrintOrderFilterPending})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, f.parent, ListInput{Params: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.NotEmpty(t, page.NextCursor)

	page, err = f.svc.List(ctx, Actor{UserID: uuid.New(), Role: enums.ActorRoleParent}, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = f.svc.List(ctx, f.admin, ListInput{Filter: "shipped"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestNotificationFailureDoesNotRevert(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustCreate(t, 1)
	require.NoError(t, f.db.Exec("DROP TABLE outbox_events").Error)

	approved, err := f.svc.Approve(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentApproved, approved.FulfillmentStatus)
	assert.Equal(t, enums.FulfillmentApproved, f.reload(t, order.ID).FulfillmentStatus)
	assert.Contains(t, f.logs.String(), "print order notification failed")
}

func TestEstimateCost(t *testing.T) {
	snapshot := sampleProduct(enums.BindingPUR).Snapshot()
	cost := EstimateCost(snapshot, 10)
	assert.True(t, cost.UnitPrice.Equal(decimal.RequireFromString("9.50")))
	assert.True(t, cost.Subtotal.Equal(decimal.RequireFromString("95")))
	assert.True(t, cost.Total.Equal(decimal.RequireFromString("104.99")))
	assert.Equal(t, "GBP", cost.Currency)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Repo: NewRepository(setupOrdersTestDB(t)), Broker: &stubBroker{}})
	assert.Error(t, err)
}

func TestHistoryTimestampsAreOrdered(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustSubmit(t, 3)
	stored := f.reload(t, order.ID)
	var previous time.Time
	for _, entry := range stored.StatusHistory {
		assert.False(t, entry.Timestamp.Before(previous))
		previous = entry.Timestamp
	}
}

func (f *serviceFixture) forceStatus(t *testing.T, id uuid.UUID, statuses ...enums.FulfillmentStatus) *models.PrintOrder {
	t.Helper()
	order := f.reload(t, id)
	for _, status := range statuses {
		next := status
		var err error
		order, err = f.repo.Update(context.Background(), id, order.Version, Patch{
			Status:  &next,
			History: &types.StatusHistoryEntry{Note: "seeded", Source: string(enums.AuditSourceSystem)},
		})
		require.NoError(t, err)
	}
	return order
}

func TestSubmitRollsBackWhenMixamIDIsAlreadyLinked(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	ctx := context.Background()
	first := f.mustSubmit(t, 5)
	second := f.mustApprove(t, 5)
	f.broker.submit = func(ctx context.Context, doc mixam.Document) (*mixam.SubmitResult, mixam.Interaction, error) {
		return &mixam.SubmitResult{OrderID: *first.MixamOrderID, JobNumber: "J-2002", Status: "submitted"},
			interactionFor(mixam.OpSubmitOrder, "POST", "/api/public/orders", http.StatusCreated, ""), nil
	}

	_, err := f.svc.Submit(ctx, f.admin, second.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	stored := f.reload(t, second.ID)
	assert.Equal(t, enums.FulfillmentApproved, stored.FulfillmentStatus)
	assert.Nil(t, stored.MixamOrderID)
	assert.Equal(t, 1, stored.SubmitAttempts)
	require.Len(t, stored.MixamInteractions, 1)
	assert.Equal(t, first.MixamOrderID, stored.MixamInteractions[0].MixamOrderID)

	last := stored.ProcessLog[len(stored.ProcessLog)-1]
	assert.Equal(t, logSubmitFailed, last.Event)
	assert.Equal(t, *first.MixamOrderID, last.Data["mixamOrderId"])
	assert.Contains(t, stored.StatusHistory[len(stored.StatusHistory)-1].Note, submissionFailedTag)
	assert.Contains(t, f.logs.String(), "submitted print order could not be stored")

	f.broker.submit = nil
	resubmitted, err := f.svc.Submit(ctx, f.admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentSubmitted, resubmitted.FulfillmentStatus)
	assert.Equal(t, 2, resubmitted.SubmitAttempts)
}

func TestBrokerResultIsAuditedWhenOrderWriteFails(t *testing.T) {
	cases := []struct {
		name string
		op   string
		run  func(f *serviceFixture, id uuid.UUID) error
	}{
		{
			name: "confirm",
			op:   mixam.OpConfirmOrder,
			run: func(f *serviceFixture, id uuid.UUID) error {
				_, err := f.svc.Confirm(context.Background(), f.admin, id)
				return err
			},
		},
		{
			name: "cancel",
			op:   mixam.OpCancelOrder,
			run: func(f *serviceFixture, id uuid.UUID) error {
				_, err := f.svc.Cancel(context.Background(), f.admin, id, nil)
				return err
			},
		},
		{
			name: "refresh",
			op:   mixam.OpGetStatus,
			run: func(f *serviceFixture, id uuid.UUID) error {
				_, err := f.svc.RefreshStatus(context.Background(), f.admin, id)
				return err
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t, enums.BindingPUR, 32)
			order := f.mustSubmit(t, 5)

			// a concurrent write lands while the broker call is in flight
			bump := func(ctx context.Context) {
				_, err := f.repo.AppendAudit(ctx, order.ID, nil, nil)
				require.NoError(t, err)
			}
			f.broker.confirm = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
				bump(ctx)
				return &mixam.StatusResult{OrderID: orderID, Status: "confirmed"}, interactionFor(mixam.OpConfirmOrder, "POST", "/x", 200, ""), nil
			}
			f.broker.cancel = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
				bump(ctx)
				return &mixam.StatusResult{OrderID: orderID, Status: "cancelled"}, interactionFor(mixam.OpCancelOrder, "POST", "/x", 200, ""), nil
			}
			f.broker.status = func(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error) {
				bump(ctx)
				return &mixam.OrderStatus{OrderID: ref.OrderID, Status: "in production"}, interactionFor(mixam.OpGetStatus, "GET", "/x", 200, ""), nil
			}

			err := tc.run(f, order.ID)
			assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

			stored := f.reload(t, order.ID)
			assert.Equal(t, enums.FulfillmentSubmitted, stored.FulfillmentStatus)
			require.Len(t, stored.MixamInteractions, 2)
			assert.Equal(t, tc.op, stored.MixamInteractions[1].Operation)

			last := stored.ProcessLog[len(stored.ProcessLog)-1]
			assert.Equal(t, logResultUnstored, last.Event)
			assert.Equal(t, tc.op, last.Data["operation"])
			assert.Equal(t, *order.MixamOrderID, last.Data["mixamOrderId"])
		})
	}
}

func TestCancelRefusedAfterProductionStarts(t *testing.T) {
	cases := []struct {
		name string
		path []enums.FulfillmentStatus
	}{
		{name: "in production", path: []enums.FulfillmentStatus{enums.FulfillmentInProduction}},
		{name: "printed", path: []enums.FulfillmentStatus{enums.FulfillmentPrinted}},
		{name: "shipped", path: []enums.FulfillmentStatus{enums.FulfillmentShipped}},
		{name: "delivered", path: []enums.FulfillmentStatus{enums.FulfillmentShipped, enums.FulfillmentDelivered}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t, enums.BindingPUR, 32)
			order := f.mustSubmit(t, 5)
			seeded := f.forceStatus(t, order.ID, tc.path...)
			f.broker.cancel = func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
				t.Fatal("broker cancel should not be called")
				return nil, mixam.Interaction{}, nil
			}

			_, err := f.svc.Cancel(context.Background(), f.admin, order.ID, strPtr("too late"))
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
			assert.Equal(t, http.StatusBadRequest, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).HTTPStatus)

			stored := f.reload(t, order.ID)
			assert.Equal(t, seeded.FulfillmentStatus, stored.FulfillmentStatus)
			assert.Nil(t, stored.CancelledAt)
			assert.Nil(t, stored.CancellationReason)
			assert.Len(t, stored.StatusHistory, len(seeded.StatusHistory))
			assert.Equal(t, logCancelRejected, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
		})
	}
}

func TestRevalidateRecoversOrderLeftValidating(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustApprove(t, 5)
	f.forceStatus(t, order.ID, enums.FulfillmentValidating)

	_, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	revalidated, err := f.svc.Revalidate(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentReadyToSubmit, revalidated.FulfillmentStatus)
	assert.Equal(t, logValidated, revalidated.ProcessLog[len(revalidated.ProcessLog)-1].Event)
}

func TestRevalidateRejectionIsAudited(t *testing.T) {
	f := newServiceFixture(t, enums.BindingPUR, 32)
	order := f.mustSubmit(t, 5)

	_, err := f.svc.Revalidate(context.Background(), f.admin, order.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.FulfillmentSubmitted, stored.FulfillmentStatus)
	assert.Equal(t, logValidateRejected, stored.ProcessLog[len(stored.ProcessLog)-1].Event)
}
