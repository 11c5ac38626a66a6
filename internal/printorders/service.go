package printorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyprint-backend/internal/printables"
	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/mixam"
	"github.com/angelmondragon/storyprint-backend/pkg/pagination"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

// process log events
const (
	logOrderCreated     = "order_created"
	logApproved         = "approved"
	logApproveRejected  = "approve_rejected"
	logSubmitRejected   = "submit_rejected"
	logSubmitAttempt    = "submit_attempt"
	logSubmitFailed     = "submit_failed"
	logSubmitted        = "submitted"
	logConfirmed        = "confirmed"
	logConfirmFailed    = "confirm_failed"
	logConfirmRejected  = "confirm_rejected"
	logCancelled        = "cancelled"
	logCancelRefused    = "cancel_refused"
	logCancelRejected   = "cancel_rejected"
	logCancelBrokerErr  = "cancel_broker_error"
	logRefreshFailed    = "refresh_failed"
	logRefreshRejected  = "refresh_rejected"
	logValidated        = "validated"
	logValidateRejected = "validate_rejected"
	logPaymentRecorded  = "payment_recorded"
	logPayRejected      = "pay_rejected"
	logResultUnstored   = "broker_result_unstored"
	submissionFailedTag = "submission_failed"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

func (a Actor) source() string {
	return string(enums.AuditSourceFor(a.Role))
}

func (a Actor) userRef() *string {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID.String()
	return &id
}

func (a Actor) isAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

// CreateInput is a parent's request to print a storybook.
type CreateInput struct {
	StoryID         uuid.UUID
	OutputID        uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	ShippingAddress types.ShippingAddress
	ContactEmail    string
	CustomOptions   map[string]any
}

type ListInput struct {
	Filter enums.PrintOrderFilter
	Params pagination.Params
}

// Service runs the print order lifecycle.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateInput) (*models.PrintOrder, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
	List(ctx context.Context, actor Actor, input ListInput) (pagination.Page[models.PrintOrder], error)
	Approve(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
	Submit(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
	Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason *string) (*models.PrintOrder, error)
	RefreshStatus(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
	Revalidate(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
	Pay(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error)
}

type orderStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error)
	Create(ctx context.Context, order *models.PrintOrder) error
	List(ctx context.Context, q ListQuery) (pagination.Page[models.PrintOrder], error)
	Update(ctx context.Context, id uuid.UUID, expectedVersion int, patch Patch) (*models.PrintOrder, error)
	AppendAudit(ctx context.Context, id uuid.UUID, logs []types.ProcessLogEntry, interactions []types.BrokerInteraction) (*models.PrintOrder, error)
}

type printBroker interface {
	SubmitOrder(ctx context.Context, doc mixam.Document) (*mixam.SubmitResult, mixam.Interaction, error)
	ConfirmOrder(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error)
	CancelOrder(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error)
	GetOrderStatus(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error)
}

type assetResolver interface {
	Resolve(ctx context.Context, req printables.Request) (*printables.Assets, error)
}

type productCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error)
}

type ServiceParams struct {
	Repo         orderStore
	Broker       printBroker
	Assets       assetResolver
	Catalog      productCatalog
	Gate         *Gate
	Interactions *InteractionLogger
	Notifier     *Notifier
	Logger       *logger.Logger
	Clock        func() time.Time
}

type service struct {
	repo         orderStore
	broker       printBroker
	assets       assetResolver
	catalog      productCatalog
	gate         *Gate
	interactions *InteractionLogger
	notifier     *Notifier
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("print order repository required")
	}
	if params.Broker == nil {
		return nil, errors.New("print broker required")
	}
	if params.Assets == nil {
		return nil, errors.New("printable asset resolver required")
	}
	if params.Catalog == nil {
		return nil, errors.New("print product catalog required")
	}
	gate := params.Gate
	if gate == nil {
		gate = NewGate()
	}
	interactions := params.Interactions
	if interactions == nil {
		interactions = NewInteractionLogger(params.Logger)
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:         params.Repo,
		broker:       params.Broker,
		assets:       params.Assets,
		catalog:      params.Catalog,
		gate:         gate,
		interactions: interactions,
		notifier:     params.Notifier,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*models.PrintOrder, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated parent required")
	}
	if input.StoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storyId is required")
	}
	product, err := s.catalog.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	assets, err := s.assets.Resolve(ctx, printables.Request{
		OutputID:  input.OutputID,
		StoryID:   input.StoryID,
		ParentUID: actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	snapshot := product.Snapshot()
	address := input.ShippingAddress.Normalized()
	result := s.gate.ValidateIntake(GateInput{
		Quantity: input.Quantity,
		Files:    assets.Files,
		Metadata: assets.Metadata,
		Address:  address,
		Product:  snapshot,
	})
	if !result.Valid {
		return nil, validationError(result)
	}

	now := s.now()
	order := &models.PrintOrder{
		ParentUID:         actor.UserID,
		StoryID:           input.StoryID,
		OutputID:          input.OutputID,
		PrintProductID:    product.ID,
		ProductSnapshot:   snapshot,
		Quantity:          input.Quantity,
		CustomOptions:     input.CustomOptions,
		EstimatedCost:     EstimateCost(snapshot, input.Quantity),
		PrintableFiles:    assets.Files,
		PrintableMetadata: assets.Metadata,
		ShippingAddress:   address,
		ContactEmail:      strings.TrimSpace(input.ContactEmail),
		FulfillmentStatus: enums.FulfillmentAwaitingApproval,
		PaymentStatus:     enums.PaymentStatusUnpaid,
		ValidationResult:  &result,
		StatusHistory: []types.StatusHistoryEntry{{
			Status:    string(enums.FulfillmentAwaitingApproval),
			Timestamp: now,
			Note:      "Print order created",
			Source:    actor.source(),
			UserID:    actor.userRef(),
		}},
		ProcessLog: []types.ProcessLogEntry{{
			Event:     logOrderCreated,
			Timestamp: now,
			Message:   fmt.Sprintf("Order for %d copies of %s", input.Quantity, snapshot.Name),
			Data:      map[string]any{"productId": product.ID.String(), "quantity": input.Quantity},
			Source:    actor.source(),
			UserID:    actor.userRef(),
		}},
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "print order created")
	s.notifier.Changed(ctx, actor, order, "", nil)
	return order, nil
}

// Get returns the order. Parents may only read their own orders.
func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && order.ParentUID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "print order belongs to another account")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, input ListInput) (pagination.Page[models.PrintOrder], error) {
	filter := input.Filter
	if filter == "" {
		filter = enums.PrintOrderFilterAll
	}
	if !filter.IsValid() {
		return pagination.Page[models.PrintOrder]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown filter %q", filter))
	}
	query := ListQuery{Filter: filter, Params: input.Params}
	if !actor.isAdmin() {
		parent := actor.UserID
		query.ParentUID = &parent
	}
	return s.repo.List(ctx, query)
}

func (s *service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	var rejection error
	if !approvableStatuses.has(order.FulfillmentStatus) {
		rejection = stateError("approved", order.FulfillmentStatus)
	} else if result, ok := order.LatestValidation(); ok && !result.Valid {
		rejection = validationError(result)
	}
	if rejection != nil {
		return nil, s.reject(ctx, actor, order.ID, logApproveRejected, rejection, nil)
	}

	now := s.now()
	previous := order.FulfillmentStatus
	next := enums.FulfillmentApproved
	updated, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:  &next,
		History: s.historyEntry(actor, "Approved for printing"),
		Log:     []types.ProcessLogEntry{s.logEntry(actor, logApproved, "Order approved", nil)},
		Mutate: func(o *models.PrintOrder) {
			o.ApprovedAt = &now
			if actor.UserID != uuid.Nil {
				approver := actor.UserID
				o.ApprovedBy = &approver
			}
		},
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "print order approved")
	s.notifier.Changed(ctx, actor, updated, previous, nil)
	return updated, nil
}

// Submit sends an approved order to the broker. A broker failure returns the
// order to approved so it can be submitted again.
func (s *service) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	result := s.gate.Validate(gateInputFor(order))
	if rejection := submitRejection(order, result); rejection != nil {
		return nil, s.reject(ctx, actor, order.ID, logSubmitRejected, rejection, map[string]any{
			"status": string(order.FulfillmentStatus),
			"errors": result.Errors,
		})
	}

	attempt := order.SubmitAttempts + 1
	validating := enums.FulfillmentValidating
	checked, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:  &validating,
		History: s.historyEntry(actor, fmt.Sprintf("Preparing submission attempt %d", attempt)),
		Log: []types.ProcessLogEntry{s.logEntry(actor, logSubmitAttempt, fmt.Sprintf("Submission attempt %d", attempt), map[string]any{
			"attempt": attempt,
		})},
		Mutate: func(o *models.PrintOrder) {
			o.SubmitAttempts = attempt
			o.ValidationResult = &result
		},
	})
	if err != nil {
		return nil, s.reject(ctx, actor, order.ID, logSubmitFailed, err, map[string]any{"attempt": attempt})
	}
	order = checked

	doc, err := mixam.BuildDocument(
		mixam.OrderSpec{
			ExternalOrderID: order.ID.String(),
			Quantity:        order.Quantity,
			Product:         order.ProductSnapshot,
			ShippingAddress: order.ShippingAddress,
			ContactEmail:    order.ContactEmail,
		},
		order.PrintableMetadata,
		mixam.FileRef{URL: order.PrintableFiles.CoverPDFURL},
		mixam.FileRef{URL: order.PrintableFiles.InteriorPDFURL},
	)
	if err != nil {
		s.rollbackSubmit(ctx, actor, order, attempt, err.Error(), nil)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not build print document")
	}

	submitting := enums.FulfillmentSubmitting
	sending, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:  &submitting,
		History: s.historyEntry(actor, "Submitting to Mixam"),
	})
	if err != nil {
		s.rollbackSubmit(ctx, actor, order, attempt, rejectionMessage(err), nil)
		return nil, err
	}
	order = sending

	submitted, interaction, err := s.broker.SubmitOrder(ctx, doc)
	record := s.interactions.Record(ctx, order, interaction)
	if err != nil {
		reason := brokerReason(err)
		s.rollbackSubmit(ctx, actor, order, attempt, reason, &record)
		return nil, pkgerrors.Wrap(pkgerrors.CodeBroker, err, reason)
	}

	mixamID := submitted.OrderID
	record.MixamOrderID = &mixamID
	now := s.now()
	next := enums.FulfillmentSubmitted
	updated, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:  &next,
		History: s.historyEntry(actor, fmt.Sprintf("Submitted to Mixam as order %s", mixamID)),
		Log: []types.ProcessLogEntry{s.logEntry(actor, logSubmitted, "Order accepted by Mixam", map[string]any{
			"attempt":        attempt,
			"mixamOrderId":   mixamID,
			"mixamJobNumber": submitted.JobNumber,
		})},
		Interactions: []types.BrokerInteraction{record},
		Mutate: func(o *models.PrintOrder) {
			o.MixamOrderID = &mixamID
			if submitted.JobNumber != "" {
				job := submitted.JobNumber
				o.MixamJobNumber = &job
			}
			status := mixam.NormalizeStatus(submitted.Status)
			if status == "" {
				status = string(enums.FulfillmentSubmitted)
			}
			o.MixamStatus = &status
			o.MixamStatusCheckedAt = &now
			o.MixamResponse = submitted.Raw
			o.SubmittedAt = &now
			o.FulfillmentNotes = nil
		},
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "mixam_order_id", mixamID), "submitted print order could not be stored", err)
		s.rollbackSubmit(ctx, actor, order, attempt, fmt.Sprintf("Mixam order %s could not be stored: %s", mixamID, rejectionMessage(err)), &record)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "mixam_order_id", mixamID), "print order submitted")
	s.notifier.Changed(ctx, actor, updated, enums.FulfillmentApproved, nil)
	return updated, nil
}

// rollbackSubmit returns a failed submission to approved. When even that
// write fails the log entry and broker interaction are still appended.
func (s *service) rollbackSubmit(ctx context.Context, actor Actor, order *models.PrintOrder, attempt int, reason string, record *types.BrokerInteraction) {
	note := fmt.Sprintf("%s: %s", submissionFailedTag, reason)
	data := map[string]any{
		"attempt": attempt,
		"reason":  reason,
	}
	approved := enums.FulfillmentApproved
	patch := Patch{
		Status:  &approved,
		History: s.historyEntry(actor, note),
		Mutate: func(o *models.PrintOrder) {
			o.FulfillmentNotes = &note
		},
	}
	if record != nil {
		patch.Interactions = []types.BrokerInteraction{*record}
		if record.MixamOrderID != nil {
			data["mixamOrderId"] = *record.MixamOrderID
		}
	}
	patch.Log = []types.ProcessLogEntry{s.logEntry(actor, logSubmitFailed, fmt.Sprintf("Submission attempt %d failed: %s", attempt, reason), data)}
	if _, err := s.repo.Update(ctx, order.ID, order.Version, patch); err != nil {
		s.logg.Error(ctx, "print order submit rollback failed", err)
		s.audit(ctx, order.ID, patch.Log, patch.Interactions)
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "print order submission failed")
}

func (s *service) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if !confirmableStatuses.has(order.FulfillmentStatus) {
		return nil, s.reject(ctx, actor, order.ID, logConfirmRejected, stateError("confirmed", order.FulfillmentStatus), nil)
	}
	if order.MixamOrderID == nil {
		return nil, s.reject(ctx, actor, order.ID, logConfirmRejected, pkgerrors.New(pkgerrors.CodeStateConflict, "print order has no mixam order id"), nil)
	}

	result, interaction, err := s.broker.ConfirmOrder(ctx, *order.MixamOrderID)
	record := s.interactions.Record(ctx, order, interaction)
	if err != nil {
		reason := brokerReason(err)
		s.audit(ctx, order.ID, []types.ProcessLogEntry{s.logEntry(actor, logConfirmFailed, "Mixam confirm failed: "+reason, nil)}, []types.BrokerInteraction{record})
		return nil, pkgerrors.Wrap(pkgerrors.CodeBroker, err, reason)
	}

	now := s.now()
	previous := order.FulfillmentStatus
	next := enums.FulfillmentConfirmed
	updated, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:       &next,
		History:      s.historyEntry(actor, "Confirmed with Mixam"),
		Log:          []types.ProcessLogEntry{s.logEntry(actor, logConfirmed, "Order confirmed with Mixam", nil)},
		Interactions: []types.BrokerInteraction{record},
		Mutate: func(o *models.PrintOrder) {
			o.ConfirmedAt = &now
			if status := mixam.NormalizeStatus(result.Status); status != "" {
				o.MixamStatus = &status
			}
		},
	})
	if err != nil {
		s.resultUnstored(ctx, actor, order, mixam.OpConfirmOrder, err, []types.BrokerInteraction{record})
		return nil, err
	}
	s.logg.Info(ctx, "print order confirmed")
	s.notifier.Changed(ctx, actor, updated, previous, nil)
	return updated, nil
}

// Cancel stops an order. When the broker already holds the order it is asked
// to cancel first; only an in-production refusal blocks the local cancel.
func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason *string) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if nonCancellableStatuses.has(order.FulfillmentStatus) {
		return nil, s.reject(ctx, actor, order.ID, logCancelRejected, stateError("cancelled", order.FulfillmentStatus), nil)
	}
	reason = trimmedOrNil(reason)

	var logs []types.ProcessLogEntry
	var interactions []types.BrokerInteraction
	if order.MixamOrderID != nil {
		_, interaction, err := s.broker.CancelOrder(ctx, *order.MixamOrderID)
		record := s.interactions.Record(ctx, order, interaction)
		interactions = append(interactions, record)
		if err != nil {
			brokerMsg := brokerReason(err)
			if mixam.IsInProduction(err) {
				s.audit(ctx, order.ID, []types.ProcessLogEntry{s.logEntry(actor, logCancelRefused, "Mixam refused cancel: "+brokerMsg, nil)}, interactions)
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "print order is already in production and cannot be cancelled")
			}
			s.logg.Warn(s.logg.WithField(ctx, "reason", brokerMsg), "mixam cancel failed, cancelling locally")
			logs = append(logs, s.logEntry(actor, logCancelBrokerErr, "Mixam cancel failed, cancelled locally: "+brokerMsg, map[string]any{
				"reason": brokerMsg,
			}))
		}
	}

	note := "Cancelled"
	if reason != nil {
		note = "Cancelled: " + *reason
	}
	logs = append(logs, s.logEntry(actor, logCancelled, note, nil))

	now := s.now()
	previous := order.FulfillmentStatus
	next := enums.FulfillmentCancelled
	updated, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:       &next,
		History:      s.historyEntry(actor, note),
		Log:          logs,
		Interactions: interactions,
		Mutate: func(o *models.PrintOrder) {
			o.CancelledAt = &now
			o.CancellationReason = reason
		},
	})
	if err != nil {
		if len(interactions) > 0 {
			s.resultUnstored(ctx, actor, order, mixam.OpCancelOrder, err, interactions)
		}
		return nil, err
	}
	s.logg.Info(ctx, "print order cancelled")
	s.notifier.Changed(ctx, actor, updated, previous, reason)
	return updated, nil
}

func (s *service) RefreshStatus(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ref := mixam.OrderRef{}
	if order.MixamOrderID != nil {
		ref.OrderID = *order.MixamOrderID
	}
	if order.MixamJobNumber != nil {
		ref.JobNumber = *order.MixamJobNumber
	}
	if ref.IsZero() {
		return nil, s.reject(ctx, actor, order.ID, logRefreshRejected, pkgerrors.New(pkgerrors.CodeStateConflict, "print order has not been submitted to mixam"), nil)
	}

	remote, interaction, err := s.broker.GetOrderStatus(ctx, ref)
	record := s.interactions.Record(ctx, order, interaction)
	if err != nil {
		reason := brokerReason(err)
		s.audit(ctx, order.ID, []types.ProcessLogEntry{s.logEntry(actor, logRefreshFailed, "Mixam status lookup failed: "+reason, nil)}, []types.BrokerInteraction{record})
		return nil, pkgerrors.Wrap(pkgerrors.CodeBroker, err, reason)
	}

	outcome := reconcile(order, remote, record, s.now())
	updated, err := s.repo.Update(ctx, order.ID, order.Version, outcome.patch)
	if err != nil {
		s.resultUnstored(ctx, actor, order, mixam.OpGetStatus, err, []types.BrokerInteraction{record})
		return nil, err
	}
	if outcome.err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBroker, outcome.err, brokerReason(outcome.err))
	}
	if outcome.next != order.FulfillmentStatus {
		s.logg.Info(s.logg.WithField(ctx, "fulfillment_status", string(outcome.next)), "print order status refreshed")
		s.notifier.Changed(ctx, actor, updated, order.FulfillmentStatus, nil)
	}
	return updated, nil
}

// Revalidate reloads the printable assets and reruns every check, leaving
// the order ready_to_submit or validation_failed.
func (s *service) Revalidate(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if !revalidatableStatuses.has(order.FulfillmentStatus) {
		return nil, s.reject(ctx, actor, order.ID, logValidateRejected, stateError("revalidated", order.FulfillmentStatus), nil)
	}

	assets, err := s.assets.Resolve(ctx, printables.Request{
		OutputID:  order.OutputID,
		StoryID:   order.StoryID,
		ParentUID: order.ParentUID,
	})
	if err != nil {
		return nil, err
	}

	validating := enums.FulfillmentValidating
	order, err = s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:  &validating,
		History: s.historyEntry(actor, "Re-validation requested"),
		Mutate: func(o *models.PrintOrder) {
			o.PrintableFiles = assets.Files
			o.PrintableMetadata = assets.Metadata
		},
	})
	if err != nil {
		return nil, s.reject(ctx, actor, id, logValidateRejected, err, nil)
	}

	result := s.gate.Validate(gateInputFor(order))
	next := enums.FulfillmentReadyToSubmit
	note := "Validation passed"
	if !result.Valid {
		next = enums.FulfillmentValidationFailed
		note = "Validation failed: " + strings.Join(result.Errors, "; ")
	}
	entry := s.logEntry(actor, logValidated, note, map[string]any{
		"valid":  result.Valid,
		"errors": result.Errors,
	})
	updated, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Status:  &next,
		History: s.historyEntry(actor, note),
		Log:     []types.ProcessLogEntry{entry},
		Mutate: func(o *models.PrintOrder) {
			o.ValidationResult = &result
		},
	})
	if err != nil {
		// the order stays validating, which revalidate accepts
		s.logg.Error(ctx, "revalidated print order could not be stored", err)
		s.audit(ctx, order.ID, []types.ProcessLogEntry{entry}, nil)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "valid", result.Valid), "print order revalidated")
	return updated, nil
}

// Pay records a simulated payment. Paying twice is a no-op.
func (s *service) Pay(ctx context.Context, actor Actor, id uuid.UUID) (*models.PrintOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.ParentUID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "print order belongs to another account")
	}
	if order.PaymentStatus.IsPaid() {
		return order, nil
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if unpayableStatuses.has(order.FulfillmentStatus) {
		return nil, s.reject(ctx, actor, order.ID, logPayRejected, stateError("paid", order.FulfillmentStatus), nil)
	}

	now := s.now()
	updated, err := s.repo.Update(ctx, order.ID, order.Version, Patch{
		Log: []types.ProcessLogEntry{s.logEntry(actor, logPaymentRecorded, "Payment recorded", map[string]any{
			"total":    order.EstimatedCost.Total.StringFixed(2),
			"currency": order.EstimatedCost.Currency,
		})},
		Mutate: func(o *models.PrintOrder) {
			o.PaymentStatus = enums.PaymentStatusPaid
			o.PaidAt = &now
		},
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "print order paid")
	s.notifier.Paid(ctx, actor, updated)
	return updated, nil
}

// audit appends entries outside the version guard. A failure here is only
// logged since the caller is already returning the original error.
func (s *service) audit(ctx context.Context, id uuid.UUID, logs []types.ProcessLogEntry, interactions []types.BrokerInteraction) {
	if _, err := s.repo.AppendAudit(ctx, id, logs, interactions); err != nil {
		s.logg.Error(ctx, "print order audit append failed", err)
	}
}

// reject records a refused action on the order and returns the refusal.
func (s *service) reject(ctx context.Context, actor Actor, id uuid.UUID, event string, rejection error, data map[string]any) error {
	s.audit(ctx, id, []types.ProcessLogEntry{s.logEntry(actor, event, rejectionMessage(rejection), data)}, nil)
	return rejection
}

// resultUnstored keeps the trail of a broker call whose outcome could not be
// written to the order.
func (s *service) resultUnstored(ctx context.Context, actor Actor, order *models.PrintOrder, op string, cause error, interactions []types.BrokerInteraction) {
	reason := rejectionMessage(cause)
	data := map[string]any{
		"operation": op,
		"error":     reason,
	}
	if order.MixamOrderID != nil {
		data["mixamOrderId"] = *order.MixamOrderID
	}
	s.logg.Error(s.logg.WithField(ctx, "operation", op), "mixam result could not be stored", cause)
	s.audit(ctx, order.ID, []types.ProcessLogEntry{s.logEntry(actor, logResultUnstored, fmt.Sprintf("Mixam %s result could not be stored: %s", op, reason), data)}, interactions)
}

func (s *service) historyEntry(actor Actor, note string) *types.StatusHistoryEntry {
	return &types.StatusHistoryEntry{
		Timestamp: s.now(),
		Note:      note,
		Source:    actor.source(),
		UserID:    actor.userRef(),
	}
}

func (s *service) logEntry(actor Actor, event, message string, data map[string]any) types.ProcessLogEntry {
	return types.ProcessLogEntry{
		Event:     event,
		Timestamp: s.now(),
		Message:   message,
		Data:      data,
		Source:    actor.source(),
		UserID:    actor.userRef(),
	}
}

func submitRejection(order *models.PrintOrder, result types.ValidationResult) error {
	if order.FulfillmentStatus != enums.FulfillmentApproved {
		return stateError("submitted", order.FulfillmentStatus)
	}
	if stored, ok := order.LatestValidation(); ok && !stored.Valid {
		return validationError(stored)
	}
	if !result.Valid {
		return validationError(result)
	}
	return nil
}

func stateError(action string, status enums.FulfillmentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("print order in status %s cannot be %s", status, action)).
		WithDetails(map[string]any{"status": string(status)})
}

func validationError(result types.ValidationResult) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "print order failed validation: "+strings.Join(result.Errors, "; ")).
		WithDetails(map[string]any{"errors": result.Errors})
}

func rejectionMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

// brokerReason prefers the broker's own message.
func brokerReason(err error) string {
	if mxErr, ok := mixam.AsError(err); ok && strings.TrimSpace(mxErr.Reason) != "" {
		return mxErr.Reason
	}
	return err.Error()
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
