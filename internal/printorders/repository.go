package printorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/storyprint-backend/pkg/db"
	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/pagination"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

const mixamOrderIDConstraint = "print_orders_mixam_order_id_key"

// Patch describes one change to a print order. Status, History, Log and
// Interactions are applied by the repository; Mutate may set any other
// column but never the fulfillment status or an assigned broker order id.
type Patch struct {
	Status       *enums.FulfillmentStatus
	History      *types.StatusHistoryEntry
	Log          []types.ProcessLogEntry
	Interactions []types.BrokerInteraction
	Mutate       func(order *models.PrintOrder)
}

// ListQuery selects a page of orders. A nil ParentUID lists every parent.
type ListQuery struct {
	Filter    enums.PrintOrderFilter
	ParentUID *uuid.UUID
	Params    pagination.Params
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.PrintOrder, error) {
	return findOrder(r.db.WithContext(ctx), id)
}

func (r *Repository) FindByMixamOrderID(ctx context.Context, mixamOrderID string) (*models.PrintOrder, error) {
	var order models.PrintOrder
	err := r.db.WithContext(ctx).Where("mixam_order_id = ?", mixamOrderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load print order")
	}
	return &order, nil
}

// Create inserts a new order at version 1 with empty audit trails.
func (r *Repository) Create(ctx context.Context, order *models.PrintOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.Version = 1
	if order.PaymentStatus == "" {
		order.PaymentStatus = enums.PaymentStatusUnpaid
	}
	ensureTrails(order)
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create print order")
	}
	return nil
}

func (r *Repository) List(ctx context.Context, q ListQuery) (pagination.Page[models.PrintOrder], error) {
	query := r.db.WithContext(ctx).Model(&models.PrintOrder{})
	if statuses := q.Filter.Statuses(); statuses != nil {
		query = query.Where("fulfillment_status IN ?", statuses)
	}
	if q.ParentUID != nil {
		query = query.Where("parent_uid = ?", *q.ParentUID)
	}

	cursor, err := pagination.ParseCursor(q.Params.Cursor)
	if err != nil {
		return pagination.Page[models.PrintOrder]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PrintOrder
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Params.Limit)).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.PrintOrder]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list print orders")
	}
	return pagination.BuildPage(rows, q.Params.Limit, func(o models.PrintOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// Update applies patch under a row lock. A non-zero expectedVersion must
// match the stored version or the update fails with a conflict.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, expectedVersion int, patch Patch) (*models.PrintOrder, error) {
	var updated *models.PrintOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		row, err := findOrder(locked, id)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && row.Version != expectedVersion {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("print order was modified concurrently (expected version %d, found %d)", expectedVersion, row.Version))
		}

		previousVersion := row.Version
		if err := applyPatch(row, patch); err != nil {
			return err
		}
		row.Version = previousVersion + 1

		res := tx.Model(row).Where("version = ?", previousVersion).Select("*").Updates(row)
		if res.Error != nil {
			if dbpkg.IsUniqueViolation(res.Error, mixamOrderIDConstraint) || dbpkg.IsUniqueViolation(res.Error, "mixam_order_id") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "mixam order id already linked to another print order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update print order")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "print order was modified concurrently")
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AppendAudit records log and interaction entries without a version check.
func (r *Repository) AppendAudit(ctx context.Context, id uuid.UUID, logs []types.ProcessLogEntry, interactions []types.BrokerInteraction) (*models.PrintOrder, error) {
	return r.Update(ctx, id, 0, Patch{Log: logs, Interactions: interactions})
}

func findOrder(db *gorm.DB, id uuid.UUID) (*models.PrintOrder, error) {
	var order models.PrintOrder
	if err := db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load print order")
	}
	ensureTrails(&order)
	return &order, nil
}

func applyPatch(row *models.PrintOrder, patch Patch) error {
	current := row.FulfillmentStatus
	var assignedMixamID string
	if row.MixamOrderID != nil {
		assignedMixamID = *row.MixamOrderID
	}

	if patch.Mutate != nil {
		patch.Mutate(row)
	}
	if row.FulfillmentStatus != current {
		return pkgerrors.New(pkgerrors.CodeInternal, "fulfillment status may only change through Patch.Status")
	}
	if assignedMixamID != "" && (row.MixamOrderID == nil || *row.MixamOrderID != assignedMixamID) {
		return pkgerrors.New(pkgerrors.CodeConflict, "mixam order id is already assigned")
	}

	if patch.Status != nil && *patch.Status != current {
		next := *patch.Status
		if !CanTransition(current, next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move print order from %s to %s", current, next))
		}
		if patch.History == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "status change requires a history entry")
		}
		entry := *patch.History
		entry.Status = string(next)
		row.FulfillmentStatus = next
		row.StatusHistory = append(row.StatusHistory, entry)
	} else if patch.History != nil {
		entry := *patch.History
		entry.Status = string(current)
		row.StatusHistory = append(row.StatusHistory, entry)
	}

	row.ProcessLog = append(row.ProcessLog, patch.Log...)
	row.MixamInteractions = append(row.MixamInteractions, patch.Interactions...)
	return nil
}

func ensureTrails(order *models.PrintOrder) {
	if order.StatusHistory == nil {
		order.StatusHistory = []types.StatusHistoryEntry{}
	}
	if order.ProcessLog == nil {
		order.ProcessLog = []types.ProcessLogEntry{}
	}
	if order.MixamInteractions == nil {
		order.MixamInteractions = []types.BrokerInteraction{}
	}
}
