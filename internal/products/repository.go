package product

import (
	"context"
	"errors"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads the print product catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads one product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error) {
	var product models.PrintProduct
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load print product")
	}
	return &product, nil
}

// ListActive returns the orderable catalog sorted by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.PrintProduct, error) {
	var products []models.PrintProduct
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list print products")
	}
	return products, nil
}

// Create inserts a catalog row. Used by seeding and tests.
func (r *Repository) Create(ctx context.Context, product *models.PrintProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create print product")
	}
	return nil
}
