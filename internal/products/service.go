package product

import (
	"context"
	"errors"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service exposes the print product catalog.
type Service interface {
	ListActive(ctx context.Context) ([]PrintProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error)
}

type catalogRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error)
	ListActive(ctx context.Context) ([]models.PrintProduct, error)
}

type service struct {
	repo catalogRepository
}

func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, errors.New("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]PrintProductDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PrintProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// Get returns an orderable product. Inactive products read as not found.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print product not found")
	}
	return product, nil
}
