package printables

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

// Request identifies the story output whose PDFs should be printed.
type Request struct {
	OutputID  uuid.UUID
	StoryID   uuid.UUID
	ParentUID uuid.UUID
}

// Assets are the hosted files and their rendered layout.
type Assets struct {
	Files    types.PrintableFiles
	Metadata types.PrintableMetadata
}

// Resolver reads print assets written by the generation pipeline.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve loads the assets for req. Missing URLs are returned empty so the
// validation gate can report them; ownership mismatches are rejected here.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Assets, error) {
	if req.OutputID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outputId is required")
	}

	var asset models.StorybookPrintAsset
	err := r.db.WithContext(ctx).Where("output_id = ?", req.OutputID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "printable assets not found for story output")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load printable assets")
	}

	if req.ParentUID != uuid.Nil && asset.ParentUID != req.ParentUID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "story output belongs to another account")
	}
	if req.StoryID != uuid.Nil && asset.StoryID != req.StoryID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outputId does not belong to storyId")
	}

	return &Assets{
		Files: types.PrintableFiles{
			CoverPDFURL:    valueOf(nonBlank(asset.CoverPDFURL)),
			InteriorPDFURL: valueOf(nonBlank(asset.InteriorPDFURL)),
			PaddingPDFURL:  nonBlank(asset.PaddingPDFURL),
		},
		Metadata: types.PrintableMetadata{
			InteriorPageCount: asset.InteriorPageCount,
			PaddingPageCount:  asset.PaddingPageCount,
			CoverPageCount:    asset.CoverPageCount,
			TrimWidthMM:       asset.TrimWidthMM,
			TrimHeightMM:      asset.TrimHeightMM,
			SpineWidthMM:      asset.SpineWidthMM,
		},
	}, nil
}

func nonBlank(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func valueOf(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
