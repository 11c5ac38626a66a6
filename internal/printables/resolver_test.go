package printables

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
)

func setupAssetsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE storybook_print_assets (
  output_id TEXT PRIMARY KEY,
  story_id TEXT NOT NULL,
  parent_uid TEXT NOT NULL,
  cover_pdf_url TEXT,
  interior_pdf_url TEXT,
  padding_pdf_url TEXT,
  interior_page_count INTEGER NOT NULL DEFAULT 0,
  padding_page_count INTEGER NOT NULL DEFAULT 0,
  cover_page_count INTEGER NOT NULL DEFAULT 0,
  trim_width_mm INTEGER NOT NULL DEFAULT 0,
  trim_height_mm INTEGER NOT NULL DEFAULT 0,
  spine_width_mm REAL NOT NULL DEFAULT 0,
  updated_at DATETIME
);`).Error)
	return db
}

func strPtr(s string) *string { return &s }

func TestResolveReturnsAssets(t *testing.T) {
	db := setupAssetsTestDB(t)
	asset := models.StorybookPrintAsset{
		OutputID:          uuid.New(),
		StoryID:           uuid.New(),
		ParentUID:         uuid.New(),
		CoverPDFURL:       strPtr("https://cdn.test/cover.pdf"),
		InteriorPDFURL:    strPtr("https://cdn.test/interior.pdf"),
		PaddingPDFURL:     strPtr("   "),
		InteriorPageCount: 32,
		PaddingPageCount:  2,
		CoverPageCount:    4,
		TrimWidthMM:       210,
		TrimHeightMM:      210,
		SpineWidthMM:      6.5,
	}
	require.NoError(t, db.Create(&asset).Error)

	got, err := NewResolver(db).Resolve(context.Background(), Request{
		OutputID:  asset.OutputID,
		StoryID:   asset.StoryID,
		ParentUID: asset.ParentUID,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/cover.pdf", got.Files.CoverPDFURL)
	assert.Nil(t, got.Files.PaddingPDFURL)
	assert.Equal(t, 32, got.Metadata.InteriorPageCount)
	assert.Equal(t, 2, got.Metadata.PaddingPageCount)
	assert.Equal(t, 6.5, got.Metadata.SpineWidthMM)
}

func TestResolveRejectsMismatches(t *testing.T) {
	db := setupAssetsTestDB(t)
	asset := models.StorybookPrintAsset{OutputID: uuid.New(), StoryID: uuid.New(), ParentUID: uuid.New()}
	require.NoError(t, db.Create(&asset).Error)
	resolver := NewResolver(db)

	_, err := resolver.Resolve(context.Background(), Request{OutputID: asset.OutputID, ParentUID: uuid.New()})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = resolver.Resolve(context.Background(), Request{OutputID: asset.OutputID, StoryID: uuid.New(), ParentUID: asset.ParentUID})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = resolver.Resolve(context.Background(), Request{OutputID: uuid.New()})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = resolver.Resolve(context.Background(), Request{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
