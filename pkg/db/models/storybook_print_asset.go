package models

import (
	"time"

	"github.com/google/uuid"
)

// StorybookPrintAsset holds the hosted print-ready PDFs of a story output.
// Rows are written by the generation pipeline.
type StorybookPrintAsset struct {
	OutputID          uuid.UUID `gorm:"column:output_id;type:uuid;primaryKey"`
	StoryID           uuid.UUID `gorm:"column:story_id;type:uuid;not null"`
	ParentUID         uuid.UUID `gorm:"column:parent_uid;type:uuid;not null"`
	CoverPDFURL       *string   `gorm:"column:cover_pdf_url"`
	InteriorPDFURL    *string   `gorm:"column:interior_pdf_url"`
	PaddingPDFURL     *string   `gorm:"column:padding_pdf_url"`
	InteriorPageCount int       `gorm:"column:interior_page_count;not null;default:0"`
	PaddingPageCount  int       `gorm:"column:padding_page_count;not null;default:0"`
	CoverPageCount    int       `gorm:"column:cover_page_count;not null;default:0"`
	TrimWidthMM       int       `gorm:"column:trim_width_mm;not null;default:0"`
	TrimHeightMM      int       `gorm:"column:trim_height_mm;not null;default:0"`
	SpineWidthMM      float64   `gorm:"column:spine_width_mm;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StorybookPrintAsset) TableName() string { return "storybook_print_assets" }
