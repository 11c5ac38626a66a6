package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrintFormat is the trimmed page size of a print product.
type PrintFormat struct {
	WidthMM  int `json:"widthMm"`
	HeightMM int `json:"heightMm"`
}

// Substrate describes paper stock and finish.
type Substrate struct {
	InteriorPaper     string `json:"interiorPaper"`
	InteriorWeightGSM int    `json:"interiorWeightGsm"`
	CoverPaper        string `json:"coverPaper"`
	CoverWeightGSM    int    `json:"coverWeightGsm"`
	Lamination        string `json:"lamination,omitempty"`
}

// PricingTier prices a quantity band inclusive on both ends.
type PricingTier struct {
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity int             `json:"maxQuantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Covers reports whether quantity falls inside the tier.
func (t PricingTier) Covers(quantity int) bool {
	return quantity >= t.MinQuantity && quantity <= t.MaxQuantity
}

// ProductSnapshot freezes the catalog entry at the time an order is placed.
type ProductSnapshot struct {
	ProductID         uuid.UUID       `json:"productId"`
	Name              string          `json:"name"`
	Binding           string          `json:"binding"`
	Format            PrintFormat     `json:"format"`
	Substrate         Substrate       `json:"substrate"`
	PricingTiers      []PricingTier   `json:"pricingTiers"`
	SetupFee          decimal.Decimal `json:"setupFee"`
	ShippingFee       decimal.Decimal `json:"shippingFee"`
	Currency          string          `json:"currency"`
	ShippingCountries []string        `json:"shippingCountries"`
}

// TierFor returns the pricing tier covering quantity.
func (p ProductSnapshot) TierFor(quantity int) (PricingTier, bool) {
	for _, tier := range p.PricingTiers {
		if tier.Covers(quantity) {
			return tier, true
		}
	}
	return PricingTier{}, false
}

// ShipsTo reports whether the product can be delivered to countryCode.
func (p ProductSnapshot) ShipsTo(countryCode string) bool {
	for _, country := range p.ShippingCountries {
		if country == countryCode {
			return true
		}
	}
	return false
}

type CostEstimate struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	SetupFee  decimal.Decimal `json:"setupFee"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

// PrintableFiles points at the hosted print-ready PDFs.
type PrintableFiles struct {
	CoverPDFURL    string  `json:"coverPdfUrl"`
	InteriorPDFURL string  `json:"interiorPdfUrl"`
	PaddingPDFURL  *string `json:"paddingPdfUrl,omitempty"`
}

// PrintableMetadata describes the rendered book. InteriorPageCount already
// includes PaddingPageCount blank pages.
type PrintableMetadata struct {
	InteriorPageCount int     `json:"interiorPageCount"`
	PaddingPageCount  int     `json:"paddingPageCount"`
	CoverPageCount    int     `json:"coverPageCount"`
	TrimWidthMM       int     `json:"trimWidthMm"`
	TrimHeightMM      int     `json:"trimHeightMm"`
	SpineWidthMM      float64 `json:"spineWidthMm"`
}

type ValidationResult struct {
	Valid     bool      `json:"valid"`
	Errors    []string  `json:"errors"`
	CheckedAt time.Time `json:"checkedAt"`
}

type StatusHistoryEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
	Source    string    `json:"source"`
	UserID    *string   `json:"userId,omitempty"`
}

type ProcessLogEntry struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Source    string         `json:"source"`
	UserID    *string        `json:"userId,omitempty"`
}

// BrokerInteraction records a single call to the print broker.
type BrokerInteraction struct {
	Timestamp      time.Time `json:"timestamp"`
	OrderID        string    `json:"orderId"`
	MixamOrderID   *string   `json:"mixamOrderId,omitempty"`
	Operation      string    `json:"operation"`
	Direction      string    `json:"direction"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	PayloadSummary string    `json:"payloadSummary,omitempty"`
	HTTPStatus     *int      `json:"httpStatus,omitempty"`
	ErrorMessage   *string   `json:"errorMessage,omitempty"`
	DurationMS     int64     `json:"durationMs"`
}
