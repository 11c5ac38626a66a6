package mixam

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

const (
	productTypeBook   = "BOOK"
	sourceApplication = "storyprint"
	colourModeCMYK    = "CMYK"
	defaultCoverPages = 4
)

// OrderSpec carries the order facts the document encodes.
type OrderSpec struct {
	ExternalOrderID string
	Quantity        int
	Product         types.ProductSnapshot
	ShippingAddress types.ShippingAddress
	ContactEmail    string
}

// FileRef is a hosted PDF handed to the printer by URL.
type FileRef struct {
	URL string
}

// Document is the MxJdf order payload accepted by the broker.
type Document struct {
	Metadata DocumentMetadata `json:"metadata"`
	Order    DocumentOrder    `json:"order"`
}

type DocumentMetadata struct {
	ExternalOrderID   string `json:"externalOrderId"`
	SourceApplication string `json:"sourceApplication"`
}

type DocumentOrder struct {
	ContactEmail string          `json:"contactEmail"`
	Items        []DocumentItem  `json:"items"`
	Delivery     DocumentAddress `json:"delivery"`
}

type DocumentItem struct {
	ProductType string              `json:"productType"`
	Quantity    int                 `json:"quantity"`
	Binding     DocumentBinding     `json:"binding"`
	Format      DocumentFormat      `json:"format"`
	Components  []DocumentComponent `json:"components"`
}

type DocumentBinding struct {
	Type string `json:"type"`
}

type DocumentFormat struct {
	WidthMM  int    `json:"widthMm"`
	HeightMM int    `json:"heightMm"`
	Standard string `json:"standardSize,omitempty"`
}

type DocumentComponent struct {
	Type         string            `json:"type"`
	Pages        int               `json:"pages"`
	ColourMode   string            `json:"colours"`
	Substrate    DocumentSubstrate `json:"substrate"`
	Lamination   string            `json:"lamination,omitempty"`
	SpineWidthMM float64           `json:"spineWidthMm,omitempty"`
	FileURL      string            `json:"fileUrl"`
}

type DocumentSubstrate struct {
	Type      string `json:"type"`
	WeightGSM int    `json:"weightGsm"`
}

type DocumentAddress struct {
	Name        string `json:"name"`
	Line1       string `json:"address1"`
	Line2       string `json:"address2,omitempty"`
	City        string `json:"city"`
	Region      string `json:"state,omitempty"`
	PostalCode  string `json:"postcode"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
}

var bindingTypes = map[enums.Binding]string{
	enums.BindingCase:         "CASE",
	enums.BindingPUR:          "PUR",
	enums.BindingSaddleStitch: "STAPLED",
	enums.BindingWire:         "WIRO",
}

// BuildDocument assembles the MxJdf payload. It has no clock or random input,
// so the same arguments always marshal to the same bytes.
func BuildDocument(order OrderSpec, metadata types.PrintableMetadata, cover FileRef, interior FileRef) (Document, error) {
	var errs error
	if strings.TrimSpace(order.ExternalOrderID) == "" {
		errs = multierr.Append(errs, errors.New("external order id is required"))
	}
	if order.Quantity <= 0 {
		errs = multierr.Append(errs, errors.New("quantity must be positive"))
	}
	bindingType, ok := bindingTypes[enums.Binding(order.Product.Binding)]
	if !ok {
		errs = multierr.Append(errs, fmt.Errorf("unsupported binding %q", order.Product.Binding))
	}
	if strings.TrimSpace(cover.URL) == "" {
		errs = multierr.Append(errs, errors.New("cover pdf url is required"))
	}
	if strings.TrimSpace(interior.URL) == "" {
		errs = multierr.Append(errs, errors.New("interior pdf url is required"))
	}
	if metadata.InteriorPageCount <= 0 {
		errs = multierr.Append(errs, errors.New("interior page count is required"))
	}
	if strings.TrimSpace(order.ContactEmail) == "" {
		errs = multierr.Append(errs, errors.New("contact email is required"))
	}
	if errs != nil {
		return Document{}, errs
	}

	width, height := order.Product.Format.WidthMM, order.Product.Format.HeightMM
	if metadata.TrimWidthMM > 0 && metadata.TrimHeightMM > 0 {
		width, height = metadata.TrimWidthMM, metadata.TrimHeightMM
	}
	coverPages := metadata.CoverPageCount
	if coverPages <= 0 {
		coverPages = defaultCoverPages
	}
	substrate := order.Product.Substrate
	addr := order.ShippingAddress

	line2 := ""
	if addr.Line2 != nil {
		line2 = *addr.Line2
	}

	return Document{
		Metadata: DocumentMetadata{
			ExternalOrderID:   order.ExternalOrderID,
			SourceApplication: sourceApplication,
		},
		Order: DocumentOrder{
			ContactEmail: order.ContactEmail,
			Items: []DocumentItem{{
				ProductType: productTypeBook,
				Quantity:    order.Quantity,
				Binding:     DocumentBinding{Type: bindingType},
				Format:      DocumentFormat{WidthMM: width, HeightMM: height},
				Components: []DocumentComponent{
					{
						Type:         "COVER",
						Pages:        coverPages,
						ColourMode:   colourModeCMYK,
						Substrate:    DocumentSubstrate{Type: substrate.CoverPaper, WeightGSM: substrate.CoverWeightGSM},
						Lamination:   substrate.Lamination,
						SpineWidthMM: metadata.SpineWidthMM,
						FileURL:      cover.URL,
					},
					{
						Type:       "BODY",
						Pages:      metadata.InteriorPageCount,
						ColourMode: colourModeCMYK,
						Substrate:  DocumentSubstrate{Type: substrate.InteriorPaper, WeightGSM: substrate.InteriorWeightGSM},
						FileURL:    interior.URL,
					},
				},
			}},
			Delivery: DocumentAddress{
				Name:        addr.Name,
				Line1:       addr.Line1,
				Line2:       line2,
				City:        addr.City,
				Region:      addr.Region,
				PostalCode:  addr.PostalCode,
				CountryCode: addr.CountryCode,
				Phone:       addr.Phone,
				Email:       order.ContactEmail,
			},
		},
	}, nil
}

// Summary is a short, log-safe description of the document.
func (d Document) Summary() string {
	parts := []string{"externalOrderId=" + d.Metadata.ExternalOrderID}
	for _, item := range d.Order.Items {
		parts = append(parts, fmt.Sprintf("qty=%d binding=%s", item.Quantity, item.Binding.Type))
		for _, comp := range item.Components {
			parts = append(parts, fmt.Sprintf("%s=%dpp", strings.ToLower(comp.Type), comp.Pages))
		}
	}
	parts = append(parts, "country="+d.Order.Delivery.CountryCode)
	return strings.Join(parts, " ")
}
