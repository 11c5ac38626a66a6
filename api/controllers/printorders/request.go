package printorders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storyprint-backend/api/validators"
	svc "github.com/angelmondragon/storyprint-backend/internal/printorders"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

type shippingAddressRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Line1       string  `json:"line1" validate:"required,max=200"`
	Line2       *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City        string  `json:"city" validate:"required,max=100"`
	Region      string  `json:"region,omitempty" validate:"max=100"`
	PostalCode  string  `json:"postalCode" validate:"required,max=20"`
	CountryCode string  `json:"countryCode" validate:"required,len=2"`
	Phone       string  `json:"phone,omitempty" validate:"max=40"`
}

type createPrintOrderRequest struct {
	StoryID         uuid.UUID              `json:"storyId" validate:"required"`
	OutputID        uuid.UUID              `json:"outputId" validate:"required"`
	ProductID       uuid.UUID              `json:"productId" validate:"required"`
	Quantity        int                    `json:"quantity" validate:"required,min=1,max=100"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress"`
	ContactEmail    string                 `json:"contactEmail" validate:"required,email"`
	CustomOptions   map[string]any         `json:"customOptions,omitempty"`
}

func (r createPrintOrderRequest) toInput() svc.CreateInput {
	addr := r.ShippingAddress
	var line2 *string
	if addr.Line2 != nil {
		v := validators.SanitizeString(*addr.Line2, 200)
		if v != "" {
			line2 = &v
		}
	}
	return svc.CreateInput{
		StoryID:   r.StoryID,
		OutputID:  r.OutputID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		ShippingAddress: types.ShippingAddress{
			Name:        validators.SanitizeString(addr.Name, 200),
			Line1:       validators.SanitizeString(addr.Line1, 200),
			Line2:       line2,
			City:        validators.SanitizeString(addr.City, 100),
			Region:      validators.SanitizeString(addr.Region, 100),
			PostalCode:  validators.SanitizeString(addr.PostalCode, 20),
			CountryCode: strings.ToUpper(validators.SanitizeString(addr.CountryCode, 2)),
			Phone:       validators.SanitizeString(addr.Phone, 40),
		},
		ContactEmail:  strings.ToLower(validators.SanitizeString(r.ContactEmail, 320)),
		CustomOptions: r.CustomOptions,
	}
}

type cancelPrintOrderRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}
