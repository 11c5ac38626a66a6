package types

import "strings"

// ShippingAddress is the delivery destination stored on a print order.
type ShippingAddress struct {
	Name        string  `json:"name"`
	Line1       string  `json:"line1"`
	Line2       *string `json:"line2,omitempty"`
	City        string  `json:"city"`
	Region      string  `json:"region,omitempty"`
	PostalCode  string  `json:"postalCode"`
	CountryCode string  `json:"countryCode"`
	Phone       string  `json:"phone,omitempty"`
}

// Normalized trims every field, upper-cases the country code and, for GB,
// rewrites the postcode into its canonical "OUTWARD INWARD" form.
func (a ShippingAddress) Normalized() ShippingAddress {
	out := ShippingAddress{
		Name:        strings.TrimSpace(a.Name),
		Line1:       strings.TrimSpace(a.Line1),
		City:        strings.TrimSpace(a.City),
		Region:      strings.TrimSpace(a.Region),
		PostalCode:  strings.TrimSpace(a.PostalCode),
		CountryCode: strings.ToUpper(strings.TrimSpace(a.CountryCode)),
		Phone:       strings.TrimSpace(a.Phone),
	}
	if a.Line2 != nil {
		if line2 := strings.TrimSpace(*a.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	if out.CountryCode == "GB" {
		compact := strings.ToUpper(strings.ReplaceAll(out.PostalCode, " ", ""))
		if len(compact) > 3 {
			compact = compact[:len(compact)-3] + " " + compact[len(compact)-3:]
		}
		out.PostalCode = compact
	}
	return out
}
