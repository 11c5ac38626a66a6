package printorders

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

const (
	MinQuantity = 1
	MaxQuantity = 100

	pageMultiple = 4
)

var postcodePatterns = map[string]*regexp.Regexp{
	"GB": regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`),
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
}

// GateInput is everything the printing constraints are checked against.
type GateInput struct {
	Quantity int
	Files    types.PrintableFiles
	Metadata types.PrintableMetadata
	Address  types.ShippingAddress
	Product  types.ProductSnapshot
}

func gateInputFor(order *models.PrintOrder) GateInput {
	return GateInput{
		Quantity: order.Quantity,
		Files:    order.PrintableFiles,
		Metadata: order.PrintableMetadata,
		Address:  order.ShippingAddress,
		Product:  order.ProductSnapshot,
	}
}

// Gate checks an order against physical printing constraints. It never
// touches storage.
type Gate struct {
	now func() time.Time
}

func NewGate() *Gate {
	return &Gate{now: func() time.Time { return time.Now().UTC() }}
}

// ValidateIntake runs the checks that can be decided when an order is
// placed: address, quantity and PDF presence.
func (g *Gate) ValidateIntake(in GateInput) types.ValidationResult {
	var errs error
	errs = multierr.Append(errs, checkAddress(in.Address, in.Product))
	errs = multierr.Append(errs, checkQuantity(in.Quantity, in.Product))
	errs = multierr.Append(errs, checkFiles(in.Files))
	return g.result(errs)
}

// Validate runs every check, including page layout rules for the binding.
func (g *Gate) Validate(in GateInput) types.ValidationResult {
	var errs error
	errs = multierr.Append(errs, checkAddress(in.Address, in.Product))
	errs = multierr.Append(errs, checkQuantity(in.Quantity, in.Product))
	errs = multierr.Append(errs, checkFiles(in.Files))
	errs = multierr.Append(errs, checkPages(in.Metadata, enums.Binding(in.Product.Binding)))
	return g.result(errs)
}

func (g *Gate) result(errs error) types.ValidationResult {
	messages := []string{}
	for _, err := range multierr.Errors(errs) {
		messages = append(messages, err.Error())
	}
	return types.ValidationResult{
		Valid:     len(messages) == 0,
		Errors:    messages,
		CheckedAt: g.now(),
	}
}

func checkAddress(addr types.ShippingAddress, product types.ProductSnapshot) error {
	var errs error
	required := map[string]string{
		"name":        addr.Name,
		"line1":       addr.Line1,
		"city":        addr.City,
		"postalCode":  addr.PostalCode,
		"countryCode": addr.CountryCode,
	}
	for _, field := range []string{"name", "line1", "city", "postalCode", "countryCode"} {
		if strings.TrimSpace(required[field]) == "" {
			errs = multierr.Append(errs, fmt.Errorf("shipping address %s is required", field))
		}
	}

	country := strings.ToUpper(strings.TrimSpace(addr.CountryCode))
	if country == "" {
		return errs
	}
	if len(country) != 2 {
		return multierr.Append(errs, fmt.Errorf("shipping address countryCode %q must be ISO 3166-1 alpha-2", addr.CountryCode))
	}
	if !product.ShipsTo(country) {
		errs = multierr.Append(errs, fmt.Errorf("product %q does not ship to %s", product.Name, country))
	}
	if pattern, ok := postcodePatterns[country]; ok && strings.TrimSpace(addr.PostalCode) != "" {
		postcode := strings.ToUpper(strings.TrimSpace(addr.PostalCode))
		if !pattern.MatchString(postcode) {
			errs = multierr.Append(errs, fmt.Errorf("shipping address postalCode %q is not a valid %s postcode", addr.PostalCode, country))
		}
	}
	return errs
}

func checkQuantity(quantity int, product types.ProductSnapshot) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return fmt.Errorf("quantity must be between %d and %d", MinQuantity, MaxQuantity)
	}
	if _, ok := product.TierFor(quantity); !ok {
		return fmt.Errorf("no pricing tier covers quantity %d", quantity)
	}
	return nil
}

func checkFiles(files types.PrintableFiles) error {
	var errs error
	if strings.TrimSpace(files.CoverPDFURL) == "" {
		errs = multierr.Append(errs, errors.New("cover PDF is missing"))
	}
	if strings.TrimSpace(files.InteriorPDFURL) == "" {
		errs = multierr.Append(errs, errors.New("interior PDF is missing"))
	}
	return errs
}

func checkPages(meta types.PrintableMetadata, binding enums.Binding) error {
	var errs error
	if meta.InteriorPageCount%pageMultiple != 0 {
		errs = multierr.Append(errs, fmt.Errorf("interior page count %d must be a multiple of %d", meta.InteriorPageCount, pageMultiple))
	}
	if minPages := binding.MinInteriorPages(); meta.InteriorPageCount < minPages {
		errs = multierr.Append(errs, fmt.Errorf("interior page count %d is below the %d page minimum for %s binding", meta.InteriorPageCount, minPages, binding))
	}
	return errs
}
