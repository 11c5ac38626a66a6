package product

import (
	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrintProductDTO is the catalog entry returned to parents.
type PrintProductDTO struct {
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	Binding           string              `json:"binding"`
	Format            types.PrintFormat   `json:"format"`
	Substrate         types.Substrate     `json:"substrate"`
	PricingTiers      []types.PricingTier `json:"pricingTiers"`
	SetupFee          decimal.Decimal     `json:"setupFee"`
	ShippingFee       decimal.Decimal     `json:"shippingFee"`
	Currency          string              `json:"currency"`
	ShippingCountries []string            `json:"shippingCountries"`
	MinQuantity       int                 `json:"minQuantity"`
	MaxQuantity       int                 `json:"maxQuantity"`
}

func toDTO(p models.PrintProduct) PrintProductDTO {
	snapshot := p.Snapshot()
	dto := PrintProductDTO{
		ID:                p.ID,
		Name:              p.Name,
		Binding:           string(p.Binding),
		Format:            snapshot.Format,
		Substrate:         snapshot.Substrate,
		PricingTiers:      snapshot.PricingTiers,
		SetupFee:          snapshot.SetupFee,
		ShippingFee:       snapshot.ShippingFee,
		Currency:          snapshot.Currency,
		ShippingCountries: snapshot.ShippingCountries,
	}
	for i, tier := range snapshot.PricingTiers {
		if i == 0 || tier.MinQuantity < dto.MinQuantity {
			dto.MinQuantity = tier.MinQuantity
		}
		if tier.MaxQuantity > dto.MaxQuantity {
			dto.MaxQuantity = tier.MaxQuantity
		}
	}
	return dto
}
