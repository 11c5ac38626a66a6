package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

// PrintProduct is a printable book format offered in the catalog.
type PrintProduct struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string              `gorm:"column:name;not null"`
	Binding           enums.Binding       `gorm:"column:binding;not null"`
	Format            types.PrintFormat   `gorm:"column:format;type:jsonb;serializer:json;not null"`
	Substrate         types.Substrate     `gorm:"column:substrate;type:jsonb;serializer:json;not null"`
	PricingTiers      []types.PricingTier `gorm:"column:pricing_tiers;type:jsonb;serializer:json;not null"`
	SetupFee          decimal.Decimal     `gorm:"column:setup_fee;type:numeric(10,2);not null"`
	ShippingFee       decimal.Decimal     `gorm:"column:shipping_fee;type:numeric(10,2);not null"`
	Currency          string              `gorm:"column:currency;not null;default:GBP"`
	ShippingCountries pq.StringArray      `gorm:"column:shipping_countries;type:text[];not null"`
	Active            bool                `gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PrintProduct) TableName() string { return "print_products" }

// Snapshot freezes the product for embedding on an order.
func (p PrintProduct) Snapshot() types.ProductSnapshot {
	countries := make([]string, len(p.ShippingCountries))
	copy(countries, p.ShippingCountries)
	tiers := make([]types.PricingTier, len(p.PricingTiers))
	copy(tiers, p.PricingTiers)
	return types.ProductSnapshot{
		ProductID:         p.ID,
		Name:              p.Name,
		Binding:           string(p.Binding),
		Format:            p.Format,
		Substrate:         p.Substrate,
		PricingTiers:      tiers,
		SetupFee:          p.SetupFee,
		ShippingFee:       p.ShippingFee,
		Currency:          p.Currency,
		ShippingCountries: countries,
	}
}
