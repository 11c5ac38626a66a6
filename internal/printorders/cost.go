package printorders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

// EstimateCost prices quantity copies from the snapshot's tier table plus the
// flat setup and shipping fees. Quantities outside every tier price at zero
// per unit; the validation gate rejects them separately.
func EstimateCost(product types.ProductSnapshot, quantity int) types.CostEstimate {
	unit := decimal.Zero
	if tier, ok := product.TierFor(quantity); ok {
		unit = tier.UnitPrice
	}
	subtotal := unit.Mul(decimal.NewFromInt(int64(quantity)))
	return types.CostEstimate{
		UnitPrice: unit,
		Subtotal:  subtotal,
		Shipping:  product.ShippingFee,
		SetupFee:  product.SetupFee,
		Total:     subtotal.Add(product.ShippingFee).Add(product.SetupFee),
		Currency:  product.Currency,
	}
}
