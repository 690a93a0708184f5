package workflow

import (
	"github.com/shopspring/decimal"

	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// AltBundleInput overrides the priced size and quantity when the trade is
// settled against a converted bundle instead of the assigned goods.
// AltSizeY > 0 means the bundle is sheeted (SKID), otherwise it is a roll.
type AltBundleInput struct {
	AltSizeX    int             `json:"altSizeX" binding:"required"`
	AltSizeY    int             `json:"altSizeY"`
	AltQuantity decimal.Decimal `json:"altQuantity" binding:"required"`
}

// TradePriceBreakdownInput is a unit-price derivation submitted by one
// side of an order.
type TradePriceBreakdownInput struct {
	OfficialPriceType models.OfficialPriceType `json:"officialPriceType" binding:"required"`
	OfficialPrice     decimal.Decimal          `json:"officialPrice"`
	OfficialPriceUnit models.PriceUnit         `json:"officialPriceUnit" binding:"required"`
	DiscountType      models.DiscountType      `json:"discountType" binding:"required"`
	DiscountPrice     decimal.Decimal          `json:"discountPrice"`
	UnitPrice         decimal.Decimal          `json:"unitPrice"`
	UnitPriceUnit     models.PriceUnit         `json:"unitPriceUnit" binding:"required"`
	ProcessPrice      decimal.Decimal          `json:"processPrice"`
	AltBundle         *AltBundleInput          `json:"altBundle"`
}

func (b TradePriceBreakdownInput) toModel() models.PriceBreakdown {
	return models.PriceBreakdown{
		OfficialPriceType: b.OfficialPriceType,
		OfficialPrice:     b.OfficialPrice,
		OfficialPriceUnit: b.OfficialPriceUnit,
		DiscountType:      b.DiscountType,
		DiscountPrice:     b.DiscountPrice,
		UnitPrice:         b.UnitPrice,
		UnitPriceUnit:     b.UnitPriceUnit,
		ProcessPrice:      b.ProcessPrice,
	}
}

// ValidateTradePriceBreakdown checks a breakdown against the packaging
// type of the goods being priced. When an alt bundle is present the
// bundle's own shape decides the rules: a sheeted bundle (AltSizeY > 0)
// validates as SKID, a roll bundle as ROLL.
func ValidateTradePriceBreakdown(packagingType models.PackagingType, breakdown TradePriceBreakdownInput) error {
	if breakdown.UnitPrice.IsNegative() || breakdown.OfficialPrice.IsNegative() {
		return utils.BadRequestError("unit prices must not be negative")
	}

	if breakdown.AltBundle != nil {
		if packagingType == models.PackagingTypeBox {
			return utils.BadRequestError("boxed goods cannot be priced with an alternate bundle")
		}
		if breakdown.AltBundle.AltSizeX <= 0 {
			return utils.BadRequestError("alternate bundle width must be positive")
		}
		if !breakdown.AltBundle.AltQuantity.IsPositive() {
			return utils.BadRequestError("alternate bundle quantity must be positive")
		}
		if breakdown.AltBundle.AltSizeY > 0 {
			packagingType = models.PackagingTypeSkid
		} else {
			packagingType = models.PackagingTypeRoll
		}
	}

	switch packagingType {
	case models.PackagingTypeRoll:
		// rolls are weighed, never counted
		if breakdown.UnitPriceUnit != models.PriceUnitWonPerTon {
			return utils.BadRequestError("roll goods must be priced per ton")
		}
		if breakdown.OfficialPriceUnit != models.PriceUnitWonPerTon {
			return utils.BadRequestError("roll goods must carry a per-ton official price")
		}
	case models.PackagingTypeSkid:
		if breakdown.UnitPriceUnit != models.PriceUnitWonPerTon &&
			breakdown.UnitPriceUnit != models.PriceUnitWonPerSheet {
			return utils.BadRequestError("skid goods must be priced per ton or per sheet")
		}
	case models.PackagingTypeReam:
		if breakdown.UnitPriceUnit != models.PriceUnitWonPerTon &&
			breakdown.UnitPriceUnit != models.PriceUnitWonPerReam {
			return utils.BadRequestError("ream goods must be priced per ton or per ream")
		}
	case models.PackagingTypeBox:
		if breakdown.UnitPriceUnit != models.PriceUnitWonPerBox {
			return utils.BadRequestError("boxed goods must be priced per box")
		}
	default:
		return utils.BadRequestError("unknown packaging type")
	}
	return nil
}

// ValidateOrderStockTradePrice applies the breakdown rules for a NORMAL
// order. Price overwriting (sync) copies the unit price onto the traded
// stock rows verbatim, so it cannot coexist with an alternate bundle that
// reshapes the priced quantity.
func ValidateOrderStockTradePrice(packagingType models.PackagingType, isSyncPrice bool, breakdown TradePriceBreakdownInput) error {
	if isSyncPrice && breakdown.AltBundle != nil {
		return utils.BadRequestError("price overwriting cannot be combined with an alternate bundle")
	}
	return ValidateTradePriceBreakdown(packagingType, breakdown)
}

// ValidateOrderDepositTradePrice applies the breakdown rules for a
// DEPOSIT order.
func ValidateOrderDepositTradePrice(packagingType models.PackagingType, breakdown TradePriceBreakdownInput) error {
	return ValidateTradePriceBreakdown(packagingType, breakdown)
}
