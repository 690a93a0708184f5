package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

func breakdown(unit models.PriceUnit) TradePriceBreakdownInput {
	return TradePriceBreakdownInput{
		OfficialPriceType: models.OfficialPriceTypeWholesale,
		OfficialPrice:     decimal.NewFromInt(1000000),
		OfficialPriceUnit: models.PriceUnitWonPerTon,
		DiscountType:      models.DiscountTypeDefault,
		DiscountPrice:     decimal.NewFromInt(5),
		UnitPrice:         decimal.NewFromInt(950000),
		UnitPriceUnit:     unit,
		ProcessPrice:      decimal.Zero,
	}
}

func sheetBundle() *AltBundleInput {
	return &AltBundleInput{AltSizeX: 788, AltSizeY: 1091, AltQuantity: decimal.NewFromInt(2000)}
}

func rollBundle() *AltBundleInput {
	return &AltBundleInput{AltSizeX: 788, AltQuantity: decimal.NewFromInt(3000)}
}

func TestValidateTradePriceBreakdown_UnitRulesPerPackaging(t *testing.T) {
	cases := []struct {
		name      string
		packaging models.PackagingType
		unit      models.PriceUnit
		wantErr   bool
	}{
		{"roll per ton", models.PackagingTypeRoll, models.PriceUnitWonPerTon, false},
		{"roll per sheet", models.PackagingTypeRoll, models.PriceUnitWonPerSheet, true},
		{"roll per box", models.PackagingTypeRoll, models.PriceUnitWonPerBox, true},
		{"skid per ton", models.PackagingTypeSkid, models.PriceUnitWonPerTon, false},
		{"skid per sheet", models.PackagingTypeSkid, models.PriceUnitWonPerSheet, false},
		{"skid per box", models.PackagingTypeSkid, models.PriceUnitWonPerBox, true},
		{"ream per ream", models.PackagingTypeReam, models.PriceUnitWonPerReam, false},
		{"ream per ton", models.PackagingTypeReam, models.PriceUnitWonPerTon, false},
		{"ream per sheet", models.PackagingTypeReam, models.PriceUnitWonPerSheet, true},
		{"box per box", models.PackagingTypeBox, models.PriceUnitWonPerBox, false},
		{"box per ton", models.PackagingTypeBox, models.PriceUnitWonPerTon, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTradePriceBreakdown(tc.packaging, breakdown(tc.unit))
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %s priced %s", tc.packaging, tc.unit)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && utils.KindOf(err) != utils.ErrorKindBadRequest {
				t.Fatalf("expected BAD_REQUEST, got %s", utils.KindOf(err))
			}
		})
	}
}

func TestValidateTradePriceBreakdown_AltBundleOverridesPackaging(t *testing.T) {
	// a sheeted bundle validates as SKID even when the goods are ream-packed
	b := breakdown(models.PriceUnitWonPerSheet)
	b.AltBundle = sheetBundle()
	if err := ValidateTradePriceBreakdown(models.PackagingTypeReam, b); err != nil {
		t.Fatalf("sheeted bundle should validate as skid: %v", err)
	}

	// a roll bundle must be priced per ton
	b = breakdown(models.PriceUnitWonPerSheet)
	b.AltBundle = rollBundle()
	if err := ValidateTradePriceBreakdown(models.PackagingTypeSkid, b); err == nil {
		t.Fatal("roll bundle priced per sheet should fail")
	}
	b = breakdown(models.PriceUnitWonPerTon)
	b.AltBundle = rollBundle()
	if err := ValidateTradePriceBreakdown(models.PackagingTypeSkid, b); err != nil {
		t.Fatalf("roll bundle priced per ton should pass: %v", err)
	}
}

func TestValidateTradePriceBreakdown_AltBundleShape(t *testing.T) {
	b := breakdown(models.PriceUnitWonPerTon)
	b.AltBundle = &AltBundleInput{AltSizeX: 0, AltQuantity: decimal.NewFromInt(100)}
	if err := ValidateTradePriceBreakdown(models.PackagingTypeSkid, b); err == nil {
		t.Fatal("zero width bundle should fail")
	}

	b = breakdown(models.PriceUnitWonPerTon)
	b.AltBundle = &AltBundleInput{AltSizeX: 788, AltQuantity: decimal.Zero}
	if err := ValidateTradePriceBreakdown(models.PackagingTypeSkid, b); err == nil {
		t.Fatal("zero quantity bundle should fail")
	}

	b = breakdown(models.PriceUnitWonPerBox)
	b.AltBundle = sheetBundle()
	if err := ValidateTradePriceBreakdown(models.PackagingTypeBox, b); err == nil {
		t.Fatal("boxed goods with a bundle should fail")
	}
}

func TestValidateTradePriceBreakdown_NegativePrices(t *testing.T) {
	b := breakdown(models.PriceUnitWonPerTon)
	b.UnitPrice = decimal.NewFromInt(-1)
	if err := ValidateTradePriceBreakdown(models.PackagingTypeSkid, b); err == nil {
		t.Fatal("negative unit price should fail")
	}
}

func TestValidateOrderStockTradePrice_SyncWithBundleAlwaysFails(t *testing.T) {
	// regardless of packaging type, unit, or bundle shape
	bundles := []*AltBundleInput{sheetBundle(), rollBundle()}
	packagings := []models.PackagingType{
		models.PackagingTypeSkid, models.PackagingTypeReam,
		models.PackagingTypeBox, models.PackagingTypeRoll,
	}
	units := []models.PriceUnit{
		models.PriceUnitWonPerTon, models.PriceUnitWonPerBox,
		models.PriceUnitWonPerReam, models.PriceUnitWonPerSheet,
	}
	for _, bundle := range bundles {
		for _, packaging := range packagings {
			for _, unit := range units {
				b := breakdown(unit)
				b.AltBundle = bundle
				err := ValidateOrderStockTradePrice(packaging, true, b)
				if err == nil {
					t.Fatalf("sync + bundle must fail (packaging=%s unit=%s)", packaging, unit)
				}
				if utils.KindOf(err) != utils.ErrorKindBadRequest {
					t.Fatalf("expected BAD_REQUEST, got %s", utils.KindOf(err))
				}
			}
		}
	}
}

func TestValidateOrderStockTradePrice_SyncWithoutBundlePasses(t *testing.T) {
	if err := ValidateOrderStockTradePrice(models.PackagingTypeSkid, true, breakdown(models.PriceUnitWonPerTon)); err != nil {
		t.Fatalf("sync without bundle should pass: %v", err)
	}
}
