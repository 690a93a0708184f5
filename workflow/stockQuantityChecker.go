package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// StockGroupKey identifies the equivalence class of stock rows that
// availability checks and reservations operate on.
type StockGroupKey struct {
	CompanyId   int
	WarehouseId *int
	PlanId      *int
	models.GoodSpec
}

func (k StockGroupKey) String() string {
	return fmt.Sprintf("%d|%s|%s|%d|%d|%d|%d|%d|%s|%s|%s|%s",
		k.CompanyId,
		intPtrKey(k.WarehouseId),
		intPtrKey(k.PlanId),
		k.ProductId,
		k.PackagingId,
		k.Grammage,
		k.SizeX,
		k.SizeY,
		intPtrKey(k.PaperColorGroupId),
		intPtrKey(k.PaperColorId),
		intPtrKey(k.PaperPatternId),
		intPtrKey(k.PaperCertId),
	)
}

func intPtrKey(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

// scopeStockGroup narrows a query to the rows of one stock group. Nullable
// columns must match on NULL, not just on value.
func scopeStockGroup(tx *gorm.DB, key StockGroupKey) *gorm.DB {
	q := tx.Model(&models.Stock{}).
		Where("stocks.company_id = ?", key.CompanyId).
		Where("stocks.is_deleted = ?", false).
		Where("stocks.product_id = ?", key.ProductId).
		Where("stocks.packaging_id = ?", key.PackagingId).
		Where("stocks.grammage = ?", key.Grammage).
		Where("stocks.size_x = ?", key.SizeX).
		Where("stocks.size_y = ?", key.SizeY)
	q = whereNullableInt(q, "stocks.warehouse_id", key.WarehouseId)
	q = whereNullableInt(q, "stocks.plan_id", key.PlanId)
	q = whereNullableInt(q, "stocks.paper_color_group_id", key.PaperColorGroupId)
	q = whereNullableInt(q, "stocks.paper_color_id", key.PaperColorId)
	q = whereNullableInt(q, "stocks.paper_pattern_id", key.PaperPatternId)
	q = whereNullableInt(q, "stocks.paper_cert_id", key.PaperCertId)
	return q
}

func whereNullableInt(q *gorm.DB, column string, value *int) *gorm.DB {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}

// GetStockGroupAvailableQuantity sums event changes over the whole group,
// excluding cancelled rows. PENDING reservations count against the total.
func GetStockGroupAvailableQuantity(tx *gorm.DB, key StockGroupKey) (decimal.Decimal, error) {
	var total *decimal.Decimal
	err := scopeStockGroup(tx, key).
		Joins("JOIN stock_events ON stock_events.stock_id = stocks.id").
		Where("stock_events.status <> ?", models.StockEventStatusCancelled).
		Select("SUM(stock_events.change)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if total == nil {
		return decimal.Zero, nil
	}
	return *total, nil
}

type CheckStockGroupQuantityParams struct {
	InquiryCompanyId int
	Key              StockGroupKey
	Quantity         decimal.Decimal
}

// CheckStockGroupAvailableQuantity validates that the group can cover the
// requested quantity. It fails closed: unknown groups and invisible groups
// read as insufficient, never as a pass. Callers about to reserve must hold
// the stock group lock before calling.
func CheckStockGroupAvailableQuantity(tx *gorm.DB, logger *logrus.Logger, params CheckStockGroupQuantityParams) error {
	if !params.Quantity.IsPositive() {
		return utils.BadRequestError("quantity must be positive")
	}

	// A company sees a partner's stock only through an active business
	// relationship.
	if params.InquiryCompanyId != params.Key.CompanyId {
		visible, err := hasRelationshipTx(tx, params.InquiryCompanyId, params.Key.CompanyId)
		if err != nil {
			config.LogError(logger, "stockQuantityChecker.go", "CheckStockGroupAvailableQuantity", "hasRelationshipTx", params.Key.String(), err)
			return err
		}
		if !visible {
			return utils.BadRequestError("insufficient stock quantity")
		}
	}

	var groupCount int64
	if err := scopeStockGroup(tx, params.Key).Count(&groupCount).Error; err != nil {
		config.LogError(logger, "stockQuantityChecker.go", "CheckStockGroupAvailableQuantity", "CountGroup", params.Key.String(), err)
		return err
	}
	if groupCount == 0 {
		return utils.BadRequestError("insufficient stock quantity")
	}

	available, err := GetStockGroupAvailableQuantity(tx, params.Key)
	if err != nil {
		config.LogError(logger, "stockQuantityChecker.go", "CheckStockGroupAvailableQuantity", "SumGroup", params.Key.String(), err)
		return err
	}
	if available.LessThan(params.Quantity) {
		return utils.BadRequestError("insufficient stock quantity")
	}
	return nil
}

func hasRelationshipTx(tx *gorm.DB, companyId int, partnerCompanyId int) (bool, error) {
	var count int64
	err := tx.Model(&models.BusinessRelationship{}).
		Where("is_activated = ?", true).
		Where("(src_company_id = ? AND dst_company_id = ?) OR (src_company_id = ? AND dst_company_id = ?)",
			companyId, partnerCompanyId, partnerCompanyId, companyId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
