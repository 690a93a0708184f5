package workflow

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

type UpdateTradePriceParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	SuppliedPrice  decimal.Decimal           `json:"suppliedPrice"`
	VatPrice       decimal.Decimal           `json:"vatPrice"`
	IsSyncPrice    bool                      `json:"isSyncPrice"`
	StockPrice     *TradePriceBreakdownInput `json:"orderStockTradePrice"`
	DepositPrice   *TradePriceBreakdownInput `json:"orderDepositTradePrice"`
}

// UpdateTradePrice replaces one company's pricing of an order. Each side
// keeps its own row; updating never touches the counterparty's pricing.
func UpdateTradePrice(ctx context.Context, params UpdateTradePriceParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(params.ActorCompanyId); err != nil {
			return err
		}
		if !isEditableStatus(scope.Order.Status) {
			return utils.ConflictError("order can no longer be priced")
		}

		// overwritten unit prices cannot carry a size override, whatever
		// else the request says
		if params.IsSyncPrice {
			if (params.StockPrice != nil && params.StockPrice.AltBundle != nil) ||
				(params.DepositPrice != nil && params.DepositPrice.AltBundle != nil) {
				return utils.BadRequestError("price overwriting cannot be combined with an alternate bundle")
			}
		}

		switch scope.Order.OrderType {
		case models.OrderTypeRefund, models.OrderTypeReturn:
			if params.SuppliedPrice.IsPositive() || params.VatPrice.IsPositive() {
				return utils.BadRequestError("refund and return prices must not be positive")
			}
		default:
			if params.SuppliedPrice.IsNegative() || params.VatPrice.IsNegative() {
				return utils.BadRequestError("prices must not be negative")
			}
		}

		pricedCompanyId := pricedCompanyOf(scope, params.ActorCompanyId)

		switch scope.Order.OrderType {
		case models.OrderTypeNormal:
			return updateOrderStockTradePriceTx(tx, logger, scope, pricedCompanyId, params)
		case models.OrderTypeDeposit:
			return updateOrderDepositTradePriceTx(tx, logger, scope, pricedCompanyId, params)
		default:
			return replaceTradePriceRow(tx, logger, params.OrderId, pricedCompanyId, params, nil, nil)
		}
	})
}

// pricedCompanyOf resolves which side's price row the actor is writing: its
// own when it is a direct participant, otherwise the side it manages.
func pricedCompanyOf(scope *orderScope, actorCompanyId int) int {
	if actorCompanyId == scope.Order.SrcCompanyId || actorCompanyId == scope.Order.DstCompanyId {
		return actorCompanyId
	}
	if scope.actsForSeller(actorCompanyId) {
		return scope.Order.DstCompanyId
	}
	return scope.Order.SrcCompanyId
}

func updateOrderStockTradePriceTx(tx *gorm.DB, logger *logrus.Logger, scope *orderScope, pricedCompanyId int, params UpdateTradePriceParams) error {
	if params.StockPrice == nil {
		return utils.BadRequestError("normal orders require a stock price breakdown")
	}
	orderStock := scope.Order.OrderStock
	if orderStock == nil {
		err := utils.InternalError("normal order has no stock sub-record", nil)
		config.LogError(logger, "tradePrice.go", "updateOrderStockTradePriceTx", "MissingOrderStock", params.OrderId, err)
		return err
	}

	assignedStock, err := sellerAssignedStock(tx, logger, orderStock.ID)
	if err != nil {
		return err
	}
	packagingId := orderStock.PackagingId
	if assignedStock != nil {
		packagingId = assignedStock.PackagingId
	}
	packaging, err := fetchPackagingTypeTx(tx, logger, packagingId)
	if err != nil {
		return err
	}
	if err := ValidateOrderStockTradePrice(packaging, params.IsSyncPrice, *params.StockPrice); err != nil {
		return err
	}

	stockPrice := &models.OrderStockTradePrice{
		OrderId:        params.OrderId,
		CompanyId:      pricedCompanyId,
		PriceBreakdown: params.StockPrice.toModel(),
	}
	var altBundle *models.OrderStockTradeAltBundle
	if params.StockPrice.AltBundle != nil {
		altBundle = &models.OrderStockTradeAltBundle{
			OrderId:     params.OrderId,
			CompanyId:   pricedCompanyId,
			AltSizeX:    params.StockPrice.AltBundle.AltSizeX,
			AltSizeY:    params.StockPrice.AltBundle.AltSizeY,
			AltQuantity: params.StockPrice.AltBundle.AltQuantity,
		}
	}
	if err := replaceTradePriceRow(tx, logger, params.OrderId, pricedCompanyId, params, stockPrice, nil); err != nil {
		return err
	}
	if altBundle != nil {
		if err := tx.Create(altBundle).Error; err != nil {
			config.LogError(logger, "tradePrice.go", "updateOrderStockTradePriceTx", "CreateAltBundle", params.OrderId, err)
			return err
		}
	}

	if params.IsSyncPrice && assignedStock != nil {
		return syncPriceToIncomingStocks(tx, logger, scope, pricedCompanyId, assignedStock, *params.StockPrice)
	}
	return nil
}

func updateOrderDepositTradePriceTx(tx *gorm.DB, logger *logrus.Logger, scope *orderScope, pricedCompanyId int, params UpdateTradePriceParams) error {
	if params.DepositPrice == nil {
		return utils.BadRequestError("deposit orders require a deposit price breakdown")
	}
	orderDeposit := scope.Order.OrderDeposit
	if orderDeposit == nil {
		err := utils.InternalError("deposit order has no deposit sub-record", nil)
		config.LogError(logger, "tradePrice.go", "updateOrderDepositTradePriceTx", "MissingOrderDeposit", params.OrderId, err)
		return err
	}

	packaging, err := fetchPackagingTypeTx(tx, logger, orderDeposit.PackagingId)
	if err != nil {
		return err
	}
	if err := ValidateOrderDepositTradePrice(packaging, *params.DepositPrice); err != nil {
		return err
	}

	depositPrice := &models.OrderDepositTradePrice{
		OrderId:        params.OrderId,
		CompanyId:      pricedCompanyId,
		PriceBreakdown: params.DepositPrice.toModel(),
	}
	if err := replaceTradePriceRow(tx, logger, params.OrderId, pricedCompanyId, params, nil, depositPrice); err != nil {
		return err
	}
	if params.DepositPrice.AltBundle != nil {
		altBundle := &models.OrderDepositTradeAltBundle{
			OrderId:     params.OrderId,
			CompanyId:   pricedCompanyId,
			AltSizeX:    params.DepositPrice.AltBundle.AltSizeX,
			AltSizeY:    params.DepositPrice.AltBundle.AltSizeY,
			AltQuantity: params.DepositPrice.AltBundle.AltQuantity,
		}
		if err := tx.Create(altBundle).Error; err != nil {
			config.LogError(logger, "tradePrice.go", "updateOrderDepositTradePriceTx", "CreateAltBundle", params.OrderId, err)
			return err
		}
	}
	return nil
}

// replaceTradePriceRow removes the company's previous pricing of the order
// wholesale and writes the new row. Partial updates would leave stale
// breakdown or bundle rows behind.
func replaceTradePriceRow(tx *gorm.DB, logger *logrus.Logger, orderId int, companyId int, params UpdateTradePriceParams, stockPrice *models.OrderStockTradePrice, depositPrice *models.OrderDepositTradePrice) error {
	for _, target := range []interface{}{
		&models.OrderStockTradeAltBundle{},
		&models.OrderDepositTradeAltBundle{},
		&models.OrderStockTradePrice{},
		&models.OrderDepositTradePrice{},
		&models.TradePrice{},
	} {
		if err := tx.Where("order_id = ? AND company_id = ?", orderId, companyId).Delete(target).Error; err != nil {
			config.LogError(logger, "tradePrice.go", "replaceTradePriceRow", "DeletePrevious", orderId, err)
			return err
		}
	}

	tradePrice := models.TradePrice{
		OrderId:       orderId,
		CompanyId:     companyId,
		SuppliedPrice: params.SuppliedPrice,
		VatPrice:      params.VatPrice,
		IsSyncPrice:   params.IsSyncPrice,
	}
	if err := tx.Create(&tradePrice).Error; err != nil {
		config.LogError(logger, "tradePrice.go", "replaceTradePriceRow", "CreateTradePrice", orderId, err)
		return err
	}
	if stockPrice != nil {
		if err := tx.Create(stockPrice).Error; err != nil {
			config.LogError(logger, "tradePrice.go", "replaceTradePriceRow", "CreateStockPrice", orderId, err)
			return err
		}
	}
	if depositPrice != nil {
		if err := tx.Create(depositPrice).Error; err != nil {
			config.LogError(logger, "tradePrice.go", "replaceTradePriceRow", "CreateDepositPrice", orderId, err)
			return err
		}
	}
	return nil
}

// sellerAssignedStock walks plan -> assign event -> stock for the goods
// the seller reserved against the order; nil before reservation.
func sellerAssignedStock(tx *gorm.DB, logger *logrus.Logger, orderStockId int) (*models.Stock, error) {
	plan, err := sellerAssignPlan(tx, orderStockId)
	if err != nil {
		config.LogError(logger, "tradePrice.go", "sellerAssignedStock", "FindSellerPlan", orderStockId, err)
		return nil, err
	}
	if plan == nil || plan.AssignStockEventId == nil {
		return nil, nil
	}
	var event models.StockEvent
	if err := tx.First(&event, *plan.AssignStockEventId).Error; err != nil {
		config.LogError(logger, "tradePrice.go", "sellerAssignedStock", "FetchAssignEvent", *plan.AssignStockEventId, err)
		return nil, err
	}
	var stock models.Stock
	if err := tx.First(&stock, event.StockId).Error; err != nil {
		config.LogError(logger, "tradePrice.go", "sellerAssignedStock", "FetchStock", event.StockId, err)
		return nil, err
	}
	return &stock, nil
}

func fetchPackagingTypeTx(tx *gorm.DB, logger *logrus.Logger, packagingId int) (models.PackagingType, error) {
	var packaging models.Packaging
	if err := tx.First(&packaging, packagingId).Error; err != nil {
		config.LogError(logger, "tradePrice.go", "fetchPackagingTypeTx", "FetchPackaging", packagingId, err)
		return "", utils.NotFoundError("packaging not found")
	}
	return packaging.Type, nil
}

// syncPriceToIncomingStocks copies the buyer's overwritten unit price onto
// the price rows of stocks received under this order, matching the
// assigned goods' full spec.
func syncPriceToIncomingStocks(tx *gorm.DB, logger *logrus.Logger, scope *orderScope, pricedCompanyId int, assignedStock *models.Stock, breakdown TradePriceBreakdownInput) error {
	var buyerPlans []models.Plan
	err := tx.Where("order_stock_id = ?", scope.Order.OrderStock.ID).
		Where("type = ?", models.PlanTypeTradeNormalBuyer).
		Where("is_deleted = ?", false).
		Limit(1).Find(&buyerPlans).Error
	if err != nil {
		config.LogError(logger, "tradePrice.go", "syncPriceToIncomingStocks", "FindBuyerPlan", scope.Order.ID, err)
		return err
	}
	if len(buyerPlans) == 0 || buyerPlans[0].CompanyId != pricedCompanyId {
		return nil
	}
	buyerPlan := buyerPlans[0]

	var stockIds []int
	q := tx.Model(&models.Stock{}).
		Where("initial_plan_id = ?", buyerPlan.ID).
		Where("product_id = ? AND packaging_id = ? AND grammage = ? AND size_x = ? AND size_y = ?",
			assignedStock.ProductId, assignedStock.PackagingId, assignedStock.Grammage,
			assignedStock.SizeX, assignedStock.SizeY)
	q = whereNullableInt(q, "paper_color_group_id", assignedStock.PaperColorGroupId)
	q = whereNullableInt(q, "paper_color_id", assignedStock.PaperColorId)
	q = whereNullableInt(q, "paper_pattern_id", assignedStock.PaperPatternId)
	q = whereNullableInt(q, "paper_cert_id", assignedStock.PaperCertId)
	if err := q.Pluck("id", &stockIds).Error; err != nil {
		config.LogError(logger, "tradePrice.go", "syncPriceToIncomingStocks", "FindIncomingStocks", buyerPlan.ID, err)
		return err
	}
	if len(stockIds) == 0 {
		return nil
	}

	err = tx.Model(&models.StockPrice{}).
		Where("stock_id IN ?", stockIds).
		Updates(map[string]interface{}{
			"official_price_type": breakdown.OfficialPriceType,
			"official_price":      breakdown.OfficialPrice,
			"official_price_unit": breakdown.OfficialPriceUnit,
			"discount_type":       breakdown.DiscountType,
			"discount_price":      breakdown.DiscountPrice,
			"unit_price":          breakdown.UnitPrice,
			"unit_price_unit":     breakdown.UnitPriceUnit,
		}).Error
	if err != nil {
		config.LogError(logger, "tradePrice.go", "syncPriceToIncomingStocks", "UpdateStockPrices", buyerPlan.ID, err)
		return err
	}
	return nil
}
