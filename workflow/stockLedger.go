package workflow

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// StockEventLinks attaches a new ledger entry to the plan graph.
type StockEventLinks struct {
	AssignPlanId   *int
	PlanId         *int
	OrderProcessId *int
}

// AppendStockEvent writes one ledger entry and recomputes the owning
// stock's cached quantity. Runs on the caller's transaction so the entry
// and the triggering order mutation commit atomically.
func AppendStockEvent(tx *gorm.DB, logger *logrus.Logger, stockId int, change decimal.Decimal, status models.StockEventStatus, links StockEventLinks) (int, error) {
	event := models.StockEvent{
		StockId:        stockId,
		Change:         change,
		Status:         status,
		AssignPlanId:   links.AssignPlanId,
		PlanId:         links.PlanId,
		OrderProcessId: links.OrderProcessId,
	}
	if err := tx.Create(&event).Error; err != nil {
		config.LogError(logger, "stockLedger.go", "AppendStockEvent", "CreateStockEvent", stockId, err)
		return 0, err
	}
	if err := RecomputeStockQuantity(tx, logger, stockId); err != nil {
		return 0, err
	}
	return event.ID, nil
}

// RecomputeStockQuantity persists sum(change) over non-cancelled events
// into the stock's cached snapshot.
func RecomputeStockQuantity(tx *gorm.DB, logger *logrus.Logger, stockId int) error {
	var total *decimal.Decimal
	err := tx.Model(&models.StockEvent{}).
		Where("stock_id = ?", stockId).
		Where("status <> ?", models.StockEventStatusCancelled).
		Select("SUM(`change`)").
		Scan(&total).Error
	if err != nil {
		config.LogError(logger, "stockLedger.go", "RecomputeStockQuantity", "SumEvents", stockId, err)
		return err
	}
	quantity := decimal.Zero
	if total != nil {
		quantity = *total
	}
	err = tx.Model(&models.Stock{}).
		Where("id = ?", stockId).
		Update("cached_quantity_available", quantity).Error
	if err != nil {
		config.LogError(logger, "stockLedger.go", "RecomputeStockQuantity", "UpdateCache", stockId, err)
		return err
	}
	return nil
}

// CancelStockEvent flips the entry to CANCELLED and recomputes the owning
// stock. History is never removed.
func CancelStockEvent(tx *gorm.DB, logger *logrus.Logger, eventId int) error {
	var event models.StockEvent
	if err := tx.First(&event, eventId).Error; err != nil {
		config.LogError(logger, "stockLedger.go", "CancelStockEvent", "FetchEvent", eventId, err)
		return utils.NotFoundError("stock event not found")
	}
	if event.Status == models.StockEventStatusCancelled {
		return nil
	}
	err := tx.Model(&models.StockEvent{}).
		Where("id = ?", eventId).
		Update("status", models.StockEventStatusCancelled).Error
	if err != nil {
		config.LogError(logger, "stockLedger.go", "CancelStockEvent", "UpdateStatus", eventId, err)
		return err
	}
	return RecomputeStockQuantity(tx, logger, event.StockId)
}

// ApplyStockArrival realizes a stock's pending entries (physical goods
// arrived) and recomputes the cache.
func ApplyStockArrival(tx *gorm.DB, logger *logrus.Logger, stockId int) error {
	err := tx.Model(&models.StockEvent{}).
		Where("stock_id = ?", stockId).
		Where("status = ?", models.StockEventStatusPending).
		Update("status", models.StockEventStatusNormal).Error
	if err != nil {
		config.LogError(logger, "stockLedger.go", "ApplyStockArrival", "RealizePending", stockId, err)
		return err
	}
	return RecomputeStockQuantity(tx, logger, stockId)
}

type CreateStockParams struct {
	CompanyId     int
	WarehouseId   *int
	PlanId        *int
	InitialPlanId *int
	Spec          models.GoodSpec
}

// createStock inserts a stock row with a fresh serial and a default price
// breakdown. The caller appends the opening event.
func createStock(tx *gorm.DB, logger *logrus.Logger, invoiceCode string, params CreateStockParams) (*models.Stock, error) {
	stock := models.Stock{
		Serial:                  utils.SerialP(invoiceCode),
		CompanyId:               params.CompanyId,
		WarehouseId:             params.WarehouseId,
		PlanId:                  params.PlanId,
		InitialPlanId:           params.InitialPlanId,
		GoodSpec:                params.Spec,
		CachedQuantityAvailable: decimal.Zero,
	}
	if err := tx.Create(&stock).Error; err != nil {
		config.LogError(logger, "stockLedger.go", "createStock", "CreateStock", params, err)
		return nil, err
	}
	price := models.StockPrice{
		StockId:           stock.ID,
		OfficialPriceType: models.OfficialPriceTypeNone,
		OfficialPrice:     decimal.Zero,
		OfficialPriceUnit: models.PriceUnitWonPerTon,
		DiscountType:      models.DiscountTypeDefault,
		DiscountPrice:     decimal.Zero,
		UnitPrice:         decimal.Zero,
		UnitPriceUnit:     models.PriceUnitWonPerTon,
	}
	if err := tx.Create(&price).Error; err != nil {
		config.LogError(logger, "stockLedger.go", "createStock", "CreateStockPrice", stock.ID, err)
		return nil, err
	}
	return &stock, nil
}
