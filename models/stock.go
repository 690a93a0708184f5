package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a specced parcel of goods owned by one company. Rows sharing
// the same owner, warehouse, plan scope and full good spec form a stock
// group; availability checks operate at group granularity.
type Stock struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Serial      string `gorm:"size:30;uniqueIndex;not null" json:"serial"`
	CompanyId   int    `gorm:"index;not null" json:"companyId"`
	WarehouseId *int   `gorm:"index" json:"warehouseId"`

	// PlanId scopes the group to the plan the stock is assigned under;
	// InitialPlanId records the plan that produced the stock.
	PlanId        *int `gorm:"index" json:"planId"`
	InitialPlanId *int `gorm:"index" json:"initialPlanId"`

	GoodSpec `gorm:"embedded"`

	// denormalized snapshot; recomputed from events inside the same tx
	// as any event mutation
	CachedQuantityAvailable decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cachedQuantityAvailable"`

	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StockPrice  *StockPrice  `gorm:"foreignKey:StockId" json:"stockPrice,omitempty"`
	StockEvents []StockEvent `gorm:"foreignKey:StockId" json:"stockEvents,omitempty"`
}

// StockEvent is an immutable-once-committed ledger entry; only its status
// may flip (PENDING -> NORMAL on arrival, any -> CANCELLED on void).
// Net available quantity of a stock = sum(change) over non-cancelled rows.
type StockEvent struct {
	ID      int              `gorm:"primaryKey" json:"id"`
	StockId int              `gorm:"index;not null" json:"stockId"`
	Change  decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"change"`
	Status  StockEventStatus `gorm:"size:20;index;not null" json:"status"`

	// AssignPlanId links the event that reserves quantity on a plan's
	// behalf; PlanId links events that produce stock under a plan.
	AssignPlanId   *int `gorm:"index" json:"assignPlanId"`
	PlanId         *int `gorm:"index" json:"planId"`
	OrderProcessId *int `json:"orderProcessId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StockPrice carries the per-stock price breakdown used when the trade
// price is flagged sync; it mirrors the order-side breakdown columns.
type StockPrice struct {
	ID                int               `gorm:"primaryKey" json:"id"`
	StockId           int               `gorm:"uniqueIndex;not null" json:"stockId"`
	OfficialPriceType OfficialPriceType `gorm:"size:20;not null" json:"officialPriceType"`
	OfficialPrice     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"officialPrice"`
	OfficialPriceUnit PriceUnit         `gorm:"size:20;not null" json:"officialPriceUnit"`
	DiscountType      DiscountType      `gorm:"size:20;not null" json:"discountType"`
	DiscountPrice     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"discountPrice"`
	UnitPrice         decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"unitPrice"`
	UnitPriceUnit     PriceUnit         `gorm:"size:20;not null" json:"unitPriceUnit"`
}
