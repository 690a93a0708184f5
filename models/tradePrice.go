package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradePrice holds each company's own pricing of an order; one row per
// (order, company) pair.
type TradePrice struct {
	OrderId       int             `gorm:"primaryKey;autoIncrement:false" json:"orderId"`
	CompanyId     int             `gorm:"primaryKey;autoIncrement:false" json:"companyId"`
	SuppliedPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"suppliedPrice"`
	VatPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"vatPrice"`
	IsSyncPrice   bool            `gorm:"default:false" json:"isSyncPrice"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	OrderStockTradePrice   *OrderStockTradePrice   `gorm:"foreignKey:OrderId,CompanyId;references:OrderId,CompanyId" json:"orderStockTradePrice,omitempty"`
	OrderDepositTradePrice *OrderDepositTradePrice `gorm:"foreignKey:OrderId,CompanyId;references:OrderId,CompanyId" json:"orderDepositTradePrice,omitempty"`
}

// PriceBreakdown is the shared shape of a unit-price derivation; the
// validator checks it against the packaging type of the goods.
type PriceBreakdown struct {
	OfficialPriceType OfficialPriceType `gorm:"size:20;not null" json:"officialPriceType"`
	OfficialPrice     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"officialPrice"`
	OfficialPriceUnit PriceUnit         `gorm:"size:20;not null" json:"officialPriceUnit"`
	DiscountType      DiscountType      `gorm:"size:20;not null" json:"discountType"`
	DiscountPrice     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"discountPrice"`
	UnitPrice         decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"unitPrice"`
	UnitPriceUnit     PriceUnit         `gorm:"size:20;not null" json:"unitPriceUnit"`
	ProcessPrice      decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"processPrice"`
}

type OrderStockTradePrice struct {
	OrderId        int `gorm:"primaryKey;autoIncrement:false" json:"orderId"`
	CompanyId      int `gorm:"primaryKey;autoIncrement:false" json:"companyId"`
	PriceBreakdown `gorm:"embedded"`

	AltBundle *OrderStockTradeAltBundle `gorm:"foreignKey:OrderId,CompanyId;references:OrderId,CompanyId" json:"altBundle,omitempty"`
}

// OrderStockTradeAltBundle overrides size/quantity for conversion pricing.
type OrderStockTradeAltBundle struct {
	OrderId     int             `gorm:"primaryKey;autoIncrement:false" json:"orderId"`
	CompanyId   int             `gorm:"primaryKey;autoIncrement:false" json:"companyId"`
	AltSizeX    int             `gorm:"not null" json:"altSizeX"`
	AltSizeY    int             `gorm:"not null;default:0" json:"altSizeY"`
	AltQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"altQuantity"`
}

type OrderDepositTradePrice struct {
	OrderId        int `gorm:"primaryKey;autoIncrement:false" json:"orderId"`
	CompanyId      int `gorm:"primaryKey;autoIncrement:false" json:"companyId"`
	PriceBreakdown `gorm:"embedded"`

	AltBundle *OrderDepositTradeAltBundle `gorm:"foreignKey:OrderId,CompanyId;references:OrderId,CompanyId" json:"altBundle,omitempty"`
}

type OrderDepositTradeAltBundle struct {
	OrderId     int             `gorm:"primaryKey;autoIncrement:false" json:"orderId"`
	CompanyId   int             `gorm:"primaryKey;autoIncrement:false" json:"companyId"`
	AltSizeX    int             `gorm:"not null" json:"altSizeX"`
	AltSizeY    int             `gorm:"not null;default:0" json:"altSizeY"`
	AltQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"altQuantity"`
}
