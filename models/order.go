package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root of every trade. Exactly one typed sub-record
// exists per OrderType; loaders resolve it through the type, never by
// probing every relation.
type Order struct {
	ID                int         `gorm:"primaryKey" json:"id"`
	OrderNo           string      `gorm:"size:30;uniqueIndex;not null" json:"orderNo"`
	OrderType         OrderType   `gorm:"size:30;not null" json:"orderType"`
	Status            OrderStatus `gorm:"size:30;index;not null" json:"status"`
	SrcCompanyId      int         `gorm:"index;not null" json:"srcCompanyId"`
	DstCompanyId      int         `gorm:"index;not null" json:"dstCompanyId"`
	CreatedCompanyId  int         `gorm:"not null" json:"createdCompanyId"`
	AcceptedCompanyId *int        `json:"acceptedCompanyId"`
	OrdererName       string      `gorm:"size:50" json:"ordererName"`
	IsEntrusted       bool        `gorm:"default:false" json:"isEntrusted"`
	OrderDate         time.Time   `json:"orderDate"`
	Memo              string      `gorm:"size:500" json:"memo"`
	Revision          int         `gorm:"default:0;not null" json:"revision"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`

	SrcCompany *Company `gorm:"foreignKey:SrcCompanyId" json:"srcCompany,omitempty"`
	DstCompany *Company `gorm:"foreignKey:DstCompanyId" json:"dstCompany,omitempty"`

	OrderStock   *OrderStock   `gorm:"foreignKey:OrderId" json:"orderStock,omitempty"`
	OrderProcess *OrderProcess `gorm:"foreignKey:OrderId" json:"orderProcess,omitempty"`
	OrderDeposit *OrderDeposit `gorm:"foreignKey:OrderId" json:"orderDeposit,omitempty"`
	OrderReturn  *OrderReturn  `gorm:"foreignKey:OrderId" json:"orderReturn,omitempty"`
	OrderRefund  *OrderRefund  `gorm:"foreignKey:OrderId" json:"orderRefund,omitempty"`
	OrderEtc     *OrderEtc     `gorm:"foreignKey:OrderId" json:"orderEtc,omitempty"`
}

// IsSeller reports whether the company stands on the selling (dst) side.
func (o *Order) IsSeller(companyId int) bool {
	return o.DstCompanyId == companyId
}

// IsBuyer reports whether the company stands on the buying (src) side.
func (o *Order) IsBuyer(companyId int) bool {
	return o.SrcCompanyId == companyId
}

// IsOffer reports whether the order follows the offer path (created by
// the seller) rather than the order path (created by the buyer).
func (o *Order) IsOffer() bool {
	return o.CreatedCompanyId == o.DstCompanyId
}

// GoodSpec is the physical-good specification shared by stock-moving
// sub-records; it is also the stock-group identity minus the owner scope.
type GoodSpec struct {
	ProductId         int  `json:"productId"`
	PackagingId       int  `json:"packagingId"`
	Grammage          int  `json:"grammage"`
	SizeX             int  `json:"sizeX"`
	SizeY             int  `json:"sizeY"`
	PaperColorGroupId *int `json:"paperColorGroupId"`
	PaperColorId      *int `json:"paperColorId"`
	PaperPatternId    *int `json:"paperPatternId"`
	PaperCertId       *int `json:"paperCertId"`
}

// OrderStock is the NORMAL-trade sub-record: the seller's stock group to
// draw from plus the delivery terms.
type OrderStock struct {
	ID               int        `gorm:"primaryKey" json:"id"`
	OrderId          int        `gorm:"uniqueIndex;not null" json:"orderId"`
	DstLocationId    *int       `json:"dstLocationId"`
	IsDirectShipping bool       `gorm:"default:false" json:"isDirectShipping"`
	WantedDate       *time.Time `json:"wantedDate"`

	// source stock group scope on the seller side
	CompanyId   int  `gorm:"not null" json:"companyId"`
	WarehouseId *int `json:"warehouseId"`
	PlanId      *int `json:"planId"`
	GoodSpec    `gorm:"embedded"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

// OrderProcess is the OUTSOURCE_PROCESS sub-record: the buyer sends goods
// out for conversion and receives converted goods back.
type OrderProcess struct {
	ID                  int        `gorm:"primaryKey" json:"id"`
	OrderId             int        `gorm:"uniqueIndex;not null" json:"orderId"`
	SrcLocationId       *int       `json:"srcLocationId"`
	DstLocationId       *int       `json:"dstLocationId"`
	IsSrcDirectShipping bool       `gorm:"default:false" json:"isSrcDirectShipping"`
	IsDstDirectShipping bool       `gorm:"default:false" json:"isDstDirectShipping"`
	SrcWantedDate       *time.Time `json:"srcWantedDate"`
	DstWantedDate       *time.Time `json:"dstWantedDate"`

	// source stock group scope on the buyer side
	CompanyId   int  `gorm:"not null" json:"companyId"`
	WarehouseId *int `json:"warehouseId"`
	PlanId      *int `json:"planId"`
	GoodSpec    `gorm:"embedded"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

// OrderDeposit covers two shapes: a DEPOSIT order's own sub-record, and a
// deposit release attached to a NORMAL order (TargetOrderId set).
type OrderDeposit struct {
	ID            int  `gorm:"primaryKey" json:"id"`
	OrderId       int  `gorm:"index;not null" json:"orderId"`
	TargetOrderId *int `gorm:"index" json:"targetOrderId"`
	DepositId     *int `json:"depositId"`

	GoodSpec `gorm:"embedded"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type OrderReturn struct {
	ID            int        `gorm:"primaryKey" json:"id"`
	OrderId       int        `gorm:"uniqueIndex;not null" json:"orderId"`
	DstLocationId *int       `json:"dstLocationId"`
	WantedDate    *time.Time `json:"wantedDate"`

	// the original trade being returned, when known
	OriginOrderId *int `json:"originOrderId"`

	GoodSpec `gorm:"embedded"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type OrderRefund struct {
	ID      int    `gorm:"primaryKey" json:"id"`
	OrderId int    `gorm:"uniqueIndex;not null" json:"orderId"`
	Item    string `gorm:"size:200" json:"item"`

	// the original trade being refunded, when known
	OriginOrderId *int `json:"originOrderId"`
}

type OrderEtc struct {
	ID      int    `gorm:"primaryKey" json:"id"`
	OrderId int    `gorm:"uniqueIndex;not null" json:"orderId"`
	Item    string `gorm:"size:200" json:"item"`
}

// OrderHistory is an append-only audit side log; it sits outside the
// ledger's consistency scope.
type OrderHistory struct {
	ID        int              `gorm:"primaryKey" json:"id"`
	OrderId   int              `gorm:"index;not null" json:"orderId"`
	UserId    int              `gorm:"not null" json:"userId"`
	Type      OrderHistoryType `gorm:"size:40;not null" json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
}
