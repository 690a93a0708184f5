package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit tracks goods one company holds on behalf of another. It is keyed
// by the registration-number pair rather than an owning company because
// the balance is jointly tracked between the two legal entities.
type Deposit struct {
	ID                           int    `gorm:"primaryKey" json:"id"`
	SrcCompanyRegistrationNumber string `gorm:"size:20;index:idx_deposit_pair;not null" json:"srcCompanyRegistrationNumber"`
	DstCompanyRegistrationNumber string `gorm:"size:20;index:idx_deposit_pair;not null" json:"dstCompanyRegistrationNumber"`

	GoodSpec `gorm:"embedded"`

	CreatedAt time.Time `json:"createdAt"`

	DepositEvents []DepositEvent `gorm:"foreignKey:DepositId" json:"depositEvents,omitempty"`
}

// DepositEvent mirrors the stock ledger entry shape. Balance of a deposit
// = sum(change) over rows with status NORMAL.
type DepositEvent struct {
	ID        int                `gorm:"primaryKey" json:"id"`
	DepositId int                `gorm:"index;not null" json:"depositId"`
	Change    decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"change"`
	Status    DepositEventStatus `gorm:"size:20;index;not null" json:"status"`
	Memo      string             `gorm:"size:500" json:"memo"`

	// OrderDepositId links the order sub-record that produced the event;
	// TargetOrderId links a deposit release spent on another order.
	OrderDepositId *int `gorm:"index" json:"orderDepositId"`
	TargetOrderId  *int `gorm:"index" json:"targetOrderId"`
	UserId         *int `json:"userId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
