package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a unit of work binding one company/order side to the ledger
// events it produces or consumes. At most one assign event reserves
// quantity for the plan; any number of target events produce stock under it.
type Plan struct {
	ID        int        `gorm:"primaryKey" json:"id"`
	PlanNo    string     `gorm:"size:30;uniqueIndex;not null" json:"planNo"`
	Type      PlanType   `gorm:"size:40;not null" json:"type"`
	Status    PlanStatus `gorm:"size:20;not null" json:"status"`
	CompanyId int        `gorm:"index;not null" json:"companyId"`

	AssignStockEventId *int `json:"assignStockEventId"`

	OrderStockId   *int `gorm:"index" json:"orderStockId"`
	OrderProcessId *int `gorm:"index" json:"orderProcessId"`
	OrderReturnId  *int `gorm:"index" json:"orderReturnId"`

	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	AssignStockEvent  *StockEvent  `gorm:"foreignKey:AssignStockEventId" json:"assignStockEvent,omitempty"`
	TargetStockEvents []StockEvent `gorm:"foreignKey:PlanId" json:"targetStockEvents,omitempty"`
	Tasks             []Task       `gorm:"foreignKey:PlanId" json:"tasks,omitempty"`
}

// Task is a work step under a plan; RELEASE tasks carry the quantity to
// hand off for conversion or return.
type Task struct {
	ID        int             `gorm:"primaryKey" json:"id"`
	TaskNo    string          `gorm:"size:30;uniqueIndex;not null" json:"taskNo"`
	PlanId    int             `gorm:"index;not null" json:"planId"`
	Type      TaskType        `gorm:"size:20;not null" json:"type"`
	Status    TaskStatus      `gorm:"size:20;not null" json:"status"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
