package models

import (
	"context"
	"time"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// Company is the trading-party directory entry. A company with a non-nil
// ManagedById does not track its own stock; the managing company acts as
// its bookkeeping proxy.
type Company struct {
	ID                        int       `gorm:"primaryKey" json:"id"`
	BusinessName              string    `gorm:"size:100;not null" json:"businessName"`
	CompanyRegistrationNumber string    `gorm:"size:20;index;not null" json:"companyRegistrationNumber"`
	InvoiceCode               string    `gorm:"size:10;not null" json:"invoiceCode"`
	RepresentativeName        string    `gorm:"size:50" json:"representativeName"`
	PhoneNo                   string    `gorm:"size:30" json:"phoneNo"`
	Address                   string    `gorm:"size:500" json:"address"`
	ManagedById               *int      `gorm:"index" json:"managedById"`
	IsDeactivated             bool      `gorm:"default:false" json:"isDeactivated"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

// BusinessRelationship marks a legitimate trade pair. Rows are directional;
// a pair usually carries one row per direction.
type BusinessRelationship struct {
	SrcCompanyId int  `gorm:"primaryKey;autoIncrement:false" json:"srcCompanyId"`
	DstCompanyId int  `gorm:"primaryKey;autoIncrement:false" json:"dstCompanyId"`
	IsActivated  bool `gorm:"default:true" json:"isActivated"`

	SrcCompany *Company `gorm:"foreignKey:SrcCompanyId" json:"srcCompany,omitempty"`
	DstCompany *Company `gorm:"foreignKey:DstCompanyId" json:"dstCompany,omitempty"`
}

type User struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	CompanyId int       `gorm:"index;not null" json:"companyId"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Name      string    `gorm:"size:50" json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	Company *Company `gorm:"foreignKey:CompanyId" json:"company,omitempty"`
}

// IsManaged reports whether the company is a proxy-managed party.
func (c *Company) IsManaged() bool {
	return c.ManagedById != nil
}

// GetCompany reads through the redis cache; the directory changes rarely.
func GetCompany(ctx context.Context, id int) (*Company, error) {
	cached, err := utils.RetrieveRedis[Company](id)
	if err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var company Company
	if err := db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, utils.NotFoundError("company not found")
	}
	_ = utils.StoreRedis[Company](&company, id)
	return &company, nil
}

// HasBusinessRelationship checks either direction of the pair.
func HasBusinessRelationship(ctx context.Context, companyId int, partnerCompanyId int) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&BusinessRelationship{}).
		Where("is_activated = ?", true).
		Where("(src_company_id = ? AND dst_company_id = ?) OR (src_company_id = ? AND dst_company_id = ?)",
			companyId, partnerCompanyId, partnerCompanyId, companyId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, utils.NotFoundError("user not found")
	}
	return &user, nil
}
