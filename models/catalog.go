package models

import (
	"context"
	"time"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// Catalog entities are maintained elsewhere; this service only resolves
// and validates references to them.

type Product struct {
	ID             int  `gorm:"primaryKey" json:"id"`
	PaperDomainId  int  `json:"paperDomainId"`
	PaperGroupId   int  `json:"paperGroupId"`
	PaperTypeId    int  `json:"paperTypeId"`
	ManufacturerId int  `json:"manufacturerId"`
	IsDiscontinued bool `gorm:"default:false" json:"isDiscontinued"`
}

type Packaging struct {
	ID        int           `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"size:50" json:"name"`
	Type      PackagingType `gorm:"size:20;not null" json:"type"`
	PackCount int           `json:"packCount"`
}

type Warehouse struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	CompanyId int       `gorm:"index;not null" json:"companyId"`
	Name      string    `gorm:"size:100" json:"name"`
	Address   string    `gorm:"size:500" json:"address"`
	IsPublic  bool      `gorm:"default:false" json:"isPublic"`
	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
}

type Location struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	CompanyId int       `gorm:"index;not null" json:"companyId"`
	Name      string    `gorm:"size:100" json:"name"`
	Address   string    `gorm:"size:500" json:"address"`
	IsPublic  bool      `gorm:"default:false" json:"isPublic"`
	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
}

func GetPackaging(ctx context.Context, id int) (*Packaging, error) {
	cached, err := utils.RetrieveRedis[Packaging](id)
	if err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var packaging Packaging
	if err := db.WithContext(ctx).First(&packaging, id).Error; err != nil {
		return nil, utils.NotFoundError("packaging not found")
	}
	_ = utils.StoreRedis[Packaging](&packaging, id)
	return &packaging, nil
}
