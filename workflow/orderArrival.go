package workflow

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

type CreateArrivalParams struct {
	ActorCompanyId    int
	UserId            int
	OrderId           int
	WarehouseId       *int            `json:"warehouseId"`
	ProductId         int             `json:"productId" binding:"required"`
	PackagingId       int             `json:"packagingId" binding:"required"`
	Grammage          int             `json:"grammage" binding:"required"`
	SizeX             int             `json:"sizeX" binding:"required"`
	SizeY             int             `json:"sizeY"`
	PaperColorGroupId *int            `json:"paperColorGroupId"`
	PaperColorId      *int            `json:"paperColorId"`
	PaperPatternId    *int            `json:"paperPatternId"`
	PaperCertId       *int            `json:"paperCertId"`
	Quantity          decimal.Decimal `json:"quantity" binding:"required"`
}

// CreateArrival registers incoming goods under the actor's plan of an
// accepted order: converted goods coming back from an outsourced process,
// or extra lots of a normal trade arriving in parts.
func CreateArrival(ctx context.Context, params CreateArrivalParams) (*models.Stock, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if params.WarehouseId != nil {
		if err := utils.ValidateResourceId[models.Warehouse](ctx, params.ActorCompanyId, *params.WarehouseId); err != nil {
			return nil, err
		}
	}

	var stock *models.Stock
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(params.ActorCompanyId); err != nil {
			return err
		}
		if scope.Order.Status != models.OrderStatusAccepted {
			return utils.ConflictError("order is not accepted")
		}

		plan, err := arrivalPlanOf(tx, scope, params.ActorCompanyId)
		if err != nil {
			return err
		}
		if plan == nil {
			return utils.ConflictError("no receiving plan exists for this company on the order")
		}

		stock, err = AddArrivalToPlan(tx, logger, plan, ArrivalParams{
			WarehouseId: params.WarehouseId,
			Spec: models.GoodSpec{
				ProductId:         params.ProductId,
				PackagingId:       params.PackagingId,
				Grammage:          params.Grammage,
				SizeX:             params.SizeX,
				SizeY:             params.SizeY,
				PaperColorGroupId: params.PaperColorGroupId,
				PaperColorId:      params.PaperColorId,
				PaperPatternId:    params.PaperPatternId,
				PaperCertId:       params.PaperCertId,
			},
			Quantity: params.Quantity,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// arrivalPlanOf picks the plan that receives goods for the actor's side.
func arrivalPlanOf(tx *gorm.DB, scope *orderScope, actorCompanyId int) (*models.Plan, error) {
	plans, err := plansOfOrder(tx, scope.Order)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if actsForCompany(actorCompanyId, companyRowOf(scope, plans[i].CompanyId)) {
			return &plans[i], nil
		}
	}
	return nil, nil
}

func companyRowOf(scope *orderScope, companyId int) *models.Company {
	if scope.SrcCompany.ID == companyId {
		return scope.SrcCompany
	}
	return scope.DstCompany
}

type ApplyArrivalParams struct {
	ActorCompanyId int
	UserId         int
	StockId        int
	WarehouseId    *int `json:"warehouseId"`
}

// ApplyArrival realizes a stock's pending ledger entries once the goods
// physically land, optionally recording the receiving warehouse.
func ApplyArrival(ctx context.Context, params ApplyArrivalParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	if params.WarehouseId != nil {
		if err := utils.ValidateResourceId[models.Warehouse](ctx, params.ActorCompanyId, *params.WarehouseId); err != nil {
			return err
		}
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stock models.Stock
		if err := tx.First(&stock, params.StockId).Error; err != nil {
			return utils.NotFoundError("stock not found")
		}
		owner, err := fetchCompanyTx(tx, stock.CompanyId)
		if err != nil {
			return err
		}
		if !actsForCompany(params.ActorCompanyId, owner) {
			return utils.ForbiddenError("stock belongs to another company")
		}

		if params.WarehouseId != nil {
			if err := tx.Model(&models.Stock{}).Where("id = ?", stock.ID).
				Update("warehouse_id", *params.WarehouseId).Error; err != nil {
				config.LogError(logger, "orderArrival.go", "ApplyArrival", "UpdateWarehouse", stock.ID, err)
				return err
			}
		}
		return ApplyStockArrival(tx, logger, stock.ID)
	})
}
