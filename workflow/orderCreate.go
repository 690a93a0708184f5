package workflow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// CreateOrderBase carries the fields every order shape shares. The actor
// company decides the path: seller-created orders follow the offer path,
// buyer-created ones the order path.
type CreateOrderBase struct {
	ActorCompanyId int
	UserId         int
	SrcCompanyId   int       `json:"srcCompanyId" binding:"required"`
	DstCompanyId   int       `json:"dstCompanyId" binding:"required"`
	OrderDate      time.Time `json:"orderDate" binding:"required"`
	OrdererName    string    `json:"ordererName"`
	IsEntrusted    bool      `json:"isEntrusted"`
	Memo           string    `json:"memo"`
}

type StockGroupInput struct {
	WarehouseId       *int            `json:"warehouseId"`
	PlanId            *int            `json:"planId"`
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

func (i StockGroupInput) Spec() models.GoodSpec {
	return models.GoodSpec{
		ProductId:         i.ProductId,
		PackagingId:       i.PackagingId,
		Grammage:          i.Grammage,
		SizeX:             i.SizeX,
		SizeY:             i.SizeY,
		PaperColorGroupId: i.PaperColorGroupId,
		PaperColorId:      i.PaperColorId,
		PaperPatternId:    i.PaperPatternId,
		PaperCertId:       i.PaperCertId,
	}
}

func (i StockGroupInput) GroupKey(ownerCompanyId int) StockGroupKey {
	return StockGroupKey{
		CompanyId:   ownerCompanyId,
		WarehouseId: i.WarehouseId,
		PlanId:      i.PlanId,
		GoodSpec:    i.Spec(),
	}
}

type CreateNormalOrderParams struct {
	CreateOrderBase
	StockGroupInput
	DstLocationId    *int       `json:"dstLocationId"`
	IsDirectShipping bool       `json:"isDirectShipping"`
	WantedDate       *time.Time `json:"wantedDate"`
}

// CreateNormalOrder inserts a NORMAL trade with its stock sub-record and
// both companies' price rows. No quantity is reserved yet; availability is
// pre-checked against the seller's group unless the counterparty is a
// managed proxy whose stock is not tracked.
func CreateNormalOrder(ctx context.Context, params CreateNormalOrderParams) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	// referenced resources must exist under the owning company
	if params.WarehouseId != nil {
		if err := utils.ValidateResourceId[models.Warehouse](ctx, params.DstCompanyId, *params.WarehouseId); err != nil {
			return nil, err
		}
	}
	if params.DstLocationId != nil {
		if err := utils.ValidateResourceId[models.Location](ctx, params.SrcCompanyId, *params.DstLocationId); err != nil {
			return nil, err
		}
	}

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := prepareOrderParties(tx, logger, params.CreateOrderBase)
		if err != nil {
			return err
		}

		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		if !base.counterparty.IsManaged() {
			if err := CheckStockGroupAvailableQuantity(tx, logger, CheckStockGroupQuantityParams{
				InquiryCompanyId: params.ActorCompanyId,
				Key:              params.GroupKey(params.DstCompanyId),
				Quantity:         params.Quantity,
			}); err != nil {
				return err
			}
		}

		order, err = insertOrder(tx, logger, base, models.OrderTypeNormal)
		if err != nil {
			return err
		}

		orderStock := models.OrderStock{
			OrderId:          order.ID,
			DstLocationId:    params.DstLocationId,
			IsDirectShipping: params.IsDirectShipping,
			WantedDate:       params.WantedDate,
			CompanyId:        params.DstCompanyId,
			WarehouseId:      params.WarehouseId,
			PlanId:           params.PlanId,
			GoodSpec:         params.Spec(),
			Quantity:         params.Quantity,
		}
		if err := tx.Create(&orderStock).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "CreateNormalOrder", "CreateOrderStock", order.ID, err)
			return err
		}
		order.OrderStock = &orderStock

		return finishOrderCreate(tx, logger, order, params.UserId)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type CreateOrderProcessParams struct {
	CreateOrderBase
	StockGroupInput
	SrcLocationId       *int       `json:"srcLocationId"`
	DstLocationId       *int       `json:"dstLocationId"`
	IsSrcDirectShipping bool       `json:"isSrcDirectShipping"`
	IsDstDirectShipping bool       `json:"isDstDirectShipping"`
	SrcWantedDate       *time.Time `json:"srcWantedDate"`
	DstWantedDate       *time.Time `json:"dstWantedDate"`
}

// CreateOrderProcess inserts an OUTSOURCE_PROCESS order. The goods being
// converted come from the buyer's (src) stock group.
func CreateOrderProcess(ctx context.Context, params CreateOrderProcessParams) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if params.WarehouseId != nil {
		if err := utils.ValidateResourceId[models.Warehouse](ctx, params.SrcCompanyId, *params.WarehouseId); err != nil {
			return nil, err
		}
	}
	for _, locationId := range []*int{params.SrcLocationId, params.DstLocationId} {
		if locationId != nil {
			if err := utils.ValidateResourceId[models.Location](ctx, params.SrcCompanyId, *locationId); err != nil {
				return nil, err
			}
		}
	}

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := prepareOrderParties(tx, logger, params.CreateOrderBase)
		if err != nil {
			return err
		}

		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		if !base.counterparty.IsManaged() {
			if err := CheckStockGroupAvailableQuantity(tx, logger, CheckStockGroupQuantityParams{
				InquiryCompanyId: params.ActorCompanyId,
				Key:              params.GroupKey(params.SrcCompanyId),
				Quantity:         params.Quantity,
			}); err != nil {
				return err
			}
		}

		order, err = insertOrder(tx, logger, base, models.OrderTypeOutsourceProcess)
		if err != nil {
			return err
		}

		orderProcess := models.OrderProcess{
			OrderId:             order.ID,
			SrcLocationId:       params.SrcLocationId,
			DstLocationId:       params.DstLocationId,
			IsSrcDirectShipping: params.IsSrcDirectShipping,
			IsDstDirectShipping: params.IsDstDirectShipping,
			SrcWantedDate:       params.SrcWantedDate,
			DstWantedDate:       params.DstWantedDate,
			CompanyId:           params.SrcCompanyId,
			WarehouseId:         params.WarehouseId,
			PlanId:              params.PlanId,
			GoodSpec:            params.Spec(),
			Quantity:            params.Quantity,
		}
		if err := tx.Create(&orderProcess).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "CreateOrderProcess", "CreateOrderProcess", order.ID, err)
			return err
		}
		order.OrderProcess = &orderProcess

		return finishOrderCreate(tx, logger, order, params.UserId)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type CreateDepositOrderParams struct {
	CreateOrderBase
	StockGroupInput
}

// CreateDepositOrder inserts a DEPOSIT order: goods the seller will hold
// for the buyer. The deposit ledger entry is appended at accept.
func CreateDepositOrder(ctx context.Context, params CreateDepositOrderParams) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := prepareOrderParties(tx, logger, params.CreateOrderBase)
		if err != nil {
			return err
		}

		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		order, err = insertOrder(tx, logger, base, models.OrderTypeDeposit)
		if err != nil {
			return err
		}

		orderDeposit := models.OrderDeposit{
			OrderId:  order.ID,
			GoodSpec: params.Spec(),
			Quantity: params.Quantity,
		}
		if err := tx.Create(&orderDeposit).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "CreateDepositOrder", "CreateOrderDeposit", order.ID, err)
			return err
		}
		order.OrderDeposit = &orderDeposit

		return finishOrderCreate(tx, logger, order, params.UserId)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type CreateReturnOrderParams struct {
	CreateOrderBase
	StockGroupInput
	DstLocationId *int       `json:"dstLocationId"`
	WantedDate    *time.Time `json:"wantedDate"`
	OriginOrderId *int       `json:"originOrderId"`
}

func CreateReturnOrder(ctx context.Context, params CreateReturnOrderParams) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := prepareOrderParties(tx, logger, params.CreateOrderBase)
		if err != nil {
			return err
		}

		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		order, err = insertOrder(tx, logger, base, models.OrderTypeReturn)
		if err != nil {
			return err
		}

		orderReturn := models.OrderReturn{
			OrderId:       order.ID,
			DstLocationId: params.DstLocationId,
			WantedDate:    params.WantedDate,
			OriginOrderId: params.OriginOrderId,
			GoodSpec:      params.Spec(),
			Quantity:      params.Quantity,
		}
		if err := tx.Create(&orderReturn).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "CreateReturnOrder", "CreateOrderReturn", order.ID, err)
			return err
		}
		order.OrderReturn = &orderReturn

		return finishOrderCreate(tx, logger, order, params.UserId)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type CreateRefundOrderParams struct {
	CreateOrderBase
	Item          string `json:"item" binding:"required"`
	OriginOrderId *int   `json:"originOrderId"`
}

func CreateRefundOrder(ctx context.Context, params CreateRefundOrderParams) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := prepareOrderParties(tx, logger, params.CreateOrderBase)
		if err != nil {
			return err
		}

		order, err = insertOrder(tx, logger, base, models.OrderTypeRefund)
		if err != nil {
			return err
		}

		orderRefund := models.OrderRefund{
			OrderId:       order.ID,
			Item:          params.Item,
			OriginOrderId: params.OriginOrderId,
		}
		if err := tx.Create(&orderRefund).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "CreateRefundOrder", "CreateOrderRefund", order.ID, err)
			return err
		}
		order.OrderRefund = &orderRefund

		return finishOrderCreate(tx, logger, order, params.UserId)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type CreateEtcOrderParams struct {
	CreateOrderBase
	Item string `json:"item" binding:"required"`
}

func CreateEtcOrder(ctx context.Context, params CreateEtcOrderParams) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base, err := prepareOrderParties(tx, logger, params.CreateOrderBase)
		if err != nil {
			return err
		}

		order, err = insertOrder(tx, logger, base, models.OrderTypeEtc)
		if err != nil {
			return err
		}

		orderEtc := models.OrderEtc{
			OrderId: order.ID,
			Item:    params.Item,
		}
		if err := tx.Create(&orderEtc).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "CreateEtcOrder", "CreateOrderEtc", order.ID, err)
			return err
		}
		order.OrderEtc = &orderEtc

		return finishOrderCreate(tx, logger, order, params.UserId)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

/* shared create plumbing */

type orderParties struct {
	base         CreateOrderBase
	srcCompany   *models.Company
	dstCompany   *models.Company
	actor        *models.Company
	counterparty *models.Company
	isOffer      bool
}

// prepareOrderParties resolves the companies, enforces that the actor
// stands on one side (or manages it), and that the pair legitimately
// trades with each other.
func prepareOrderParties(tx *gorm.DB, logger *logrus.Logger, base CreateOrderBase) (*orderParties, error) {
	srcCompany, err := fetchCompanyTx(tx, base.SrcCompanyId)
	if err != nil {
		config.LogError(logger, "orderCreate.go", "prepareOrderParties", "FetchSrcCompany", base.SrcCompanyId, err)
		return nil, err
	}
	dstCompany, err := fetchCompanyTx(tx, base.DstCompanyId)
	if err != nil {
		config.LogError(logger, "orderCreate.go", "prepareOrderParties", "FetchDstCompany", base.DstCompanyId, err)
		return nil, err
	}

	actorIsSeller := actsForCompany(base.ActorCompanyId, dstCompany)
	actorIsBuyer := actsForCompany(base.ActorCompanyId, srcCompany)
	if !actorIsSeller && !actorIsBuyer {
		return nil, utils.ForbiddenError("company is not a participant of this order")
	}

	actor := srcCompany
	counterparty := dstCompany
	if actorIsSeller {
		actor = dstCompany
		counterparty = srcCompany
	}

	// Managed counterparties have no account of their own, so no
	// relationship row exists; the managing side vouches for the pair.
	if !counterparty.IsManaged() {
		related, err := hasRelationshipTx(tx, base.SrcCompanyId, base.DstCompanyId)
		if err != nil {
			config.LogError(logger, "orderCreate.go", "prepareOrderParties", "hasRelationshipTx", base, err)
			return nil, err
		}
		if !related {
			return nil, utils.ForbiddenError("no business relationship between the companies")
		}
	}

	return &orderParties{
		base:         base,
		srcCompany:   srcCompany,
		dstCompany:   dstCompany,
		actor:        actor,
		counterparty: counterparty,
		isOffer:      actorIsSeller,
	}, nil
}

func insertOrder(tx *gorm.DB, logger *logrus.Logger, parties *orderParties, orderType models.OrderType) (*models.Order, error) {
	status := models.OrderStatusOrderPreparing
	if parties.isOffer {
		status = models.OrderStatusOfferPreparing
	}

	order := models.Order{
		OrderNo:          utils.SerialT(parties.dstCompany.InvoiceCode),
		OrderType:        orderType,
		Status:           status,
		SrcCompanyId:     parties.base.SrcCompanyId,
		DstCompanyId:     parties.base.DstCompanyId,
		CreatedCompanyId: parties.actor.ID,
		OrdererName:      parties.base.OrdererName,
		IsEntrusted:      parties.base.IsEntrusted,
		OrderDate:        parties.base.OrderDate,
		Memo:             parties.base.Memo,
	}
	if err := tx.Create(&order).Error; err != nil {
		config.LogError(logger, "orderCreate.go", "insertOrder", "CreateOrder", parties.base, err)
		return nil, err
	}
	return &order, nil
}

// finishOrderCreate seeds both companies' price rows and the audit entry.
func finishOrderCreate(tx *gorm.DB, logger *logrus.Logger, order *models.Order, userId int) error {
	for _, companyId := range []int{order.SrcCompanyId, order.DstCompanyId} {
		tradePrice := models.TradePrice{
			OrderId:       order.ID,
			CompanyId:     companyId,
			SuppliedPrice: decimal.Zero,
			VatPrice:      decimal.Zero,
		}
		if err := tx.Create(&tradePrice).Error; err != nil {
			config.LogError(logger, "orderCreate.go", "finishOrderCreate", "CreateTradePrice", order.ID, err)
			return err
		}
	}
	return writeOrderHistory(tx, logger, order.ID, userId, models.OrderHistoryTypeCreate)
}
