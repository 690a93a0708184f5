package workflow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// validateOrderEdit enforces the shared field-edit rule: before ACCEPTED
// any participant edits freely; once ACCEPTED commercially significant
// fields may only change by the seller's hand, or when the actor's
// counterparty is a managed proxy with no say of its own.
func validateOrderEdit(scope *orderScope, actorCompanyId int) error {
	if err := scope.ensureParticipant(actorCompanyId); err != nil {
		return err
	}
	if !isEditableStatus(scope.Order.Status) {
		return utils.ConflictError("order can no longer be edited")
	}
	if scope.Order.Status != models.OrderStatusAccepted {
		return nil
	}
	if scope.actsForSeller(actorCompanyId) {
		return nil
	}
	if scope.counterpartyOf(actorCompanyId).IsManaged() {
		return nil
	}
	return utils.ForbiddenError("only the seller may edit an accepted order")
}

// ensureDirectShippingToggleAllowed rejects the toggle once goods already
// moved under the order's plans: an arrival exists or a reservation was
// assigned elsewhere.
func ensureDirectShippingToggleAllowed(tx *gorm.DB, logger *logrus.Logger, order *models.Order) error {
	plans, err := plansOfOrder(tx, order)
	if err != nil {
		config.LogError(logger, "orderUpdate.go", "ensureDirectShippingToggleAllowed", "plansOfOrder", order.ID, err)
		return err
	}
	for _, plan := range plans {
		var count int64
		err := tx.Model(&models.StockEvent{}).
			Where("plan_id = ?", plan.ID).
			Where("status <> ?", models.StockEventStatusCancelled).
			Count(&count).Error
		if err != nil {
			config.LogError(logger, "orderUpdate.go", "ensureDirectShippingToggleAllowed", "CountTargetEvents", plan.ID, err)
			return err
		}
		if count > 0 {
			return utils.ConflictError("stock already arrived under this order's plan")
		}
	}
	return nil
}

type UpdateOrderStockParams struct {
	ActorCompanyId   int
	UserId           int
	OrderId          int
	OrderDate        time.Time  `json:"orderDate" binding:"required"`
	DstLocationId    *int       `json:"dstLocationId"`
	IsDirectShipping *bool      `json:"isDirectShipping"`
	WantedDate       *time.Time `json:"wantedDate"`
	Memo             string     `json:"memo"`
}

// UpdateOrderStock edits a NORMAL order's commercial fields.
func UpdateOrderStock(ctx context.Context, params UpdateOrderStockParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeNormal {
			return utils.ConflictError("order is not a normal trade")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderStock := scope.Order.OrderStock
		if orderStock == nil {
			err := utils.InternalError("normal order has no stock sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderStock", "MissingOrderStock", params.OrderId, err)
			return err
		}

		if params.IsDirectShipping != nil && *params.IsDirectShipping != orderStock.IsDirectShipping {
			if err := ensureDirectShippingToggleAllowed(tx, logger, scope.Order); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", params.OrderId).Updates(map[string]interface{}{
			"order_date": params.OrderDate,
			"memo":       params.Memo,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderStock", "UpdateOrder", params.OrderId, err)
			return err
		}

		stockUpdates := map[string]interface{}{
			"dst_location_id": params.DstLocationId,
			"wanted_date":     params.WantedDate,
		}
		if params.IsDirectShipping != nil {
			stockUpdates["is_direct_shipping"] = *params.IsDirectShipping
		}
		if err := tx.Model(&models.OrderStock{}).Where("id = ?", orderStock.ID).Updates(stockUpdates).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderStock", "UpdateOrderStock", orderStock.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderAssignStockParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	StockGroupInput
}

// UpdateOrderAssignStock repoints a NORMAL order at a different source
// stock group. Only possible while no reservation exists; afterwards the
// group is bound to the seller's plan.
func UpdateOrderAssignStock(ctx context.Context, params UpdateOrderAssignStockParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeNormal {
			return utils.ConflictError("order is not a normal trade")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderStock := scope.Order.OrderStock
		if orderStock == nil {
			err := utils.InternalError("normal order has no stock sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderAssignStock", "MissingOrderStock", params.OrderId, err)
			return err
		}
		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		plan, err := sellerAssignPlan(tx, orderStock.ID)
		if err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderAssignStock", "FindSellerPlan", params.OrderId, err)
			return err
		}
		if plan != nil {
			return utils.ConflictError("stock is already assigned to this order")
		}

		if !scope.DstCompany.IsManaged() {
			if err := CheckStockGroupAvailableQuantity(tx, logger, CheckStockGroupQuantityParams{
				InquiryCompanyId: params.ActorCompanyId,
				Key:              params.GroupKey(scope.Order.DstCompanyId),
				Quantity:         params.Quantity,
			}); err != nil {
				return err
			}
		}

		spec := params.Spec()
		if err := tx.Model(&models.OrderStock{}).Where("id = ?", orderStock.ID).Updates(map[string]interface{}{
			"warehouse_id":         params.WarehouseId,
			"plan_id":              params.PlanId,
			"product_id":           spec.ProductId,
			"packaging_id":         spec.PackagingId,
			"grammage":             spec.Grammage,
			"size_x":               spec.SizeX,
			"size_y":               spec.SizeY,
			"paper_color_group_id": spec.PaperColorGroupId,
			"paper_color_id":       spec.PaperColorId,
			"paper_pattern_id":     spec.PaperPatternId,
			"paper_cert_id":        spec.PaperCertId,
			"quantity":             params.Quantity,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderAssignStock", "UpdateOrderStock", orderStock.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderProcessInfoParams struct {
	ActorCompanyId      int
	UserId              int
	OrderId             int
	OrderDate           time.Time  `json:"orderDate" binding:"required"`
	SrcLocationId       *int       `json:"srcLocationId"`
	DstLocationId       *int       `json:"dstLocationId"`
	IsSrcDirectShipping *bool      `json:"isSrcDirectShipping"`
	IsDstDirectShipping *bool      `json:"isDstDirectShipping"`
	SrcWantedDate       *time.Time `json:"srcWantedDate"`
	DstWantedDate       *time.Time `json:"dstWantedDate"`
	Memo                string     `json:"memo"`
}

func UpdateOrderProcessInfo(ctx context.Context, params UpdateOrderProcessInfoParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeOutsourceProcess {
			return utils.ConflictError("order is not an outsourced process")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderProcess := scope.Order.OrderProcess
		if orderProcess == nil {
			err := utils.InternalError("process order has no process sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderProcessInfo", "MissingOrderProcess", params.OrderId, err)
			return err
		}

		srcToggled := params.IsSrcDirectShipping != nil && *params.IsSrcDirectShipping != orderProcess.IsSrcDirectShipping
		dstToggled := params.IsDstDirectShipping != nil && *params.IsDstDirectShipping != orderProcess.IsDstDirectShipping
		if srcToggled || dstToggled {
			if err := ensureDirectShippingToggleAllowed(tx, logger, scope.Order); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", params.OrderId).Updates(map[string]interface{}{
			"order_date": params.OrderDate,
			"memo":       params.Memo,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderProcessInfo", "UpdateOrder", params.OrderId, err)
			return err
		}

		processUpdates := map[string]interface{}{
			"src_location_id": params.SrcLocationId,
			"dst_location_id": params.DstLocationId,
			"src_wanted_date": params.SrcWantedDate,
			"dst_wanted_date": params.DstWantedDate,
		}
		if params.IsSrcDirectShipping != nil {
			processUpdates["is_src_direct_shipping"] = *params.IsSrcDirectShipping
		}
		if params.IsDstDirectShipping != nil {
			processUpdates["is_dst_direct_shipping"] = *params.IsDstDirectShipping
		}
		if err := tx.Model(&models.OrderProcess{}).Where("id = ?", orderProcess.ID).Updates(processUpdates).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderProcessInfo", "UpdateOrderProcess", orderProcess.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderProcessStockParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	StockGroupInput
}

// UpdateOrderProcessStock repoints the process order at different source
// goods; blocked once the buyer's reservation exists.
func UpdateOrderProcessStock(ctx context.Context, params UpdateOrderProcessStockParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeOutsourceProcess {
			return utils.ConflictError("order is not an outsourced process")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderProcess := scope.Order.OrderProcess
		if orderProcess == nil {
			err := utils.InternalError("process order has no process sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderProcessStock", "MissingOrderProcess", params.OrderId, err)
			return err
		}
		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		plan, err := processPlanOfType(tx, orderProcess.ID, models.PlanTypeTradeOutsourceProcessBuyer)
		if err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderProcessStock", "FindBuyerPlan", params.OrderId, err)
			return err
		}
		if plan != nil {
			return utils.ConflictError("stock is already assigned to this order")
		}

		if !scope.counterpartyOf(params.ActorCompanyId).IsManaged() {
			if err := CheckStockGroupAvailableQuantity(tx, logger, CheckStockGroupQuantityParams{
				InquiryCompanyId: params.ActorCompanyId,
				Key:              params.GroupKey(scope.Order.SrcCompanyId),
				Quantity:         params.Quantity,
			}); err != nil {
				return err
			}
		}

		spec := params.Spec()
		if err := tx.Model(&models.OrderProcess{}).Where("id = ?", orderProcess.ID).Updates(map[string]interface{}{
			"warehouse_id":         params.WarehouseId,
			"plan_id":              params.PlanId,
			"product_id":           spec.ProductId,
			"packaging_id":         spec.PackagingId,
			"grammage":             spec.Grammage,
			"size_x":               spec.SizeX,
			"size_y":               spec.SizeY,
			"paper_color_group_id": spec.PaperColorGroupId,
			"paper_color_id":       spec.PaperColorId,
			"paper_pattern_id":     spec.PaperPatternId,
			"paper_cert_id":        spec.PaperCertId,
			"quantity":             params.Quantity,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderProcessStock", "UpdateOrderProcess", orderProcess.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderDepositParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	StockGroupInput
}

// UpdateOrderDeposit edits a DEPOSIT order's goods before it is accepted;
// afterwards the ledger entry already exists and the shape is fixed.
func UpdateOrderDeposit(ctx context.Context, params UpdateOrderDepositParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeDeposit {
			return utils.ConflictError("order is not a deposit")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		if scope.Order.Status == models.OrderStatusAccepted {
			return utils.ConflictError("an accepted deposit order can no longer change its goods")
		}
		orderDeposit := scope.Order.OrderDeposit
		if orderDeposit == nil {
			err := utils.InternalError("deposit order has no deposit sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderDeposit", "MissingOrderDeposit", params.OrderId, err)
			return err
		}
		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		spec := params.Spec()
		if err := tx.Model(&models.OrderDeposit{}).Where("id = ?", orderDeposit.ID).Updates(map[string]interface{}{
			"product_id":           spec.ProductId,
			"packaging_id":         spec.PackagingId,
			"grammage":             spec.Grammage,
			"size_x":               spec.SizeX,
			"size_y":               spec.SizeY,
			"paper_color_group_id": spec.PaperColorGroupId,
			"paper_color_id":       spec.PaperColorId,
			"paper_pattern_id":     spec.PaperPatternId,
			"paper_cert_id":        spec.PaperCertId,
			"quantity":             params.Quantity,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderDeposit", "UpdateOrderDeposit", orderDeposit.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderEtcParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	OrderDate      time.Time `json:"orderDate" binding:"required"`
	Item           string    `json:"item" binding:"required"`
	Memo           string    `json:"memo"`
}

func UpdateOrderEtc(ctx context.Context, params UpdateOrderEtcParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeEtc {
			return utils.ConflictError("order is not an etc trade")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderEtc := scope.Order.OrderEtc
		if orderEtc == nil {
			err := utils.InternalError("etc order has no etc sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderEtc", "MissingOrderEtc", params.OrderId, err)
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", params.OrderId).Updates(map[string]interface{}{
			"order_date": params.OrderDate,
			"memo":       params.Memo,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderEtc", "UpdateOrder", params.OrderId, err)
			return err
		}
		if err := tx.Model(&models.OrderEtc{}).Where("id = ?", orderEtc.ID).
			Update("item", params.Item).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderEtc", "UpdateOrderEtc", orderEtc.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderRefundParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	OrderDate      time.Time `json:"orderDate" binding:"required"`
	Item           string    `json:"item" binding:"required"`
	Memo           string    `json:"memo"`
}

func UpdateOrderRefund(ctx context.Context, params UpdateOrderRefundParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeRefund {
			return utils.ConflictError("order is not a refund")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderRefund := scope.Order.OrderRefund
		if orderRefund == nil {
			err := utils.InternalError("refund order has no refund sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderRefund", "MissingOrderRefund", params.OrderId, err)
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", params.OrderId).Updates(map[string]interface{}{
			"order_date": params.OrderDate,
			"memo":       params.Memo,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderRefund", "UpdateOrder", params.OrderId, err)
			return err
		}
		if err := tx.Model(&models.OrderRefund{}).Where("id = ?", orderRefund.ID).
			Update("item", params.Item).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderRefund", "UpdateOrderRefund", orderRefund.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderReturnParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	OrderDate      time.Time  `json:"orderDate" binding:"required"`
	DstLocationId  *int       `json:"dstLocationId"`
	WantedDate     *time.Time `json:"wantedDate"`
	Memo           string     `json:"memo"`
}

func UpdateOrderReturn(ctx context.Context, params UpdateOrderReturnParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeReturn {
			return utils.ConflictError("order is not a return")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		orderReturn := scope.Order.OrderReturn
		if orderReturn == nil {
			err := utils.InternalError("return order has no return sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderReturn", "MissingOrderReturn", params.OrderId, err)
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", params.OrderId).Updates(map[string]interface{}{
			"order_date": params.OrderDate,
			"memo":       params.Memo,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderReturn", "UpdateOrder", params.OrderId, err)
			return err
		}
		if err := tx.Model(&models.OrderReturn{}).Where("id = ?", orderReturn.ID).Updates(map[string]interface{}{
			"dst_location_id": params.DstLocationId,
			"wanted_date":     params.WantedDate,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderReturn", "UpdateOrderReturn", orderReturn.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}

type UpdateOrderReturnStockParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	StockGroupInput
}

func UpdateOrderReturnStock(ctx context.Context, params UpdateOrderReturnStockParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeReturn {
			return utils.ConflictError("order is not a return")
		}
		if err := validateOrderEdit(scope, params.ActorCompanyId); err != nil {
			return err
		}
		if scope.Order.Status == models.OrderStatusAccepted {
			return utils.ConflictError("an accepted return order can no longer change its goods")
		}
		orderReturn := scope.Order.OrderReturn
		if orderReturn == nil {
			err := utils.InternalError("return order has no return sub-record", nil)
			config.LogError(logger, "orderUpdate.go", "UpdateOrderReturnStock", "MissingOrderReturn", params.OrderId, err)
			return err
		}
		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		spec := params.Spec()
		if err := tx.Model(&models.OrderReturn{}).Where("id = ?", orderReturn.ID).Updates(map[string]interface{}{
			"product_id":           spec.ProductId,
			"packaging_id":         spec.PackagingId,
			"grammage":             spec.Grammage,
			"size_x":               spec.SizeX,
			"size_y":               spec.SizeY,
			"paper_color_group_id": spec.PaperColorGroupId,
			"paper_color_id":       spec.PaperColorId,
			"paper_pattern_id":     spec.PaperPatternId,
			"paper_cert_id":        spec.PaperCertId,
			"quantity":             params.Quantity,
		}).Error; err != nil {
			config.LogError(logger, "orderUpdate.go", "UpdateOrderReturnStock", "UpdateOrderReturn", orderReturn.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
}
