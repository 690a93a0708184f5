package workflow

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// withReservingTransaction pins one connection for an action that may take
// stock group advisory locks. GET_LOCK survives COMMIT, so the locks are
// released on the same connection after the transaction returns; until then
// the group stays serialized, satisfying held-until-commit.
func withReservingTransaction(ctx context.Context, logger *logrus.Logger, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		defer ReleaseStockGroupLocks(conn, logger)
		return conn.Transaction(fn)
	})
}

// RequestOrder advances a prepared order to its requested state. The
// requesting side is the creator; for a seller-created NORMAL order the
// request is the point where the seller's stock is reserved.
func RequestOrder(ctx context.Context, actorCompanyId int, userId int, orderId int) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	err := withReservingTransaction(ctx, logger, func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, orderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(actorCompanyId); err != nil {
			return err
		}
		order := scope.Order

		nextStatus, ok := requestedStatusOf(order.Status)
		if !ok {
			return utils.ConflictError("order is not in a preparing status")
		}
		creatorCompany := scope.SrcCompany
		if order.IsOffer() {
			creatorCompany = scope.DstCompany
		}
		if !actsForCompany(actorCompanyId, creatorCompany) {
			return utils.ForbiddenError("only the creating side may request the order")
		}

		switch order.OrderType {
		case models.OrderTypeNormal:
			if order.OrderStock == nil {
				err := utils.InternalError("normal order has no stock sub-record", nil)
				config.LogError(logger, "orderTransition.go", "RequestOrder", "MissingOrderStock", orderId, err)
				return err
			}
			key := stockGroupKeyOfOrderStock(order.OrderStock)
			if order.IsOffer() {
				// seller requests: reserve the seller's group now
				_, err := assignStockToOrder(tx, logger, AssignStockParams{
					InquiryCompanyId: actorCompanyId,
					Key:              key,
					Quantity:         order.OrderStock.Quantity,
					PlanType:         models.PlanTypeTradeNormalSeller,
					Links:            PlanOrderLinks{OrderStockId: &order.OrderStock.ID},
				})
				if err != nil {
					return err
				}
			} else if !scope.DstCompany.IsManaged() {
				// buyer requests: availability re-check only; the seller
				// reserves when accepting
				if err := CheckStockGroupAvailableQuantity(tx, logger, CheckStockGroupQuantityParams{
					InquiryCompanyId: actorCompanyId,
					Key:              key,
					Quantity:         order.OrderStock.Quantity,
				}); err != nil {
					return err
				}
			}
		case models.OrderTypeOutsourceProcess:
			if order.OrderProcess == nil {
				err := utils.InternalError("process order has no process sub-record", nil)
				config.LogError(logger, "orderTransition.go", "RequestOrder", "MissingOrderProcess", orderId, err)
				return err
			}
			if !order.IsOffer() && !scope.SrcCompany.IsManaged() {
				// the buyer hands its own goods out for conversion;
				// reserve them at request
				_, err := assignStockToOrder(tx, logger, AssignStockParams{
					InquiryCompanyId: actorCompanyId,
					Key:              stockGroupKeyOfOrderProcess(order.OrderProcess),
					Quantity:         order.OrderProcess.Quantity,
					PlanType:         models.PlanTypeTradeOutsourceProcessBuyer,
					Links:            PlanOrderLinks{OrderProcessId: &order.OrderProcess.ID},
				})
				if err != nil {
					return err
				}
			}
		}

		if err := updateOrderStatus(tx, logger, orderId, nextStatus, nil); err != nil {
			return err
		}
		return writeOrderHistory(tx, logger, orderId, userId, requestHistoryTypeOf(order.Status))
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(db.WithContext(ctx), orderId)
}

// AcceptOrder moves the order to ACCEPTED and performs the type-specific
// ledger work. The counterparty to the request accepts; when the
// counterparty is a managed proxy, the creator itself accepts on its
// behalf (including straight from the preparing state).
func AcceptOrder(ctx context.Context, actorCompanyId int, userId int, orderId int) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	err := withReservingTransaction(ctx, logger, func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, orderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(actorCompanyId); err != nil {
			return err
		}
		order := scope.Order

		creatorCompany, otherCompany := scope.SrcCompany, scope.DstCompany
		if order.IsOffer() {
			creatorCompany, otherCompany = scope.DstCompany, scope.SrcCompany
		}
		if !canAccept(order.Status, otherCompany.IsManaged()) {
			return utils.ConflictError("order is not in an acceptable status")
		}
		if otherCompany.IsManaged() {
			if !actsForCompany(actorCompanyId, creatorCompany) {
				return utils.ForbiddenError("only the creating side may accept for a managed counterparty")
			}
		} else if !actsForCompany(actorCompanyId, otherCompany) {
			return utils.ForbiddenError("only the counterparty may accept the order")
		}

		switch order.OrderType {
		case models.OrderTypeNormal:
			if err := acceptNormalOrderTx(tx, logger, scope, actorCompanyId, userId); err != nil {
				return err
			}
		case models.OrderTypeDeposit:
			if err := acceptDepositOrderTx(ctx, tx, logger, scope, userId); err != nil {
				return err
			}
		case models.OrderTypeOutsourceProcess:
			if err := acceptOrderProcessTx(tx, logger, scope, actorCompanyId); err != nil {
				return err
			}
		case models.OrderTypeReturn:
			if err := acceptReturnOrderTx(tx, logger, scope); err != nil {
				return err
			}
		}

		if err := updateOrderStatus(tx, logger, orderId, models.OrderStatusAccepted, map[string]interface{}{
			"accepted_company_id": actorCompanyId,
		}); err != nil {
			return err
		}
		return writeOrderHistory(tx, logger, orderId, userId, models.OrderHistoryTypeAccept)
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(db.WithContext(ctx), orderId)
}

func acceptNormalOrderTx(tx *gorm.DB, logger *logrus.Logger, scope *orderScope, actorCompanyId int, userId int) error {
	order := scope.Order
	orderStock := order.OrderStock
	if orderStock == nil {
		err := utils.InternalError("normal order has no stock sub-record", nil)
		config.LogError(logger, "orderTransition.go", "acceptNormalOrderTx", "MissingOrderStock", order.ID, err)
		return err
	}

	// seller reservation: made at request on the offer path, made here on
	// the order path
	sellerPlan, err := sellerAssignPlan(tx, orderStock.ID)
	if err != nil {
		config.LogError(logger, "orderTransition.go", "acceptNormalOrderTx", "FindSellerPlan", order.ID, err)
		return err
	}
	if sellerPlan == nil && !scope.DstCompany.IsManaged() {
		sellerPlan, err = assignStockToOrder(tx, logger, AssignStockParams{
			InquiryCompanyId: actorCompanyId,
			Key:              stockGroupKeyOfOrderStock(orderStock),
			Quantity:         orderStock.Quantity,
			PlanType:         models.PlanTypeTradeNormalSeller,
			Links:            PlanOrderLinks{OrderStockId: &orderStock.ID},
		})
		if err != nil {
			return err
		}
	}

	// deposit releases attached to this order are spent now
	if err := spendAttachedDeposits(tx, logger, order.ID, userId); err != nil {
		return err
	}

	// a managed buyer tracks no stock; skip the incoming side entirely
	if scope.SrcCompany.IsManaged() {
		return nil
	}
	buyerPlan, err := createCounterpartPlan(tx, logger, models.PlanTypeTradeNormalBuyer, order.SrcCompanyId, PlanOrderLinks{
		OrderStockId: &orderStock.ID,
	})
	if err != nil {
		return err
	}
	_, err = AddArrivalToPlan(tx, logger, buyerPlan, ArrivalParams{
		Spec:     orderStock.GoodSpec,
		Quantity: orderStock.Quantity,
	})
	return err
}

func acceptDepositOrderTx(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, scope *orderScope, userId int) error {
	order := scope.Order
	orderDeposit := order.OrderDeposit
	if orderDeposit == nil {
		err := utils.InternalError("deposit order has no deposit sub-record", nil)
		config.LogError(logger, "orderTransition.go", "acceptDepositOrderTx", "MissingOrderDeposit", order.ID, err)
		return err
	}

	deposit, err := GetOrCreateDeposit(ctx, tx, logger, DepositKey{
		SrcCompanyRegistrationNumber: scope.SrcCompany.CompanyRegistrationNumber,
		DstCompanyRegistrationNumber: scope.DstCompany.CompanyRegistrationNumber,
		Spec:                         orderDeposit.GoodSpec,
	})
	if err != nil {
		return err
	}

	if _, err := CreateDepositEvent(tx, logger, deposit.ID, orderDeposit.Quantity, DepositEventLinks{
		OrderDepositId: &orderDeposit.ID,
		UserId:         &userId,
	}); err != nil {
		return err
	}
	return tx.Model(&models.OrderDeposit{}).Where("id = ?", orderDeposit.ID).
		Update("deposit_id", deposit.ID).Error
}

// acceptOrderProcessTx synthesizes the conversion hand-off: a release task
// for the buyer's goods and a matching arrival on the processor's side.
// The release quantity and the arrival entry mirror the assign reservation
// exactly.
func acceptOrderProcessTx(tx *gorm.DB, logger *logrus.Logger, scope *orderScope, actorCompanyId int) error {
	order := scope.Order
	orderProcess := order.OrderProcess
	if orderProcess == nil {
		err := utils.InternalError("process order has no process sub-record", nil)
		config.LogError(logger, "orderTransition.go", "acceptOrderProcessTx", "MissingOrderProcess", order.ID, err)
		return err
	}

	// a managed orderer tracks no stock; skip its reservation and the
	// release hand-off entirely
	if !scope.SrcCompany.IsManaged() {
		buyerPlan, err := processPlanOfType(tx, orderProcess.ID, models.PlanTypeTradeOutsourceProcessBuyer)
		if err != nil {
			config.LogError(logger, "orderTransition.go", "acceptOrderProcessTx", "FindBuyerPlan", order.ID, err)
			return err
		}
		if buyerPlan == nil {
			// offer path: the buyer's goods were not reserved at request
			buyerPlan, err = assignStockToOrder(tx, logger, AssignStockParams{
				InquiryCompanyId: actorCompanyId,
				Key:              stockGroupKeyOfOrderProcess(orderProcess),
				Quantity:         orderProcess.Quantity,
				PlanType:         models.PlanTypeTradeOutsourceProcessBuyer,
				Links:            PlanOrderLinks{OrderProcessId: &orderProcess.ID},
			})
			if err != nil {
				return err
			}
		}

		if _, err := createReleaseTask(tx, logger, buyerPlan, orderProcess.Quantity); err != nil {
			return err
		}
	}

	if scope.DstCompany.IsManaged() {
		return nil
	}
	sellerPlan, err := createCounterpartPlan(tx, logger, models.PlanTypeTradeOutsourceProcessSeller, order.DstCompanyId, PlanOrderLinks{
		OrderProcessId: &orderProcess.ID,
	})
	if err != nil {
		return err
	}
	_, err = AddArrivalToPlan(tx, logger, sellerPlan, ArrivalParams{
		Spec:     orderProcess.GoodSpec,
		Quantity: orderProcess.Quantity,
	})
	return err
}

func acceptReturnOrderTx(tx *gorm.DB, logger *logrus.Logger, scope *orderScope) error {
	order := scope.Order
	orderReturn := order.OrderReturn
	if orderReturn == nil {
		err := utils.InternalError("return order has no return sub-record", nil)
		config.LogError(logger, "orderTransition.go", "acceptReturnOrderTx", "MissingOrderReturn", order.ID, err)
		return err
	}

	if !scope.DstCompany.IsManaged() {
		if _, err := createCounterpartPlan(tx, logger, models.PlanTypeReturnSeller, order.DstCompanyId, PlanOrderLinks{
			OrderReturnId: &orderReturn.ID,
		}); err != nil {
			return err
		}
	}
	if scope.SrcCompany.IsManaged() {
		return nil
	}
	buyerPlan, err := createCounterpartPlan(tx, logger, models.PlanTypeReturnBuyer, order.SrcCompanyId, PlanOrderLinks{
		OrderReturnId: &orderReturn.ID,
	})
	if err != nil {
		return err
	}
	// placeholder; the physical return quantity adjusts it later
	_, err = createReleaseTask(tx, logger, buyerPlan, decimal.Zero)
	return err
}

// RejectOrder refuses a requested order and refunds whatever the request
// reserved.
func RejectOrder(ctx context.Context, actorCompanyId int, userId int, orderId int) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, orderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(actorCompanyId); err != nil {
			return err
		}
		order := scope.Order

		nextStatus, ok := rejectedStatusOf(order.Status)
		if !ok {
			return utils.ConflictError("order is not in a requested status")
		}
		otherCompany := scope.DstCompany
		if order.IsOffer() {
			otherCompany = scope.SrcCompany
		}
		if !actsForCompany(actorCompanyId, otherCompany) {
			return utils.ForbiddenError("only the counterparty may reject the order")
		}

		if err := cancelRequestReservation(tx, logger, order); err != nil {
			return err
		}

		if err := updateOrderStatus(tx, logger, orderId, nextStatus, nil); err != nil {
			return err
		}
		return writeOrderHistory(tx, logger, orderId, userId, rejectHistoryTypeOf(order.Status))
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(db.WithContext(ctx), orderId)
}

// ResetOrder regresses a requested or rejected order back to preparing,
// undoing the request's reservation when it is still live, and bumps the
// revision so stale editors fail.
func ResetOrder(ctx context.Context, actorCompanyId int, userId int, orderId int) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, orderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(actorCompanyId); err != nil {
			return err
		}
		order := scope.Order

		nextStatus, ok := resetStatusOf(order.Status)
		if !ok {
			return utils.ConflictError("order is not in a requested or rejected status")
		}
		creatorCompany := scope.SrcCompany
		if order.IsOffer() {
			creatorCompany = scope.DstCompany
		}
		if !actsForCompany(actorCompanyId, creatorCompany) {
			return utils.ForbiddenError("only the creating side may reset the order")
		}

		// a rejected order's reservation was already refunded at reject
		if isRequestedStatus(order.Status) {
			if err := cancelRequestReservation(tx, logger, order); err != nil {
				return err
			}
		}

		if err := updateOrderStatus(tx, logger, orderId, nextStatus, nil); err != nil {
			return err
		}
		if err := bumpOrderRevision(tx, logger, orderId); err != nil {
			return err
		}
		return writeOrderHistory(tx, logger, orderId, userId, resetHistoryTypeOf(order.Status))
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(db.WithContext(ctx), orderId)
}

// cancelRequestReservation voids the plan the request step created, if any.
func cancelRequestReservation(tx *gorm.DB, logger *logrus.Logger, order *models.Order) error {
	switch order.OrderType {
	case models.OrderTypeNormal:
		if order.OrderStock == nil {
			return nil
		}
		plan, err := sellerAssignPlan(tx, order.OrderStock.ID)
		if err != nil {
			config.LogError(logger, "orderTransition.go", "cancelRequestReservation", "FindSellerPlan", order.ID, err)
			return err
		}
		if plan != nil {
			return CancelAssignStock(tx, logger, plan.ID, true)
		}
	case models.OrderTypeOutsourceProcess:
		if order.OrderProcess == nil {
			return nil
		}
		plan, err := processPlanOfType(tx, order.OrderProcess.ID, models.PlanTypeTradeOutsourceProcessBuyer)
		if err != nil {
			config.LogError(logger, "orderTransition.go", "cancelRequestReservation", "FindBuyerPlan", order.ID, err)
			return err
		}
		if plan != nil {
			return CancelAssignStock(tx, logger, plan.ID, true)
		}
	}
	return nil
}

// CancelOrder terminates an accepted order. Only the seller or its
// managing proxy may cancel; every reservation and arrival the order
// produced is voided and deposit entries spent on it are refunded.
func CancelOrder(ctx context.Context, actorCompanyId int, userId int, orderId int) (*models.Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, orderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(actorCompanyId); err != nil {
			return err
		}
		order := scope.Order

		if order.Status != models.OrderStatusAccepted {
			return utils.ConflictError("only an accepted order can be cancelled")
		}
		if !scope.actsForSeller(actorCompanyId) {
			return utils.ForbiddenError("only the seller may cancel the order")
		}

		plans, err := plansOfOrder(tx, order)
		if err != nil {
			config.LogError(logger, "orderTransition.go", "CancelOrder", "plansOfOrder", orderId, err)
			return err
		}
		for i := range plans {
			plan := &plans[i]
			if plan.AssignStockEventId != nil {
				if err := CancelAssignStock(tx, logger, plan.ID, true); err != nil {
					return err
				}
			} else {
				if err := tx.Model(&models.Plan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
					"is_deleted": true,
					"status":     models.PlanStatusCancelled,
				}).Error; err != nil {
					config.LogError(logger, "orderTransition.go", "CancelOrder", "DeletePlan", plan.ID, err)
					return err
				}
			}
			if err := cancelPlanTargetEvents(tx, logger, plan.ID); err != nil {
				return err
			}
		}

		if err := cancelDepositEventsOfOrder(tx, logger, orderId); err != nil {
			return err
		}

		if err := updateOrderStatus(tx, logger, orderId, models.OrderStatusCancelled, nil); err != nil {
			return err
		}
		return writeOrderHistory(tx, logger, orderId, userId, models.OrderHistoryTypeOrderCancel)
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(db.WithContext(ctx), orderId)
}

// DeleteOrder soft-deletes a prepared order. Nothing was reserved yet, so
// there is no ledger work.
func DeleteOrder(ctx context.Context, actorCompanyId int, userId int, orderId int) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, orderId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(actorCompanyId); err != nil {
			return err
		}
		order := scope.Order

		nextStatus, ok := deletedStatusOf(order.Status)
		if !ok {
			return utils.ConflictError("only a preparing order can be deleted")
		}
		return updateOrderStatus(tx, logger, orderId, nextStatus, nil)
	})
}

/* shared lookups */

func processPlanOfType(tx *gorm.DB, orderProcessId int, planType models.PlanType) (*models.Plan, error) {
	var plans []models.Plan
	err := tx.Where("order_process_id = ?", orderProcessId).
		Where("type = ?", planType).
		Where("is_deleted = ?", false).
		Limit(1).Find(&plans).Error
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

func stockGroupKeyOfOrderStock(orderStock *models.OrderStock) StockGroupKey {
	return StockGroupKey{
		CompanyId:   orderStock.CompanyId,
		WarehouseId: orderStock.WarehouseId,
		PlanId:      orderStock.PlanId,
		GoodSpec:    orderStock.GoodSpec,
	}
}

func stockGroupKeyOfOrderProcess(orderProcess *models.OrderProcess) StockGroupKey {
	return StockGroupKey{
		CompanyId:   orderProcess.CompanyId,
		WarehouseId: orderProcess.WarehouseId,
		PlanId:      orderProcess.PlanId,
		GoodSpec:    orderProcess.GoodSpec,
	}
}

// spendAttachedDeposits turns each deposit release attached to a NORMAL
// order into a negative ledger entry against the pair's balance.
func spendAttachedDeposits(tx *gorm.DB, logger *logrus.Logger, orderId int, userId int) error {
	var attached []models.OrderDeposit
	if err := tx.Where("target_order_id = ?", orderId).Find(&attached).Error; err != nil {
		config.LogError(logger, "orderTransition.go", "spendAttachedDeposits", "FindAttached", orderId, err)
		return err
	}
	for i := range attached {
		orderDeposit := &attached[i]
		if orderDeposit.DepositId == nil {
			err := utils.InternalError("attached deposit release has no deposit", nil)
			config.LogError(logger, "orderTransition.go", "spendAttachedDeposits", "MissingDepositId", orderDeposit.ID, err)
			return err
		}
		if _, err := CreateDepositEvent(tx, logger, *orderDeposit.DepositId, orderDeposit.Quantity.Neg(), DepositEventLinks{
			OrderDepositId: &orderDeposit.ID,
			TargetOrderId:  &orderId,
			UserId:         &userId,
		}); err != nil {
			return err
		}
	}
	return nil
}
