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

// Deposit releases attached to a NORMAL order. The attachment itself moves
// no balance; the negative ledger entry is written when the order is
// accepted, and voided again if the order is later cancelled.

type CreateOrderDepositUseParams struct {
	ActorCompanyId int
	UserId         int
	OrderId        int
	DepositId      int             `json:"depositId" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
}

func CreateOrderDepositUse(ctx context.Context, params CreateOrderDepositUseParams) (*models.OrderDeposit, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var orderDeposit *models.OrderDeposit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope, err := fetchOrderForUpdate(tx, logger, params.OrderId)
		if err != nil {
			return err
		}
		if scope.Order.OrderType != models.OrderTypeNormal {
			return utils.ConflictError("deposit releases attach to normal orders only")
		}
		if err := scope.ensureParticipant(params.ActorCompanyId); err != nil {
			return err
		}
		if scope.Order.Status == models.OrderStatusAccepted {
			return utils.ConflictError("deposit releases must be attached before acceptance")
		}
		if !isEditableStatus(scope.Order.Status) {
			return utils.ConflictError("order can no longer be edited")
		}
		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}

		deposit, err := fetchDepositOfPair(tx, logger, params.DepositId, scope)
		if err != nil {
			return err
		}
		if err := ensureDepositCoversQuantity(tx, logger, scope.Order.ID, deposit.ID, params.Quantity, 0); err != nil {
			return err
		}

		orderDeposit = &models.OrderDeposit{
			OrderId:       scope.Order.ID,
			TargetOrderId: &scope.Order.ID,
			DepositId:     &deposit.ID,
			GoodSpec:      deposit.GoodSpec,
			Quantity:      params.Quantity,
		}
		if err := tx.Create(orderDeposit).Error; err != nil {
			config.LogError(logger, "orderDepositUse.go", "CreateOrderDepositUse", "CreateOrderDeposit", params.OrderId, err)
			return err
		}
		return bumpOrderRevision(tx, logger, params.OrderId)
	})
	if err != nil {
		return nil, err
	}
	return orderDeposit, nil
}

type UpdateOrderDepositUseParams struct {
	ActorCompanyId int
	UserId         int
	OrderDepositId int
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
}

func UpdateOrderDepositUse(ctx context.Context, params UpdateOrderDepositUseParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderDeposit, scope, err := fetchDepositUseForUpdate(tx, logger, params.OrderDepositId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(params.ActorCompanyId); err != nil {
			return err
		}
		if scope.Order.Status == models.OrderStatusAccepted {
			return utils.ConflictError("deposit releases cannot change after acceptance")
		}
		if !params.Quantity.IsPositive() {
			return utils.BadRequestError("quantity must be positive")
		}
		if err := ensureDepositCoversQuantity(tx, logger, scope.Order.ID, *orderDeposit.DepositId, params.Quantity, orderDeposit.ID); err != nil {
			return err
		}

		if err := tx.Model(&models.OrderDeposit{}).Where("id = ?", orderDeposit.ID).
			Update("quantity", params.Quantity).Error; err != nil {
			config.LogError(logger, "orderDepositUse.go", "UpdateOrderDepositUse", "UpdateQuantity", orderDeposit.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, scope.Order.ID)
	})
}

type DeleteOrderDepositUseParams struct {
	ActorCompanyId int
	UserId         int
	OrderDepositId int
}

func DeleteOrderDepositUse(ctx context.Context, params DeleteOrderDepositUseParams) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderDeposit, scope, err := fetchDepositUseForUpdate(tx, logger, params.OrderDepositId)
		if err != nil {
			return err
		}
		if err := scope.ensureParticipant(params.ActorCompanyId); err != nil {
			return err
		}
		if scope.Order.Status == models.OrderStatusAccepted {
			return utils.ConflictError("deposit releases cannot be removed after acceptance")
		}

		if err := tx.Delete(&models.OrderDeposit{}, orderDeposit.ID).Error; err != nil {
			config.LogError(logger, "orderDepositUse.go", "DeleteOrderDepositUse", "DeleteOrderDeposit", orderDeposit.ID, err)
			return err
		}
		return bumpOrderRevision(tx, logger, scope.Order.ID)
	})
}

// fetchDepositUseForUpdate resolves the release row, then locks its target
// order so the attachment cannot race the order's acceptance.
func fetchDepositUseForUpdate(tx *gorm.DB, logger *logrus.Logger, orderDepositId int) (*models.OrderDeposit, *orderScope, error) {
	var orderDeposit models.OrderDeposit
	if err := tx.First(&orderDeposit, orderDepositId).Error; err != nil {
		return nil, nil, utils.NotFoundError("deposit release not found")
	}
	if orderDeposit.TargetOrderId == nil || orderDeposit.DepositId == nil {
		return nil, nil, utils.ConflictError("not a deposit release row")
	}
	scope, err := fetchOrderForUpdate(tx, logger, *orderDeposit.TargetOrderId)
	if err != nil {
		return nil, nil, err
	}
	return &orderDeposit, scope, nil
}

// fetchDepositOfPair loads the deposit and checks it belongs to the
// order's company pair, in either orientation.
func fetchDepositOfPair(tx *gorm.DB, logger *logrus.Logger, depositId int, scope *orderScope) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := tx.First(&deposit, depositId).Error; err != nil {
		return nil, utils.NotFoundError("deposit not found")
	}
	srcRegNo := scope.SrcCompany.CompanyRegistrationNumber
	dstRegNo := scope.DstCompany.CompanyRegistrationNumber
	sameDirection := deposit.SrcCompanyRegistrationNumber == srcRegNo && deposit.DstCompanyRegistrationNumber == dstRegNo
	reversed := deposit.SrcCompanyRegistrationNumber == dstRegNo && deposit.DstCompanyRegistrationNumber == srcRegNo
	if !sameDirection && !reversed {
		return nil, utils.ForbiddenError("deposit belongs to another company pair")
	}
	return &deposit, nil
}

// ensureDepositCoversQuantity checks the balance against the requested
// quantity plus every other release already attached to the same order but
// not yet spent. excludeOrderDepositId skips the row being updated.
func ensureDepositCoversQuantity(tx *gorm.DB, logger *logrus.Logger, orderId int, depositId int, quantity decimal.Decimal, excludeOrderDepositId int) error {
	balance, err := GetDepositBalance(tx, depositId)
	if err != nil {
		config.LogError(logger, "orderDepositUse.go", "ensureDepositCoversQuantity", "GetDepositBalance", depositId, err)
		return err
	}

	var pending *decimal.Decimal
	err = tx.Model(&models.OrderDeposit{}).
		Where("target_order_id = ?", orderId).
		Where("deposit_id = ?", depositId).
		Where("id <> ?", excludeOrderDepositId).
		Select("SUM(`quantity`)").
		Scan(&pending).Error
	if err != nil {
		config.LogError(logger, "orderDepositUse.go", "ensureDepositCoversQuantity", "SumAttached", depositId, err)
		return err
	}
	reserved := decimal.Zero
	if pending != nil {
		reserved = *pending
	}
	if balance.Sub(reserved).LessThan(quantity) {
		return utils.BadRequestError("insufficient deposit balance")
	}
	return nil
}
