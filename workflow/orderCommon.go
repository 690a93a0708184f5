package workflow

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

// orderScope is an order plus the directory rows every action needs for
// authorization decisions.
type orderScope struct {
	Order      *models.Order
	SrcCompany *models.Company
	DstCompany *models.Company
}

// fetchOrderForUpdate locks the order row FOR UPDATE and loads the
// aggregate. Concurrent actions against the same order serialize here.
func fetchOrderForUpdate(tx *gorm.DB, logger *logrus.Logger, orderId int) (*orderScope, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("OrderStock").
		Preload("OrderProcess").
		Preload("OrderDeposit").
		Preload("OrderReturn").
		Preload("OrderRefund").
		Preload("OrderEtc").
		First(&order, orderId).Error
	if err != nil {
		return nil, utils.NotFoundError("order not found")
	}

	srcCompany, err := fetchCompanyTx(tx, order.SrcCompanyId)
	if err != nil {
		config.LogError(logger, "orderCommon.go", "fetchOrderForUpdate", "FetchSrcCompany", order.SrcCompanyId, err)
		return nil, err
	}
	dstCompany, err := fetchCompanyTx(tx, order.DstCompanyId)
	if err != nil {
		config.LogError(logger, "orderCommon.go", "fetchOrderForUpdate", "FetchDstCompany", order.DstCompanyId, err)
		return nil, err
	}

	return &orderScope{Order: &order, SrcCompany: srcCompany, DstCompany: dstCompany}, nil
}

// actsForCompany reports whether actor is the company itself or its
// managing proxy.
func actsForCompany(actorCompanyId int, company *models.Company) bool {
	if company.ID == actorCompanyId {
		return true
	}
	return company.ManagedById != nil && *company.ManagedById == actorCompanyId
}

func (s *orderScope) actsForSeller(actorCompanyId int) bool {
	return actsForCompany(actorCompanyId, s.DstCompany)
}

func (s *orderScope) actsForBuyer(actorCompanyId int) bool {
	return actsForCompany(actorCompanyId, s.SrcCompany)
}

// counterpartyOf resolves the other side relative to the actor.
func (s *orderScope) counterpartyOf(actorCompanyId int) *models.Company {
	if s.actsForSeller(actorCompanyId) {
		return s.SrcCompany
	}
	return s.DstCompany
}

func (s *orderScope) ensureParticipant(actorCompanyId int) error {
	if s.actsForSeller(actorCompanyId) || s.actsForBuyer(actorCompanyId) {
		return nil
	}
	return utils.ForbiddenError("company is not a participant of this order")
}

func writeOrderHistory(tx *gorm.DB, logger *logrus.Logger, orderId int, userId int, historyType models.OrderHistoryType) error {
	history := models.OrderHistory{
		OrderId: orderId,
		UserId:  userId,
		Type:    historyType,
	}
	if err := tx.Create(&history).Error; err != nil {
		config.LogError(logger, "orderCommon.go", "writeOrderHistory", "CreateHistory", orderId, err)
		return err
	}
	return nil
}

// bumpOrderRevision increments the optimistic-lock counter in place; the
// raw statement avoids a read-modify-write race.
func bumpOrderRevision(tx *gorm.DB, logger *logrus.Logger, orderId int) error {
	err := tx.Exec("UPDATE orders SET revision = revision + 1 WHERE id = ?", orderId).Error
	if err != nil {
		config.LogError(logger, "orderCommon.go", "bumpOrderRevision", "Exec", orderId, err)
		return err
	}
	return nil
}

func updateOrderStatus(tx *gorm.DB, logger *logrus.Logger, orderId int, status models.OrderStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": status}
	for k, v := range extra {
		updates[k] = v
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", orderId).Updates(updates).Error; err != nil {
		config.LogError(logger, "orderCommon.go", "updateOrderStatus", "Updates", orderId, err)
		return err
	}
	return nil
}

// sellerAssignPlan finds the seller-side plan bound to a normal order's
// stock sub-record.
func sellerAssignPlan(tx *gorm.DB, orderStockId int) (*models.Plan, error) {
	var plans []models.Plan
	err := tx.Where("order_stock_id = ?", orderStockId).
		Where("type = ?", models.PlanTypeTradeNormalSeller).
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

func plansOfOrder(tx *gorm.DB, order *models.Order) ([]models.Plan, error) {
	var plans []models.Plan
	q := tx.Where("is_deleted = ?", false)
	switch order.OrderType {
	case models.OrderTypeNormal:
		if order.OrderStock == nil {
			return nil, nil
		}
		q = q.Where("order_stock_id = ?", order.OrderStock.ID)
	case models.OrderTypeOutsourceProcess:
		if order.OrderProcess == nil {
			return nil, nil
		}
		q = q.Where("order_process_id = ?", order.OrderProcess.ID)
	case models.OrderTypeReturn:
		if order.OrderReturn == nil {
			return nil, nil
		}
		q = q.Where("order_return_id = ?", order.OrderReturn.ID)
	default:
		return nil, nil
	}
	if err := q.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// GetOrder loads the aggregate for read paths; unlocked, committed state.
func GetOrder(tx *gorm.DB, orderId int) (*models.Order, error) {
	var order models.Order
	err := tx.
		Preload("SrcCompany").
		Preload("DstCompany").
		Preload("OrderStock").
		Preload("OrderProcess").
		Preload("OrderDeposit").
		Preload("OrderReturn").
		Preload("OrderRefund").
		Preload("OrderEtc").
		First(&order, orderId).Error
	if err != nil {
		return nil, utils.NotFoundError("order not found")
	}
	return &order, nil
}
