package workflow

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
)

type PlanOrderLinks struct {
	OrderStockId   *int
	OrderProcessId *int
	OrderReturnId  *int
}

func createPlan(tx *gorm.DB, logger *logrus.Logger, planType models.PlanType, companyId int, links PlanOrderLinks) (*models.Plan, error) {
	company, err := fetchCompanyTx(tx, companyId)
	if err != nil {
		return nil, err
	}
	plan := models.Plan{
		PlanNo:         utils.SerialW(company.InvoiceCode),
		Type:           planType,
		Status:         models.PlanStatusPreparing,
		CompanyId:      companyId,
		OrderStockId:   links.OrderStockId,
		OrderProcessId: links.OrderProcessId,
		OrderReturnId:  links.OrderReturnId,
	}
	if err := tx.Create(&plan).Error; err != nil {
		config.LogError(logger, "planManager.go", "createPlan", "CreatePlan", companyId, err)
		return nil, err
	}
	return &plan, nil
}

type AssignStockParams struct {
	InquiryCompanyId int
	Key              StockGroupKey
	Quantity         decimal.Decimal
	PlanType         models.PlanType
	Links            PlanOrderLinks
}

// assignStockToOrder reserves quantity from a stock group for an order
// side: it serializes on the group, re-checks availability under the lock,
// then creates the plan, a stock row inside the same group, and a negative
// PENDING entry bound to the plan as its assign event. The group's net
// availability drops by the quantity the moment this commits.
func assignStockToOrder(tx *gorm.DB, logger *logrus.Logger, params AssignStockParams) (*models.Plan, error) {
	if err := AcquireStockGroupLock(tx, params.Key); err != nil {
		config.LogError(logger, "planManager.go", "assignStockToOrder", "AcquireStockGroupLock", params.Key.String(), err)
		return nil, err
	}
	if err := CheckStockGroupAvailableQuantity(tx, logger, CheckStockGroupQuantityParams{
		InquiryCompanyId: params.InquiryCompanyId,
		Key:              params.Key,
		Quantity:         params.Quantity,
	}); err != nil {
		return nil, err
	}

	plan, err := createPlan(tx, logger, params.PlanType, params.Key.CompanyId, params.Links)
	if err != nil {
		return nil, err
	}

	owner, err := fetchCompanyTx(tx, params.Key.CompanyId)
	if err != nil {
		return nil, err
	}
	stock, err := createStock(tx, logger, owner.InvoiceCode, CreateStockParams{
		CompanyId:   params.Key.CompanyId,
		WarehouseId: params.Key.WarehouseId,
		PlanId:      params.Key.PlanId,
		Spec:        params.Key.GoodSpec,
	})
	if err != nil {
		return nil, err
	}

	eventId, err := AppendStockEvent(tx, logger, stock.ID, params.Quantity.Neg(), models.StockEventStatusPending, StockEventLinks{
		AssignPlanId: &plan.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Plan{}).Where("id = ?", plan.ID).
		Update("assign_stock_event_id", eventId).Error; err != nil {
		config.LogError(logger, "planManager.go", "assignStockToOrder", "BindAssignEvent", plan.ID, err)
		return nil, err
	}
	plan.AssignStockEventId = &eventId
	return plan, nil
}

// createCounterpartPlan creates a plan with no ledger events yet (buyer
// side of a normal trade, seller side of an outsourced process). Arrivals
// attach to it later.
func createCounterpartPlan(tx *gorm.DB, logger *logrus.Logger, planType models.PlanType, companyId int, links PlanOrderLinks) (*models.Plan, error) {
	return createPlan(tx, logger, planType, companyId, links)
}

// CancelAssignStock voids a plan's reservation: cancels the assign event,
// recomputes the affected stock, and either soft-deletes the plan or
// merely detaches the assignment (used when an order regresses to an
// earlier status rather than being abandoned).
func CancelAssignStock(tx *gorm.DB, logger *logrus.Logger, planId int, deletePlan bool) error {
	var plan models.Plan
	if err := tx.First(&plan, planId).Error; err != nil {
		config.LogError(logger, "planManager.go", "CancelAssignStock", "FetchPlan", planId, err)
		return utils.NotFoundError("plan not found")
	}
	if plan.AssignStockEventId == nil {
		err := utils.InternalError("plan has no assign stock event", nil)
		config.LogError(logger, "planManager.go", "CancelAssignStock", "MissingAssignEvent", planId, err)
		return err
	}
	if err := CancelStockEvent(tx, logger, *plan.AssignStockEventId); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if deletePlan {
		updates["is_deleted"] = true
		updates["status"] = models.PlanStatusCancelled
	} else {
		updates["assign_stock_event_id"] = nil
	}
	if err := tx.Model(&models.Plan{}).Where("id = ?", planId).Updates(updates).Error; err != nil {
		config.LogError(logger, "planManager.go", "CancelAssignStock", "UpdatePlan", planId, err)
		return err
	}
	return nil
}

// cancelPlanTargetEvents voids every stock entry produced under the plan
// (outsourced-process cancels undo the seller's arrivals too).
func cancelPlanTargetEvents(tx *gorm.DB, logger *logrus.Logger, planId int) error {
	var events []models.StockEvent
	if err := tx.Where("plan_id = ?", planId).
		Where("status <> ?", models.StockEventStatusCancelled).
		Find(&events).Error; err != nil {
		config.LogError(logger, "planManager.go", "cancelPlanTargetEvents", "FetchEvents", planId, err)
		return err
	}
	for _, event := range events {
		if err := CancelStockEvent(tx, logger, event.ID); err != nil {
			return err
		}
	}
	return nil
}

type ArrivalParams struct {
	WarehouseId *int
	Spec        models.GoodSpec
	Quantity    decimal.Decimal
}

// AddArrivalToPlan registers incoming goods under a plan: a new stock row
// plus a positive PENDING entry. A second arrival with an identical spec
// under the same plan is rejected; arrivals are distinguished by spec.
func AddArrivalToPlan(tx *gorm.DB, logger *logrus.Logger, plan *models.Plan, params ArrivalParams) (*models.Stock, error) {
	if !params.Quantity.IsPositive() {
		return nil, utils.BadRequestError("arrival quantity must be positive")
	}

	duplicates, err := countPlanArrivalsWithSpec(tx, plan.ID, params.Spec)
	if err != nil {
		config.LogError(logger, "planManager.go", "AddArrivalToPlan", "CountDuplicates", plan.ID, err)
		return nil, err
	}
	if duplicates > 0 {
		return nil, utils.ConflictError("stock with the same spec already exists under this plan")
	}

	company, err := fetchCompanyTx(tx, plan.CompanyId)
	if err != nil {
		return nil, err
	}
	stock, err := createStock(tx, logger, company.InvoiceCode, CreateStockParams{
		CompanyId:     plan.CompanyId,
		WarehouseId:   params.WarehouseId,
		InitialPlanId: &plan.ID,
		Spec:          params.Spec,
	})
	if err != nil {
		return nil, err
	}
	if _, err := AppendStockEvent(tx, logger, stock.ID, params.Quantity, models.StockEventStatusPending, StockEventLinks{
		PlanId: &plan.ID,
	}); err != nil {
		return nil, err
	}
	return stock, nil
}

func countPlanArrivalsWithSpec(tx *gorm.DB, planId int, spec models.GoodSpec) (int64, error) {
	q := tx.Model(&models.Stock{}).
		Where("initial_plan_id = ?", planId).
		Where("is_deleted = ?", false).
		Where("product_id = ?", spec.ProductId).
		Where("packaging_id = ?", spec.PackagingId).
		Where("grammage = ?", spec.Grammage).
		Where("size_x = ?", spec.SizeX).
		Where("size_y = ?", spec.SizeY)
	q = whereNullableInt(q, "paper_color_group_id", spec.PaperColorGroupId)
	q = whereNullableInt(q, "paper_color_id", spec.PaperColorId)
	q = whereNullableInt(q, "paper_pattern_id", spec.PaperPatternId)
	q = whereNullableInt(q, "paper_cert_id", spec.PaperCertId)
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// createReleaseTask records the work unit that hands goods off under a
// plan. Outsourced-process accepts mirror this quantity exactly into the
// seller's arrival entry.
func createReleaseTask(tx *gorm.DB, logger *logrus.Logger, plan *models.Plan, quantity decimal.Decimal) (*models.Task, error) {
	company, err := fetchCompanyTx(tx, plan.CompanyId)
	if err != nil {
		return nil, err
	}
	task := models.Task{
		TaskNo:   utils.SerialW(company.InvoiceCode),
		PlanId:   plan.ID,
		Type:     models.TaskTypeRelease,
		Status:   models.TaskStatusPreparing,
		Quantity: quantity,
	}
	if err := tx.Create(&task).Error; err != nil {
		config.LogError(logger, "planManager.go", "createReleaseTask", "CreateTask", plan.ID, err)
		return nil, err
	}
	return &task, nil
}

func fetchCompanyTx(tx *gorm.DB, companyId int) (*models.Company, error) {
	var company models.Company
	if err := tx.First(&company, companyId).Error; err != nil {
		return nil, utils.NotFoundError("company not found")
	}
	return &company, nil
}
