package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
	"bitbucket.org/papermoa/trade_backend/workflow"
)

func registerRoutes(r *gin.Engine) {
	orders := r.Group("/orders")
	{
		orders.POST("/normal", createNormalOrderHandler)
		orders.POST("/process", createOrderProcessHandler)
		orders.POST("/deposit", createDepositOrderHandler)
		orders.POST("/return", createReturnOrderHandler)
		orders.POST("/refund", createRefundOrderHandler)
		orders.POST("/etc", createEtcOrderHandler)

		orders.GET("/:id", getOrderHandler)
		orders.DELETE("/:id", deleteOrderHandler)

		orders.POST("/:id/request", transitionHandler(workflow.RequestOrder))
		orders.POST("/:id/accept", transitionHandler(workflow.AcceptOrder))
		orders.POST("/:id/reject", transitionHandler(workflow.RejectOrder))
		orders.POST("/:id/reset", transitionHandler(workflow.ResetOrder))
		orders.POST("/:id/cancel", transitionHandler(workflow.CancelOrder))

		orders.PUT("/:id/stock", updateOrderStockHandler)
		orders.PUT("/:id/assign-stock", updateOrderAssignStockHandler)
		orders.PUT("/:id/process-info", updateOrderProcessInfoHandler)
		orders.PUT("/:id/process-stock", updateOrderProcessStockHandler)
		orders.PUT("/:id/deposit", updateOrderDepositHandler)
		orders.PUT("/:id/etc", updateOrderEtcHandler)
		orders.PUT("/:id/refund", updateOrderRefundHandler)
		orders.PUT("/:id/return", updateOrderReturnHandler)
		orders.PUT("/:id/return-stock", updateOrderReturnStockHandler)
		orders.PUT("/:id/price", updateTradePriceHandler)

		orders.POST("/:id/arrivals", createArrivalHandler)
		orders.POST("/:id/deposit-uses", createOrderDepositUseHandler)
	}

	r.PUT("/order-deposit-uses/:id", updateOrderDepositUseHandler)
	r.DELETE("/order-deposit-uses/:id", deleteOrderDepositUseHandler)

	r.POST("/stocks/:id/apply-arrival", applyArrivalHandler)

	r.GET("/deposits", listDepositsHandler)
	r.GET("/deposits/:id/balance", depositBalanceHandler)
	r.GET("/deposits/:id/history", depositHistoryHandler)
}

// identity returns the caller's company and user ids seeded by the auth
// middleware, aborting with 401 when absent.
func identity(c *gin.Context) (int, int, bool) {
	companyId, ok := utils.GetCompanyIdFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, 0, false
	}
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, 0, false
	}
	return companyId, userId, true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch utils.KindOf(err) {
	case utils.ErrorKindNotFound:
		status = http.StatusNotFound
	case utils.ErrorKindConflict:
		status = http.StatusConflict
	case utils.ErrorKindForbidden:
		status = http.StatusForbidden
	case utils.ErrorKindBadRequest:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func createNormalOrderHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	var params workflow.CreateNormalOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	order, err := workflow.CreateNormalOrder(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func createOrderProcessHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	var params workflow.CreateOrderProcessParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	order, err := workflow.CreateOrderProcess(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func createDepositOrderHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	var params workflow.CreateDepositOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	order, err := workflow.CreateDepositOrder(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func createReturnOrderHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	var params workflow.CreateReturnOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	order, err := workflow.CreateReturnOrder(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func createRefundOrderHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	var params workflow.CreateRefundOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	order, err := workflow.CreateRefundOrder(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func createEtcOrderHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	var params workflow.CreateEtcOrderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	order, err := workflow.CreateEtcOrder(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func getOrderHandler(c *gin.Context) {
	companyId, _, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	db := config.GetDB().WithContext(c.Request.Context())
	order, err := workflow.GetOrder(db, orderId)
	if err != nil {
		writeError(c, err)
		return
	}
	if order.SrcCompanyId != companyId && order.DstCompanyId != companyId {
		src, errSrc := models.GetCompany(c.Request.Context(), order.SrcCompanyId)
		dst, errDst := models.GetCompany(c.Request.Context(), order.DstCompanyId)
		manages := false
		if errSrc == nil && src.ManagedById != nil && *src.ManagedById == companyId {
			manages = true
		}
		if errDst == nil && dst.ManagedById != nil && *dst.ManagedById == companyId {
			manages = true
		}
		if !manages {
			writeError(c, utils.ForbiddenError("company is not a participant of this order"))
			return
		}
	}
	c.JSON(http.StatusOK, order)
}

func deleteOrderHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	if err := workflow.DeleteOrder(c.Request.Context(), companyId, userId, orderId); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// transitionHandler adapts the shared transition signature.
func transitionHandler(fn func(ctx context.Context, actorCompanyId int, userId int, orderId int) (*models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, userId, ok := identity(c)
		if !ok {
			return
		}
		orderId, ok := pathId(c)
		if !ok {
			return
		}
		order, err := fn(c.Request.Context(), companyId, userId, orderId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func updateOrderStockHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderStockParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderStock(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderAssignStockHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderAssignStockParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderAssignStock(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderProcessInfoHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderProcessInfoParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderProcessInfo(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderProcessStockHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderProcessStockParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderProcessStock(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderDepositHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderDepositParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderDeposit(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderEtcHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderEtcParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderEtc(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderRefundHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderRefundParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderRefund(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderReturnHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderReturnParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderReturn(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateOrderReturnStockHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderReturnStockParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateOrderReturnStock(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func updateTradePriceHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateTradePriceParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	if err := workflow.UpdateTradePrice(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func createArrivalHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.CreateArrivalParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	stock, err := workflow.CreateArrival(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stock)
}

func createOrderDepositUseHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.CreateOrderDepositUseParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderId = orderId
	orderDeposit, err := workflow.CreateOrderDepositUse(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderDeposit)
}

func updateOrderDepositUseHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderDepositId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.UpdateOrderDepositUseParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.OrderDepositId = orderDepositId
	if err := workflow.UpdateOrderDepositUse(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func deleteOrderDepositUseHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	orderDepositId, ok := pathId(c)
	if !ok {
		return
	}
	err := workflow.DeleteOrderDepositUse(c.Request.Context(), workflow.DeleteOrderDepositUseParams{
		ActorCompanyId: companyId,
		UserId:         userId,
		OrderDepositId: orderDepositId,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func applyArrivalHandler(c *gin.Context) {
	companyId, userId, ok := identity(c)
	if !ok {
		return
	}
	stockId, ok := pathId(c)
	if !ok {
		return
	}
	var params workflow.ApplyArrivalParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	params.ActorCompanyId = companyId
	params.UserId = userId
	params.StockId = stockId
	if err := workflow.ApplyArrival(c.Request.Context(), params); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ensureDepositParticipant confirms the caller stands on one side of the
// deposit pair before exposing its balance or history.
func ensureDepositParticipant(ctx context.Context, db *gorm.DB, companyId int, depositId int) error {
	company, err := models.GetCompany(ctx, companyId)
	if err != nil {
		return err
	}
	var deposit models.Deposit
	if err := db.First(&deposit, depositId).Error; err != nil {
		return utils.NotFoundError("deposit not found")
	}
	regNo := company.CompanyRegistrationNumber
	if deposit.SrcCompanyRegistrationNumber != regNo && deposit.DstCompanyRegistrationNumber != regNo {
		return utils.ForbiddenError("deposit belongs to another company pair")
	}
	return nil
}

func listDepositsHandler(c *gin.Context) {
	companyId, _, ok := identity(c)
	if !ok {
		return
	}
	company, err := models.GetCompany(c.Request.Context(), companyId)
	if err != nil {
		writeError(c, err)
		return
	}
	deposits, err := workflow.GetDepositList(c.Request.Context(), company.CompanyRegistrationNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deposits)
}

func depositBalanceHandler(c *gin.Context) {
	companyId, _, ok := identity(c)
	if !ok {
		return
	}
	depositId, ok := pathId(c)
	if !ok {
		return
	}
	db := config.GetDB().WithContext(c.Request.Context())
	if err := ensureDepositParticipant(c.Request.Context(), db, companyId, depositId); err != nil {
		writeError(c, err)
		return
	}
	balance, err := workflow.GetDepositBalance(db, depositId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"depositId": depositId, "balance": balance})
}

func depositHistoryHandler(c *gin.Context) {
	companyId, _, ok := identity(c)
	if !ok {
		return
	}
	depositId, ok := pathId(c)
	if !ok {
		return
	}
	db := config.GetDB().WithContext(c.Request.Context())
	if err := ensureDepositParticipant(c.Request.Context(), db, companyId, depositId); err != nil {
		writeError(c, err)
		return
	}
	events, err := workflow.GetDepositHistory(c.Request.Context(), depositId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
