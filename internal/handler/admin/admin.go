package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/egpaydcx/egpay-backend/internal/controller"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
	"github.com/egpaydcx/egpay-backend/internal/view"
)

type handler struct {
	controller controller.IController
	logger     *logger.Logger
}

func New(controller controller.IController, logger *logger.Logger) IHandler {
	return &handler{
		controller: controller,
		logger:     logger,
	}
}

// Approve godoc
// @Summary Approve a pending order
// @Description Confirms the payment and settles the order on-chain. Repeating the call returns the stored outcome.
// @id approveOrder
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param X-Admin-User header string false "Operator name for the audit trail"
// @Param request body OrderActionRequest true "Order to approve"
// @Success 200 {object} controller.Result
// @Failure 400 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 409 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /admin/orders/approve [post]
func (h *handler) Approve(c *gin.Context) {
	h.handleAction(c, controller.ActionApprove)
}

// Reject godoc
// @Summary Reject a pending order
// @id rejectOrder
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param X-Admin-User header string false "Operator name for the audit trail"
// @Param request body OrderActionRequest true "Order to reject"
// @Success 200 {object} controller.Result
// @Failure 404 {object} view.ErrorResponse
// @Failure 409 {object} controller.Result
// @Router /admin/orders/reject [post]
func (h *handler) Reject(c *gin.Context) {
	h.handleAction(c, controller.ActionReject)
}

// Execute godoc
// @Summary Retry the token transfer of an approved order
// @id executeOrder
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param request body OrderActionRequest true "Order to settle"
// @Success 200 {object} controller.Result
// @Failure 409 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /admin/orders/execute [post]
func (h *handler) Execute(c *gin.Context) {
	h.handleAction(c, controller.ActionExecute)
}

// Fail godoc
// @Summary Close an approved order that will not be settled
// @id failOrder
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param X-Admin-User header string false "Operator name for the audit trail"
// @Param request body FailOrderRequest true "Order to close"
// @Success 200 {object} controller.Result
// @Failure 409 {object} view.ErrorResponse
// @Router /admin/orders/fail [post]
func (h *handler) Fail(c *gin.Context) {
	var req FailOrderRequest
	if !h.bind(c, "Fail", &req) {
		return
	}

	h.dispatch(c, controller.Command{
		Action:  controller.ActionFail,
		OrderID: req.OrderID,
		Actor:   model.AdminActor(c.GetHeader(ActorHeader)),
		Reason:  strings.TrimSpace(req.Reason),
	})
}

// GetOrder godoc
// @Summary Get one order
// @id adminGetOrder
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /admin/orders/{id} [get]
func (h *handler) GetOrder(c *gin.Context) {
	order, err := h.controller.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "GetOrder", err)
		return
	}

	c.JSON(http.StatusOK, OrderResponse{OK: true, Order: order})
}

// ListOrders godoc
// @Summary List orders newest first
// @id adminListOrders
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param status query string false "Order status"
// @Param coin query string false "Coin symbol"
// @Param limit query int false "Page size, default 50, max 200"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} ListOrdersResponse
// @Failure 400 {object} view.ErrorResponse
// @Router /admin/orders [get]
func (h *handler) ListOrders(c *gin.Context) {
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, view.Error("invalid query"))
		return
	}
	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	if err := validator.New().Struct(q); err != nil {
		c.JSON(http.StatusBadRequest, view.Error("invalid query"))
		return
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	orders, total, err := h.controller.ListOrders(c.Request.Context(), model.OrderFilter{
		Status: model.OrderStatus(q.Status),
		Coin:   strings.ToUpper(strings.TrimSpace(q.Coin)),
		Limit:  limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.writeError(c, "ListOrders", err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	c.JSON(http.StatusOK, ListOrdersResponse{
		OK:     true,
		Orders: orders,
		Total:  total,
		Limit:  limit,
		Offset: q.Offset,
	})
}

// HotWallet godoc
// @Summary Hot wallet token liquidity
// @id adminHotWallet
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param coin query string false "Coin symbol, default EGLIFE"
// @Success 200 {object} view.Response[controller.HotWalletView]
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /admin/hot-wallet [get]
func (h *handler) HotWallet(c *gin.Context) {
	wallet, err := h.controller.HotWallet(c.Request.Context(), c.Query("coin"))
	if err != nil {
		h.writeError(c, "HotWallet", err)
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[*controller.HotWalletView](wallet, nil, nil, ""))
}

func (h *handler) handleAction(c *gin.Context, action controller.Action) {
	var req OrderActionRequest
	if !h.bind(c, string(action), &req) {
		return
	}

	h.dispatch(c, controller.Command{
		Action:  action,
		OrderID: req.OrderID,
		Actor:   model.AdminActor(c.GetHeader(ActorHeader)),
	})
}

func (h *handler) bind(c *gin.Context, op string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Info("[admin."+op+"][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.Error("invalid request"))
		return false
	}

	if err := validator.New().Struct(req); err != nil {
		message := "invalid request"
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && errs[0].Field() == "OrderID" {
			message = "Missing orderId"
		}
		c.JSON(http.StatusBadRequest, view.Error(message))
		return false
	}
	return true
}

func (h *handler) dispatch(c *gin.Context, cmd controller.Command) {
	res, err := h.controller.Handle(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, string(cmd.Action), err)
		return
	}

	// an order already past the requested step in the other direction is a conflict
	if !res.OK {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) writeError(c *gin.Context, op string, err error) {
	cerr := controller.AsError(err)
	if cerr.Kind == controller.KindInternal || cerr.Kind == controller.KindInvalidData {
		h.logger.Error("[admin."+op+"]", map[string]string{
			"error": err.Error(),
		})
	}
	c.JSON(cerr.Status, view.Error(cerr.PublicMessage()))
}
