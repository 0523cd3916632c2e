package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/egpaydcx/egpay-backend/internal/intake"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
	"github.com/egpaydcx/egpay-backend/internal/view"
)

type handler struct {
	intake    intake.IIntake
	logger    *logger.Logger
	validator *validator.Validate
}

func New(intake intake.IIntake, logger *logger.Logger) IHandler {
	return &handler{
		intake:    intake,
		logger:    logger,
		validator: newValidator(),
	}
}

// Create godoc
// @Summary Submit a buy order
// @Description Records a payment claim and holds it for operator confirmation
// @id createOrder
// @Tags Order
// @Accept json
// @Produce json
// @Param request body CreateOrderRequest true "Payment claim"
// @Success 200 {object} CreateOrderResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 409 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /orders [post]
func (h *handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("[order.Create][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.Error("invalid request"))
		return
	}

	req.normalize()
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, view.Error(validationMessage(err, req)))
		return
	}

	order, err := h.intake.Submit(c.Request.Context(), intake.SubmitRequest{
		UTR:       req.UTR,
		Coin:      req.Coin,
		ToAddress: req.ToAddress,
		PayMethod: model.PayMethod(req.PayMethod),
		PayInr:    req.PayInr,
		FeeBps:    req.FeeBps,
		AmountInr: req.AmountInr,
		AmountOut: req.AmountOut,
	})
	if err != nil {
		h.writeIntakeError(c, "Create", err)
		return
	}

	c.JSON(http.StatusOK, CreateOrderResponse{
		OK:      true,
		OrderID: order.ID,
		Status:  order.Status,
	})
}

// Quote godoc
// @Summary Price a buy order
// @Description Computes fee, total and token amount exactly as order submission does
// @id quoteOrder
// @Tags Order
// @Accept json
// @Produce json
// @Param request body QuoteRequest true "Quote request"
// @Success 200 {object} view.Response[intake.Quote]
// @Failure 400 {object} view.ErrorResponse
// @Router /orders/quote [post]
func (h *handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, view.Error("invalid request"))
		return
	}

	quote, err := h.intake.Quote(req.Coin, req.PayInr, req.FeeBps)
	if err != nil {
		h.writeIntakeError(c, "Quote", err)
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[*intake.Quote](quote, nil, nil, ""))
}

// Status godoc
// @Summary Poll an order
// @Description Looks an order up by id or payment reference. Unknown orders answer found=false.
// @id orderStatus
// @Tags Order
// @Produce json
// @Param orderId query string false "Order id"
// @Param utr query string false "Payment reference"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /orders/status [get]
func (h *handler) Status(c *gin.Context) {
	res, err := h.intake.Status(c.Request.Context(), c.Query("orderId"), c.Query("utr"))
	if err != nil {
		h.writeIntakeError(c, "Status", err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		OK:     true,
		Found:  res.Found,
		Status: res.Status,
		Order:  res.Order,
	})
}

func (h *handler) writeIntakeError(c *gin.Context, op string, err error) {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, view.Error(verr.Message))
	case errors.Is(err, intake.ErrDuplicateReference):
		c.JSON(http.StatusConflict, view.Error(intake.ErrDuplicateReference.Error()))
	default:
		h.logger.Error("[order."+op+"]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.Error("Something went wrong, please try again"))
	}
}
