package intake

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/notifier"
	"github.com/egpaydcx/egpay-backend/internal/store"
	orderstore "github.com/egpaydcx/egpay-backend/internal/store/order"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

const maxIDAttempts = 3

// SubmitRequest is a payment claim as declared by the client
type SubmitRequest struct {
	UTR       string
	Coin      string
	ToAddress string
	PayMethod model.PayMethod
	PayInr    decimal.Decimal
	FeeBps    decimal.Decimal
	AmountInr decimal.Decimal
	// optional; when positive it must match the server figure
	AmountOut decimal.Decimal
}

// StatusResult is the polling view of an order
type StatusResult struct {
	Found  bool
	Status model.OrderStatus
	Order  *model.Order
}

type intake struct {
	store    *store.Store
	pricer   *Pricer
	notifier notifier.INotifier
	logger   *logger.Logger
	metrics  *monitoring.BusinessMetricsRecorder
	now      func() time.Time
	newID    func() string
}

func New(store *store.Store, pricer *Pricer, notifier notifier.INotifier, logger *logger.Logger, metrics *monitoring.BusinessMetricsRecorder) IIntake {
	return &intake{
		store:    store,
		pricer:   pricer,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		newID:    NewOrderID,
	}
}

func (i *intake) Quote(coin string, payInr, feeBps decimal.Decimal) (*Quote, error) {
	return i.pricer.Quote(coin, payInr, feeBps)
}

func (i *intake) Submit(ctx context.Context, req SubmitRequest) (*model.Order, error) {
	start := i.now()
	payMethod := normalizePayMethod(req.PayMethod)

	order, err := i.submit(ctx, req, payMethod)

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateReference):
		outcome = "duplicate"
	case isValidation(err):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	i.metrics.RecordOrderIntake(string(payMethod), outcome, time.Since(start).Seconds())

	return order, err
}

func (i *intake) submit(ctx context.Context, req SubmitRequest, payMethod model.PayMethod) (*model.Order, error) {
	utr := strings.TrimSpace(req.UTR)
	toAddress := strings.TrimSpace(req.ToAddress)

	if utr == "" {
		return nil, invalid("Missing utr")
	}
	if !IsValidAddress(toAddress) {
		return nil, invalid("Invalid toAddress")
	}
	if !payMethod.Valid() {
		return nil, invalid("Invalid payMethod")
	}
	if !IsValidReference(payMethod, utr) {
		if payMethod == model.PayMethodUPILink {
			return nil, invalid("Invalid UTR format")
		}
		return nil, invalid("Invalid bank reference format")
	}

	quote, err := i.pricer.Quote(req.Coin, req.PayInr, req.FeeBps)
	if err != nil {
		return nil, err
	}

	if !req.AmountInr.Round(0).Equal(decimal.NewFromInt(quote.AmountInr)) {
		return nil, invalid(msgAmountMismatch)
	}
	if req.AmountOut.IsPositive() && !req.AmountOut.Equal(quote.AmountOut) {
		return nil, invalid(msgQuoteMismatch)
	}

	now := i.now().UTC()
	order := &model.Order{
		ID:        i.newID(),
		UTR:       utr,
		Coin:      quote.Coin,
		PayMethod: payMethod,
		AmountInr: quote.AmountInr,
		PayInr:    quote.PayInr,
		FeeInr:    quote.FeeInr,
		FeeBps:    quote.FeeBps,
		Rate:      quote.Rate,
		AmountOut: quote.AmountOut,
		ToAddress: toAddress,
		Status:    model.OrderStatusPendingConfirmation,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = i.store.Order.Create(ctx, order)
	for attempt := 1; errors.Is(err, orderstore.ErrDuplicateID) && attempt < maxIDAttempts; attempt++ {
		order.ID = i.newID()
		err = i.store.Order.Create(ctx, order)
	}
	if err != nil {
		if errors.Is(err, orderstore.ErrDuplicateUTR) {
			i.logger.Info("[intake.Submit][Create] duplicate reference", map[string]string{
				"utr": utr,
			})
			return nil, ErrDuplicateReference
		}
		i.logger.Error("[intake.Submit][Create]", map[string]string{
			"utr":   utr,
			"error": err.Error(),
		})
		return nil, errors.Wrap(err, "create order")
	}

	i.logger.Info("[intake.Submit] order created", map[string]string{
		"orderId":   order.ID,
		"utr":       utr,
		"coin":      order.Coin,
		"amountInr": decimal.NewFromInt(order.AmountInr).String(),
	})

	i.notifier.OrderCreated(ctx, *order)

	return order, nil
}

func (i *intake) Status(ctx context.Context, orderID, utr string) (*StatusResult, error) {
	orderID = strings.TrimSpace(orderID)
	utr = strings.TrimSpace(utr)

	var (
		order *model.Order
		err   error
	)
	switch {
	case orderID != "":
		order, err = i.store.Order.GetByID(ctx, orderID)
	case utr != "":
		order, err = i.store.Order.GetByUTR(ctx, utr)
	default:
		return nil, invalid("orderId or utr is required")
	}

	if errors.Is(err, orderstore.ErrNotFound) {
		return &StatusResult{Found: false, Status: model.OrderStatusNotFound}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	return &StatusResult{Found: true, Status: order.Status, Order: order}, nil
}

// NewOrderID returns "BC_" followed by 32 hex characters
func NewOrderID() string {
	return "BC_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizePayMethod(m model.PayMethod) model.PayMethod {
	s := strings.ToUpper(strings.TrimSpace(string(m)))
	if s == "" {
		return model.PayMethodUPILink
	}
	return model.PayMethod(s)
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
