package intake

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

type IIntake interface {
	Quote(coin string, payInr, feeBps decimal.Decimal) (*Quote, error)
	Submit(ctx context.Context, req SubmitRequest) (*model.Order, error)
	Status(ctx context.Context, orderID, utr string) (*StatusResult, error)
}
