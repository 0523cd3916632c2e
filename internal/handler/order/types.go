package order

import (
	"github.com/shopspring/decimal"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

type CreateOrderRequest struct {
	UTR       string          `json:"utr" validate:"required,payref"`
	Coin      string          `json:"coin"`
	ToAddress string          `json:"toAddress" validate:"required,eth_addr"`
	PayMethod string          `json:"payMethod" validate:"omitempty,oneof=UPI_LINK BANK"`
	PayInr    decimal.Decimal `json:"payInr" swaggertype:"number"`
	FeeBps    decimal.Decimal `json:"feeBps" swaggertype:"number"`
	AmountInr decimal.Decimal `json:"amountInr" swaggertype:"number"`
	AmountOut decimal.Decimal `json:"amountOut,omitempty" swaggertype:"string"`
}

type CreateOrderResponse struct {
	OK      bool              `json:"ok"`
	OrderID string            `json:"orderId"`
	Status  model.OrderStatus `json:"status"`
}

type QuoteRequest struct {
	Coin   string          `json:"coin"`
	PayInr decimal.Decimal `json:"payInr" swaggertype:"number"`
	FeeBps decimal.Decimal `json:"feeBps" swaggertype:"number"`
}

type StatusResponse struct {
	OK     bool              `json:"ok"`
	Found  bool              `json:"found"`
	Status model.OrderStatus `json:"status"`
	Order  *model.Order      `json:"order,omitempty"`
}
