package admin

import "github.com/egpaydcx/egpay-backend/internal/model"

// ActorHeader names the operator recorded in the audit note
const ActorHeader = "X-Admin-User"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type OrderActionRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

type FailOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
}

type ListOrdersQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=PENDING_CONFIRMATION APPROVED REJECTED FAILED TRANSFERRED"`
	Coin   string `form:"coin"`
	Limit  int    `form:"limit" validate:"gte=0"`
	Offset int    `form:"offset" validate:"gte=0"`
}

type ListOrdersResponse struct {
	OK     bool          `json:"ok"`
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type OrderResponse struct {
	OK    bool         `json:"ok"`
	Order *model.Order `json:"order"`
}
