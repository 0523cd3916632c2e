package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	OrderStatusApproved            OrderStatus = "APPROVED"
	OrderStatusRejected            OrderStatus = "REJECTED"
	OrderStatusFailed              OrderStatus = "FAILED"
	// OrderStatusTransferred is the settled marker written together with TxHash.
	OrderStatusTransferred OrderStatus = "TRANSFERRED"
	// OrderStatusNotFound is only used in status query responses, never persisted.
	OrderStatusNotFound OrderStatus = "NOT_FOUND"
)

func (s OrderStatus) String() string {
	return string(s)
}

type PayMethod string

const (
	PayMethodUPILink PayMethod = "UPI_LINK"
	PayMethodBank    PayMethod = "BANK"
)

func (m PayMethod) Valid() bool {
	return m == PayMethodUPILink || m == PayMethodBank
}

// Order is one buy-crypto payment claim and its settlement state.
type Order struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	UTR       string    `json:"utr" gorm:"column:utr;uniqueIndex"`
	Coin      string    `json:"coin" gorm:"column:coin"`
	PayMethod PayMethod `json:"payMethod" gorm:"column:pay_method"`

	AmountInr int64 `json:"amountInr" gorm:"column:amount_inr"`
	PayInr    int64 `json:"payInr" gorm:"column:pay_inr"`
	FeeInr    int64 `json:"feeInr" gorm:"column:fee_inr"`
	FeeBps    int64 `json:"feeBps" gorm:"column:fee_bps"`

	Rate         decimal.Decimal `json:"rate" gorm:"column:rate;type:numeric"`
	AmountOut    decimal.Decimal `json:"amountOut" gorm:"column:amount_out;type:numeric"`
	CryptoAmount decimal.Decimal `json:"cryptoAmount" gorm:"column:crypto_amount;type:numeric"`

	ToAddress     string `json:"toAddress" gorm:"column:to_address"`
	WalletAddress string `json:"walletAddress" gorm:"column:wallet_address"`

	Status      OrderStatus `json:"status" gorm:"column:status"`
	TxHash      string      `json:"txHash,omitempty" gorm:"column:tx_hash"`
	BlockNumber *int64      `json:"blockNumber,omitempty" gorm:"column:block_number"`
	AdminNote   string      `json:"adminNote,omitempty" gorm:"column:admin_note"`

	PendingTxHash       string     `json:"-" gorm:"column:pending_tx_hash"`
	PendingRawTx        string     `json:"-" gorm:"column:pending_raw_tx"`
	TransferAttemptedAt *time.Time `json:"transferAttemptedAt,omitempty" gorm:"column:transfer_attempted_at"`

	CreatedAt  time.Time  `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" gorm:"column:updated_at"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty" gorm:"column:approved_at"`
}

func (Order) TableName() string {
	return "buy_crypto_orders"
}

// SyncLegacyColumns copies the canonical payout fields into the duplicated columns.
func (o *Order) SyncLegacyColumns() {
	o.WalletAddress = o.ToAddress
	o.CryptoAmount = o.AmountOut
}

// AppendNote adds an entry to the audit trail.
func (o *Order) AppendNote(note string) {
	if note == "" {
		return
	}
	if o.AdminNote == "" {
		o.AdminNote = note
		return
	}
	o.AdminNote = o.AdminNote + " | " + note
}

func (o *Order) Settled() bool {
	return o.TxHash != ""
}

func (o *Order) TransferInFlight() bool {
	return o.PendingTxHash != ""
}

func (o *Order) ClearTransferAttempt() {
	o.PendingTxHash = ""
	o.PendingRawTx = ""
	o.TransferAttemptedAt = nil
}

// OrderFilter narrows admin listings. Zero values mean no filter.
type OrderFilter struct {
	Status         OrderStatus
	Coin           string
	CreatedBefore  *time.Time
	ApprovedBefore *time.Time
	OnlyUnsettled  bool
	Limit          int
	Offset         int
}
