package controller

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindBadRequest     ErrorKind = "BAD_REQUEST"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindConflict       ErrorKind = "CONFLICT"
	KindInvalidData    ErrorKind = "INVALID_DATA"
	KindTransferFailed ErrorKind = "TRANSFER_FAILED"
	KindInternal       ErrorKind = "INTERNAL"
)

const (
	MsgOrderNotFound         = "Order not found"
	MsgInsufficientLiquidity = "Insufficient token liquidity"
	MsgTransferInFlight      = "Transfer in flight, awaiting confirmation"
	MsgAwaitingConfirmation  = "Transfer submitted, awaiting confirmation"
	MsgInvalidPayoutData     = "Invalid order payout data"
	MsgTransferFailed        = "Token transfer failed on-chain"
	MsgBroadcastFailed       = "Transfer broadcast failed, retry later"
	MsgGeneric               = "Something went wrong, please try again"
)

// Error classifies a failed orchestrator operation for the control surface
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage is safe to show to an operator or client
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return MsgGeneric
	}
	return e.Message
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Status:  statusFor(kind),
		Err:     cause,
	}
}

func statusFor(kind ErrorKind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, fmt.Sprintf(format, args...), nil)
}

func internal(err error, context string) *Error {
	return newError(KindInternal, MsgGeneric, errors.Wrap(err, context))
}

// AsError extracts the classification from err, treating anything unclassified as internal
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindInternal, MsgGeneric, err)
}
