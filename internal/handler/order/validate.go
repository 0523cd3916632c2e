package order

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/egpaydcx/egpay-backend/internal/intake"
	"github.com/egpaydcx/egpay-backend/internal/model"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// payref checks the reference against the format of the sibling PayMethod
	_ = v.RegisterValidation("payref", func(fl validator.FieldLevel) bool {
		method := model.PayMethodUPILink
		if pm := fl.Parent().FieldByName("PayMethod"); pm.IsValid() && pm.String() != "" {
			method = model.PayMethod(pm.String())
		}
		return intake.IsValidReference(method, fl.Field().String())
	})
	return v
}

// normalize trims the identifiers and upper-cases the method so validation sees what intake stores
func (r *CreateOrderRequest) normalize() {
	r.UTR = strings.TrimSpace(r.UTR)
	r.ToAddress = strings.TrimSpace(r.ToAddress)
	r.Coin = strings.TrimSpace(r.Coin)
	r.PayMethod = strings.ToUpper(strings.TrimSpace(r.PayMethod))
}

// validationMessage reports the failed rules in the order intake checks them,
// using the messages clients already know
func validationMessage(err error, req CreateOrderRequest) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "invalid request"
	}

	failed := map[string]string{}
	for _, fe := range errs {
		failed[fe.Field()] = fe.Tag()
	}

	switch {
	case failed["UTR"] == "required":
		return "Missing utr"
	case failed["ToAddress"] != "":
		return "Invalid toAddress"
	case failed["PayMethod"] != "":
		return "Invalid payMethod"
	case failed["UTR"] != "":
		if req.PayMethod == string(model.PayMethodBank) {
			return "Invalid bank reference format"
		}
		return "Invalid UTR format"
	default:
		return "invalid request"
	}
}
