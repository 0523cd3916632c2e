package intake

import (
	"regexp"

	"github.com/egpaydcx/egpay-backend/internal/model"
)

var (
	evmAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	upiRefRe     = regexp.MustCompile(`^[0-9]{10,18}$`)
	bankRefRe    = regexp.MustCompile(`^[A-Za-z0-9\-]{8,24}$`)
)

// IsValidAddress reports whether addr is a 0x-prefixed 40 hex character address
func IsValidAddress(addr string) bool {
	return evmAddressRe.MatchString(addr)
}

// IsValidReference checks a payment reference against the format its method issues
func IsValidReference(method model.PayMethod, ref string) bool {
	if method == model.PayMethodUPILink {
		return upiRefRe.MatchString(ref)
	}
	return bankRefRe.MatchString(ref)
}
