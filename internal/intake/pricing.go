package intake

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/egpaydcx/egpay-backend/internal/utils/config"
)

var bpsDenominator = decimal.NewFromInt(10000)

const (
	defaultTokenDecimals int32 = 18
	// amount columns are NUMERIC(78,18)
	maxStoredDecimals int32 = 18
)

// Quote holds the server's figures for one purchase
type Quote struct {
	Coin      string          `json:"coin"`
	PayInr    int64           `json:"payInr"`
	FeeBps    int64           `json:"feeBps"`
	FeeInr    int64           `json:"feeInr"`
	AmountInr int64           `json:"amountInr"`
	Rate      decimal.Decimal `json:"rate"`
	AmountOut decimal.Decimal `json:"amountOut"`
}

// Pricer turns client-declared figures into server truth
type Pricer struct {
	minInr    int64
	maxInr    int64
	maxFeeBps int64
	rates     map[string]decimal.Decimal
	// fractional digits AmountOut is cut to, per coin
	places map[string]int32
}

func NewPricer(cfg config.PricingConfig) (*Pricer, error) {
	rates := make(map[string]decimal.Decimal, len(cfg.Rates))
	for coin, raw := range cfg.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", coin, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", coin)
		}
		rates[strings.ToUpper(coin)] = rate
	}
	if cfg.MinInr <= 0 || cfg.MaxInr < cfg.MinInr {
		return nil, fmt.Errorf("invalid INR range [%d, %d]", cfg.MinInr, cfg.MaxInr)
	}

	places := make(map[string]int32, len(rates))
	for coin := range rates {
		d := defaultTokenDecimals
		if v, ok := cfg.Decimals[coin]; ok {
			d = v
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid decimals for %s: %d", coin, d)
		}
		places[coin] = min(d, maxStoredDecimals)
	}

	return &Pricer{
		minInr:    cfg.MinInr,
		maxInr:    cfg.MaxInr,
		maxFeeBps: cfg.MaxFeeBps,
		rates:     rates,
		places:    places,
	}, nil
}

// Quote validates the declared base amount and fee rate, applies the guardrail
// clamps and computes fee, total and token output.
func (p *Pricer) Quote(coin string, payInr, feeBps decimal.Decimal) (*Quote, error) {
	coin = normalizeCoin(coin)
	rate, ok := p.rates[coin]
	if !ok {
		return nil, invalid("Unsupported coin")
	}
	if !payInr.IsPositive() {
		return nil, invalid("Invalid payInr")
	}
	if feeBps.IsNegative() || feeBps.GreaterThan(decimal.NewFromInt(p.maxFeeBps)) {
		return nil, invalid("Invalid feeBps")
	}

	// clamp before leaving decimal so huge inputs cannot wrap in IntPart
	pay := clamp(payInr.Round(0), p.minInr, p.maxInr)
	bps := clamp(feeBps.Floor(), 0, p.maxFeeBps)

	fee := roundInr(decimal.NewFromInt(pay).Mul(decimal.NewFromInt(bps)).Div(bpsDenominator))

	return &Quote{
		Coin:      coin,
		PayInr:    pay,
		FeeBps:    bps,
		FeeInr:    fee,
		AmountInr: pay + fee,
		Rate:      rate,
		AmountOut: decimal.NewFromInt(pay).Mul(rate).Truncate(p.places[coin]),
	}, nil
}

func normalizeCoin(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return "EGLIFE"
	}
	return coin
}

// roundInr rounds half away from zero to whole rupees
func roundInr(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func clamp(d decimal.Decimal, lo, hi int64) int64 {
	if d.LessThan(decimal.NewFromInt(lo)) {
		return lo
	}
	if d.GreaterThan(decimal.NewFromInt(hi)) {
		return hi
	}
	return d.IntPart()
}
