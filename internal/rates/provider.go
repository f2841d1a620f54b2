package rates

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider resolves the multiplicative conversion rate between two currencies.
// It returns ok=false when the pair is unknown to the provider and a non-nil
// error when the provider itself is unreachable or misbehaving. Implementations
// must short-circuit same-currency pairs to 1 without any network call.
type Provider interface {
	Rate(ctx context.Context, fromCurrency, toCurrency string) (rate decimal.Decimal, ok bool, err error)
}
