package rates

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// StaticProvider serves rates from a fixed table, keyed as "FROM:TO". Useful
// for tests and for running the service without the external feed.
type StaticProvider struct {
	table map[string]decimal.Decimal
	err   error
}

// NewStatic builds a provider over a fixed pair table.
func NewStatic(table map[string]decimal.Decimal) *StaticProvider {
	return &StaticProvider{table: table}
}

// NewFailing builds a provider that reports unavailability on every lookup.
func NewFailing() *StaticProvider {
	return &StaticProvider{err: errors.New("rate provider unavailable")}
}

// Rate resolves the pair from the table.
func (p *StaticProvider) Rate(_ context.Context, fromCurrency, toCurrency string) (decimal.Decimal, bool, error) {
	if p.err != nil {
		return decimal.Decimal{}, false, p.err
	}
	if fromCurrency == toCurrency {
		return decimal.NewFromInt(1), true, nil
	}
	rate, ok := p.table[fromCurrency+":"+toCurrency]
	return rate, ok, nil
}
