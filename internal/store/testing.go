package store

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets a (wallet, currency) balance directly
// when using the in-memory store.
func SeedBalance(s Store, walletID, currency string, amount decimal.Decimal) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if _, exists := mem.balances[walletID]; !exists {
			mem.balances[walletID] = make(map[string]decimal.Decimal)
		}
		mem.balances[walletID][currency] = amount
	}
}
