package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu        sync.RWMutex
	balances  map[string]map[string]decimal.Decimal
	transfers map[string]MoneyTransfer
	created   map[string]time.Time
}

// NewMemory creates a concurrency-safe in-memory store useful for unit tests
// and for running the service without a database.
func NewMemory() Store {
	return &memoryStore{
		balances:  make(map[string]map[string]decimal.Decimal),
		transfers: make(map[string]MoneyTransfer),
		created:   make(map[string]time.Time),
	}
}

func (s *memoryStore) CreateWallet(_ context.Context) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.balances[id] = make(map[string]decimal.Decimal)
	s.created[id] = time.Now().UTC()
	return Wallet{ID: id, CreatedAt: s.created[id]}, nil
}

func (s *memoryStore) WalletExists(_ context.Context, walletID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.balances[walletID]
	return ok, nil
}

func (s *memoryStore) FindWallet(_ context.Context, walletID string) (Wallet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balances, ok := s.balances[walletID]
	if !ok {
		return Wallet{}, false, nil
	}
	w := Wallet{ID: walletID, CreatedAt: s.created[walletID]}
	for currency, amount := range balances {
		w.Balances = append(w.Balances, CurrencyBalance{WalletID: walletID, Currency: currency, Amount: amount})
	}
	return w, true, nil
}

func (s *memoryStore) FindBalance(_ context.Context, walletID, currency string) (CurrencyBalance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findBalanceLocked(walletID, currency)
}

func (s *memoryStore) findBalanceLocked(walletID, currency string) (CurrencyBalance, bool, error) {
	balances, ok := s.balances[walletID]
	if !ok {
		return CurrencyBalance{}, false, nil
	}
	amount, ok := balances[currency]
	if !ok {
		return CurrencyBalance{}, false, nil
	}
	return CurrencyBalance{WalletID: walletID, Currency: currency, Amount: amount}, true, nil
}

func (s *memoryStore) HasCurrency(ctx context.Context, walletID, currency string) (bool, error) {
	_, ok, err := s.FindBalance(ctx, walletID, currency)
	return ok, err
}

func (s *memoryStore) FindTransfer(_ context.Context, id string) (MoneyTransfer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	return t, ok, nil
}

func (s *memoryStore) FindTransferWithBalances(_ context.Context, id string) (TransferWithBalances, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return TransferWithBalances{}, false, nil
	}
	twb := TransferWithBalances{Transfer: t}
	if t.FromCurrency != "" {
		if b, ok, _ := s.findBalanceLocked(t.WalletID, t.FromCurrency); ok {
			twb.From = &b
		}
	}
	if t.ToCurrency != "" {
		if b, ok, _ := s.findBalanceLocked(t.WalletID, t.ToCurrency); ok {
			twb.To = &b
		}
	}
	return twb, true, nil
}

func (s *memoryStore) CreateTransfer(_ context.Context, t MoneyTransfer, placeholder *CurrencyBalance) (MoneyTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances, ok := s.balances[t.WalletID]
	if !ok {
		return MoneyTransfer{}, fmt.Errorf("unknown wallet %s", t.WalletID)
	}
	if placeholder != nil {
		if placeholder.Currency == "" {
			return MoneyTransfer{}, fmt.Errorf("empty placeholder currency")
		}
		if _, exists := balances[placeholder.Currency]; exists {
			return MoneyTransfer{}, ErrDuplicateBalance
		}
	}

	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	if placeholder != nil {
		balances[placeholder.Currency] = decimal.Zero
	}
	s.transfers[t.ID] = t
	return t, nil
}

func (s *memoryStore) CompleteTransfer(_ context.Context, t MoneyTransfer, updates []BalanceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transfers[t.ID]
	if !ok || stored.State != TransferActive {
		return ErrConflict
	}
	for _, u := range updates {
		current, ok := s.balances[u.WalletID][u.Currency]
		if !ok || !current.Equal(u.Previous) {
			return ErrConflict
		}
	}

	for _, u := range updates {
		s.balances[u.WalletID][u.Currency] = u.Amount
	}
	stored.State = TransferCompleted
	stored.Rate = t.Rate
	s.transfers[t.ID] = stored
	return nil
}

func (s *memoryStore) MarkTransferDeleted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok || t.State != TransferActive {
		return ErrConflict
	}
	t.State = TransferDeleted
	s.transfers[id] = t
	return nil
}
