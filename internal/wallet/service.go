package wallet

import (
	"context"
	"fmt"

	"github.com/webwallet/webwallet/internal/store"
)

// Service exposes wallet operations backed by the wallet store.
type Service struct {
	store store.Store
}

// NewService builds a wallet service instance.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create provisions an empty wallet. The identifier is assigned by the store
// at commit time.
func (s *Service) Create(ctx context.Context) (store.Wallet, error) {
	w, err := s.store.CreateWallet(ctx)
	if err != nil {
		return store.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// Get retrieves a wallet with all its currency balances.
func (s *Service) Get(ctx context.Context, id string) (store.Wallet, bool, error) {
	return s.store.FindWallet(ctx, id)
}
