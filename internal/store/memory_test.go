package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateTransferAssignsIDAndPlaceholder(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, err := st.CreateWallet(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	created, err := st.CreateTransfer(ctx, MoneyTransfer{
		WalletID:   w.ID,
		ToCurrency: "EUR",
		Amount:     dec("10"),
		State:      TransferActive,
	}, &CurrencyBalance{WalletID: w.ID, Currency: "EUR"})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned transfer id")
	}

	b, ok, err := st.FindBalance(ctx, w.ID, "EUR")
	if err != nil || !ok {
		t.Fatalf("expected placeholder balance, ok=%v err=%v", ok, err)
	}
	if !b.Amount.Equal(decimal.Zero) {
		t.Fatalf("placeholder must start at zero, got %s", b.Amount)
	}
}

func TestCreateTransferDuplicatePlaceholder(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, _ := st.CreateWallet(ctx)
	SeedBalance(st, w.ID, "EUR", dec("5"))

	_, err := st.CreateTransfer(ctx, MoneyTransfer{
		WalletID:   w.ID,
		ToCurrency: "EUR",
		Amount:     dec("10"),
		State:      TransferActive,
	}, &CurrencyBalance{WalletID: w.ID, Currency: "EUR"})
	if !errors.Is(err, ErrDuplicateBalance) {
		t.Fatalf("expected duplicate balance, got %v", err)
	}
}

func TestCompleteTransferConflictOnSecondAttempt(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, _ := st.CreateWallet(ctx)
	SeedBalance(st, w.ID, "USD", dec("100"))

	created, err := st.CreateTransfer(ctx, MoneyTransfer{
		WalletID:     w.ID,
		FromCurrency: "USD",
		Amount:       dec("40"),
		State:        TransferActive,
	}, nil)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	updates := []BalanceUpdate{{WalletID: w.ID, Currency: "USD", Previous: dec("100"), Amount: dec("60")}}
	if err := st.CompleteTransfer(ctx, created, updates); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	// The active-state guard refuses a second completion.
	if err := st.CompleteTransfer(ctx, created, updates); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	b, _, _ := st.FindBalance(ctx, w.ID, "USD")
	if !b.Amount.Equal(dec("60")) {
		t.Fatalf("balance double-mutated: %s", b.Amount)
	}
}

func TestCompleteTransferStaleBalanceGuard(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, _ := st.CreateWallet(ctx)
	SeedBalance(st, w.ID, "USD", dec("100"))

	created, err := st.CreateTransfer(ctx, MoneyTransfer{
		WalletID:     w.ID,
		FromCurrency: "USD",
		Amount:       dec("40"),
		State:        TransferActive,
	}, nil)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	// A concurrent writer moved the balance after the snapshot was taken.
	SeedBalance(st, w.ID, "USD", dec("90"))

	err = st.CompleteTransfer(ctx, created, []BalanceUpdate{
		{WalletID: w.ID, Currency: "USD", Previous: dec("100"), Amount: dec("60")},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	b, _, _ := st.FindBalance(ctx, w.ID, "USD")
	if !b.Amount.Equal(dec("90")) {
		t.Fatalf("stale write landed: %s", b.Amount)
	}
	stored, _, _ := st.FindTransfer(ctx, created.ID)
	if stored.State != TransferActive {
		t.Fatalf("transfer state changed on aborted commit: %s", stored.State)
	}
}

func TestMarkTransferDeletedRequiresActive(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, _ := st.CreateWallet(ctx)
	SeedBalance(st, w.ID, "USD", dec("100"))

	created, err := st.CreateTransfer(ctx, MoneyTransfer{
		WalletID:     w.ID,
		FromCurrency: "USD",
		Amount:       dec("40"),
		State:        TransferActive,
	}, nil)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	if err := st.CompleteTransfer(ctx, created, []BalanceUpdate{
		{WalletID: w.ID, Currency: "USD", Previous: dec("100"), Amount: dec("60")},
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := st.MarkTransferDeleted(ctx, created.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict deleting completed transfer, got %v", err)
	}
}

func TestFindTransferWithBalancesResolvesLinks(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, _ := st.CreateWallet(ctx)
	SeedBalance(st, w.ID, "USD", dec("100"))

	created, err := st.CreateTransfer(ctx, MoneyTransfer{
		WalletID:     w.ID,
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Amount:       dec("40"),
		State:        TransferActive,
	}, &CurrencyBalance{WalletID: w.ID, Currency: "EUR"})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	twb, ok, err := st.FindTransferWithBalances(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("find with balances: ok=%v err=%v", ok, err)
	}
	if twb.From == nil || !twb.From.Amount.Equal(dec("100")) {
		t.Fatalf("source link unresolved: %+v", twb.From)
	}
	if twb.To == nil || !twb.To.Amount.Equal(decimal.Zero) {
		t.Fatalf("destination link unresolved: %+v", twb.To)
	}
}

func TestFindWalletListsBalances(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	w, _ := st.CreateWallet(ctx)
	SeedBalance(st, w.ID, "USD", dec("10"))
	SeedBalance(st, w.ID, "EUR", dec("20"))

	found, ok, err := st.FindWallet(ctx, w.ID)
	if err != nil || !ok {
		t.Fatalf("find wallet: ok=%v err=%v", ok, err)
	}
	if len(found.Balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(found.Balances))
	}

	if _, ok, _ := st.FindWallet(ctx, "missing"); ok {
		t.Fatal("expected missing wallet to be absent")
	}
}
