package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/webwallet/webwallet/internal/notification"
	"github.com/webwallet/webwallet/internal/rates"
	"github.com/webwallet/webwallet/internal/store"
)

var (
	// ErrWalletNotFound occurs when the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrTransferNotFound occurs when no transfer suitable for the requested
	// action exists, including transfers that already left the active state.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrCurrencyNotFound occurs when the wallet holds no balance for the
	// source currency.
	ErrCurrencyNotFound = errors.New("currency balance not found")
	// ErrInsufficientFunds occurs when the source balance cannot cover the
	// transfer amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnsupportedCurrencyPair occurs when the rate provider has no data for
	// the pair. Permanent for the pair, nothing was mutated.
	ErrUnsupportedCurrencyPair = errors.New("unsupported currency pair")
	// ErrRateUnavailable occurs on transient rate provider failure or timeout.
	// Nothing was mutated and the identical request is safe to retry.
	ErrRateUnavailable = errors.New("currency rate temporarily unavailable")
	// ErrForbidden occurs when the caller's wallet does not own the transfer.
	ErrForbidden = errors.New("transfer belongs to another wallet")
	// ErrInconsistentTransfer indicates a data-integrity anomaly: a balance
	// record the transfer kind requires is missing.
	ErrInconsistentTransfer = errors.New("transfer currency links are inconsistent")
	// ErrInvalidAmount occurs when the transfer amount is not strictly positive.
	ErrInvalidAmount = errors.New("transfer amount must be positive")
)

const defaultRateTimeout = 5 * time.Second

// Engine orchestrates the transfer lifecycle. It is the only component that
// mutates balances, holds no state between requests, and never touches the
// store after a validation failure.
type Engine struct {
	store       store.Store
	rates       rates.Provider
	notifier    notification.Notifier
	rateTimeout time.Duration
}

// NewEngine constructs a transfer engine. A zero rateTimeout selects the default.
func NewEngine(st store.Store, provider rates.Provider, notifier notification.Notifier, rateTimeout time.Duration) *Engine {
	if rateTimeout <= 0 {
		rateTimeout = defaultRateTimeout
	}
	return &Engine{store: st, rates: provider, notifier: notifier, rateTimeout: rateTimeout}
}

// CreateInput captures a transfer creation request.
type CreateInput struct {
	WalletID  string
	Direction Direction
	Amount    decimal.Decimal
}

// Create validates the request and records a new active transfer. No balance
// is modified; the only side effects are the transfer record itself and, for a
// destination currency the wallet has never held, a zero-balance placeholder.
// Each call records a discrete intent, so repeating it creates a second transfer.
func (e *Engine) Create(ctx context.Context, input CreateInput) (store.MoneyTransfer, error) {
	if input.Amount.Sign() <= 0 {
		return store.MoneyTransfer{}, ErrInvalidAmount
	}
	if input.Direction == (Direction{}) {
		return store.MoneyTransfer{}, ErrInvalidDirection
	}

	exists, err := e.store.WalletExists(ctx, input.WalletID)
	if err != nil {
		return store.MoneyTransfer{}, fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return store.MoneyTransfer{}, ErrWalletNotFound
	}

	from, hasFrom := input.Direction.From()
	to, hasTo := input.Direction.To()

	if hasFrom {
		balance, ok, err := e.store.FindBalance(ctx, input.WalletID, from)
		if err != nil {
			return store.MoneyTransfer{}, fmt.Errorf("find balance: %w", err)
		}
		if !ok {
			return store.MoneyTransfer{}, ErrCurrencyNotFound
		}
		if balance.Amount.LessThan(input.Amount) {
			return store.MoneyTransfer{}, ErrInsufficientFunds
		}
	}

	var rate *decimal.Decimal
	if input.Direction.Kind() == KindExchange {
		resolved, err := e.lookupRate(ctx, from, to)
		if err != nil {
			return store.MoneyTransfer{}, err
		}
		rate = &resolved
	}

	t := store.MoneyTransfer{
		WalletID:     input.WalletID,
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       input.Amount,
		Rate:         rate,
		State:        store.TransferActive,
	}

	var placeholder *store.CurrencyBalance
	if hasTo {
		held, err := e.store.HasCurrency(ctx, input.WalletID, to)
		if err != nil {
			return store.MoneyTransfer{}, fmt.Errorf("check currency: %w", err)
		}
		if !held {
			placeholder = &store.CurrencyBalance{WalletID: input.WalletID, Currency: to}
		}
	}

	created, err := e.store.CreateTransfer(ctx, t, placeholder)
	if err != nil {
		return store.MoneyTransfer{}, fmt.Errorf("persist transfer: %w", err)
	}
	return created, nil
}

// Confirm applies the monetary effect of an active transfer exactly once and
// completes it. Any failure before the final save leaves every balance and the
// transfer state untouched.
func (e *Engine) Confirm(ctx context.Context, transferID, walletID string) (store.MoneyTransfer, error) {
	twb, ok, err := e.store.FindTransferWithBalances(ctx, transferID)
	if err != nil {
		return store.MoneyTransfer{}, fmt.Errorf("find transfer: %w", err)
	}
	if !ok || twb.Transfer.State != store.TransferActive {
		return store.MoneyTransfer{}, ErrTransferNotFound
	}

	t := twb.Transfer
	if t.WalletID != walletID {
		return store.MoneyTransfer{}, ErrForbidden
	}
	if twb.From == nil && twb.To == nil {
		return store.MoneyTransfer{}, ErrInconsistentTransfer
	}
	if twb.From != nil && twb.From.Amount.LessThan(t.Amount) {
		return store.MoneyTransfer{}, ErrInsufficientFunds
	}

	var updates []store.BalanceUpdate
	switch kindOf(t) {
	case KindExchange:
		if twb.From == nil || twb.To == nil {
			return store.MoneyTransfer{}, ErrInconsistentTransfer
		}
		// The rate may have moved since creation, so it is resolved again and
		// the transfer records the rate actually applied.
		rate, err := e.lookupRate(ctx, t.FromCurrency, t.ToCurrency)
		if err != nil {
			return store.MoneyTransfer{}, err
		}
		t.Rate = &rate
		if twb.From.Currency == twb.To.Currency {
			// Debit and credit target the same balance row; the store guards
			// each row against its previous amount, so they must collapse into
			// a single net update.
			updates = []store.BalanceUpdate{netExchange(*twb.From, t.Amount, rate)}
		} else {
			updates = []store.BalanceUpdate{
				debit(*twb.From, t.Amount),
				credit(*twb.To, t.Amount.Mul(rate)),
			}
		}
	case KindWithdrawal:
		if twb.From == nil {
			return store.MoneyTransfer{}, ErrInconsistentTransfer
		}
		updates = []store.BalanceUpdate{debit(*twb.From, t.Amount)}
	case KindReplenishment:
		if twb.To == nil {
			return store.MoneyTransfer{}, ErrInconsistentTransfer
		}
		updates = []store.BalanceUpdate{credit(*twb.To, t.Amount)}
	}

	t.State = store.TransferCompleted
	if err := e.store.CompleteTransfer(ctx, t, updates); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the active-state race: for the caller the transfer is no
			// longer there to confirm.
			return store.MoneyTransfer{}, ErrTransferNotFound
		}
		return store.MoneyTransfer{}, fmt.Errorf("complete transfer: %w", err)
	}

	if e.notifier != nil {
		_ = e.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCompleted,
			Destination: t.WalletID,
			Body:        fmt.Sprintf("Transfer %s completed", t.ID),
		})
	}
	return t, nil
}

// Delete cancels an active transfer. Completed transfers can never be deleted
// since their money already moved; deleting twice is idempotent.
func (e *Engine) Delete(ctx context.Context, transferID, walletID string) error {
	t, ok, err := e.store.FindTransfer(ctx, transferID)
	if err != nil {
		return fmt.Errorf("find transfer: %w", err)
	}
	if !ok || t.State == store.TransferCompleted {
		return ErrTransferNotFound
	}
	if t.WalletID != walletID {
		return ErrForbidden
	}
	if t.State == store.TransferDeleted {
		return nil
	}

	if err := e.store.MarkTransferDeleted(ctx, transferID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrTransferNotFound
		}
		return fmt.Errorf("delete transfer: %w", err)
	}
	return nil
}

// Get returns transfer details to its owning wallet.
func (e *Engine) Get(ctx context.Context, transferID, walletID string) (store.MoneyTransfer, error) {
	t, ok, err := e.store.FindTransfer(ctx, transferID)
	if err != nil {
		return store.MoneyTransfer{}, fmt.Errorf("find transfer: %w", err)
	}
	if !ok {
		return store.MoneyTransfer{}, ErrTransferNotFound
	}
	if t.WalletID != walletID {
		return store.MoneyTransfer{}, ErrForbidden
	}
	return t, nil
}

// lookupRate resolves a pair rate under a bounded timeout. Provider failure and
// timeout are the same transient condition for the caller.
func (e *Engine) lookupRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, e.rateTimeout)
	defer cancel()

	rate, ok, err := e.rates.Rate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrRateUnavailable, err)
	}
	if !ok {
		return decimal.Decimal{}, ErrUnsupportedCurrencyPair
	}
	return rate, nil
}

func kindOf(t store.MoneyTransfer) Kind {
	switch {
	case t.FromCurrency != "" && t.ToCurrency != "":
		return KindExchange
	case t.FromCurrency != "":
		return KindWithdrawal
	default:
		return KindReplenishment
	}
}

func debit(b store.CurrencyBalance, amount decimal.Decimal) store.BalanceUpdate {
	return store.BalanceUpdate{
		WalletID: b.WalletID,
		Currency: b.Currency,
		Previous: b.Amount,
		Amount:   b.Amount.Sub(amount),
	}
}

func credit(b store.CurrencyBalance, amount decimal.Decimal) store.BalanceUpdate {
	return store.BalanceUpdate{
		WalletID: b.WalletID,
		Currency: b.Currency,
		Previous: b.Amount,
		Amount:   b.Amount.Add(amount),
	}
}

// netExchange debits and credits the same balance row in one update. At rate 1
// the net effect is zero.
func netExchange(b store.CurrencyBalance, amount, rate decimal.Decimal) store.BalanceUpdate {
	return store.BalanceUpdate{
		WalletID: b.WalletID,
		Currency: b.Currency,
		Previous: b.Amount,
		Amount:   b.Amount.Sub(amount).Add(amount.Mul(rate)),
	}
}
