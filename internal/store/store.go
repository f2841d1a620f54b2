package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrConflict occurs when a state-guarded update finds the entity no longer
	// in the expected state, e.g. two confirmations racing on one transfer or a
	// balance written from a stale snapshot.
	ErrConflict = errors.New("store: conflicting concurrent update")

	// ErrDuplicateBalance indicates an attempt to insert a second balance record
	// for the same (wallet, currency) pair.
	ErrDuplicateBalance = errors.New("store: duplicate currency balance")
)

// TransferState is the lifecycle state of a money transfer.
type TransferState string

const (
	// TransferActive marks a created transfer awaiting confirmation.
	TransferActive TransferState = "active"
	// TransferCompleted marks a confirmed transfer whose monetary effect has been applied.
	TransferCompleted TransferState = "completed"
	// TransferDeleted marks a cancelled transfer. Terminal, balances untouched.
	TransferDeleted TransferState = "deleted"
)

// Wallet is a container of per-currency balances.
type Wallet struct {
	ID        string
	Balances  []CurrencyBalance
	CreatedAt time.Time
}

// CurrencyBalance holds the amount of one currency owned by one wallet. The
// wallet reference is an identifier only; resolving it is an explicit lookup.
type CurrencyBalance struct {
	WalletID string
	Currency string
	Amount   decimal.Decimal
}

// MoneyTransfer records an intent to move value into, out of, or between
// currencies within a single wallet. FromCurrency and ToCurrency use the empty
// string for "absent"; the engine guarantees at least one is set.
type MoneyTransfer struct {
	ID           string
	WalletID     string
	FromCurrency string
	ToCurrency   string
	Amount       decimal.Decimal
	Rate         *decimal.Decimal
	State        TransferState
	CreatedAt    time.Time
}

// TransferWithBalances is a transfer with its source and destination balance
// records resolved. A nil balance means no record exists for that currency.
type TransferWithBalances struct {
	Transfer MoneyTransfer
	From     *CurrencyBalance
	To       *CurrencyBalance
}

// BalanceUpdate describes an absolute balance write guarded by the value the
// caller observed. The store must refuse the write when the stored amount no
// longer equals Previous.
type BalanceUpdate struct {
	WalletID string
	Currency string
	Previous decimal.Decimal
	Amount   decimal.Decimal
}

// Store persists wallets, currency balances and money transfers. Mutating
// operations commit atomically: either every pending insert and update lands or
// none does.
type Store interface {
	// CreateWallet inserts a new empty wallet. The identifier is assigned as
	// part of the commit and never exposed before the insert succeeds.
	CreateWallet(ctx context.Context) (Wallet, error)
	// WalletExists reports whether a wallet with the given id is stored.
	WalletExists(ctx context.Context, walletID string) (bool, error)
	// FindWallet returns a wallet with all its balance records.
	FindWallet(ctx context.Context, walletID string) (Wallet, bool, error)
	// FindBalance returns the balance record for (wallet, currency).
	FindBalance(ctx context.Context, walletID, currency string) (CurrencyBalance, bool, error)
	// HasCurrency reports whether the wallet holds a balance record for currency.
	HasCurrency(ctx context.Context, walletID, currency string) (bool, error)

	// FindTransfer returns a transfer by id.
	FindTransfer(ctx context.Context, id string) (MoneyTransfer, bool, error)
	// FindTransferWithBalances returns a transfer with its currency balance
	// links eagerly resolved.
	FindTransferWithBalances(ctx context.Context, id string) (TransferWithBalances, bool, error)

	// CreateTransfer inserts the transfer in its initial state together with an
	// optional zero-balance placeholder for the destination currency, as one
	// commit. The returned transfer carries the assigned identifier.
	CreateTransfer(ctx context.Context, t MoneyTransfer, placeholder *CurrencyBalance) (MoneyTransfer, error)
	// CompleteTransfer flips the transfer from active to completed, records the
	// final rate and applies the balance updates, as one commit. Returns
	// ErrConflict if the transfer is no longer active or any balance drifted
	// from its Previous value.
	CompleteTransfer(ctx context.Context, t MoneyTransfer, updates []BalanceUpdate) error
	// MarkTransferDeleted flips an active transfer to deleted. Returns
	// ErrConflict if the transfer is no longer active.
	MarkTransferDeleted(ctx context.Context, id string) error
}
