package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists wallets, balances and transfers in PostgreSQL.
//
// Expected schema:
//
//	wallets   (id uuid primary key, created_at timestamptz)
//	balances  (wallet_id uuid references wallets, currency text, amount numeric,
//	           primary key (wallet_id, currency))
//	transfers (id uuid primary key, wallet_id uuid references wallets,
//	           from_currency text, to_currency text, amount numeric,
//	           rate numeric, state text, created_at timestamptz)
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres builds a store backed by PostgreSQL.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts an empty wallet row.
func (s *PostgresStore) CreateWallet(ctx context.Context) (Wallet, error) {
	id := uuid.New()
	createdAt := time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, created_at) VALUES ($1, $2)`, id, createdAt)
	if err != nil {
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	return Wallet{ID: id.String(), CreatedAt: createdAt}, nil
}

// WalletExists checks for a wallet row with the given id.
func (s *PostgresStore) WalletExists(ctx context.Context, walletID string) (bool, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindWallet fetches a wallet together with all its balance records.
func (s *PostgresStore) FindWallet(ctx context.Context, walletID string) (Wallet, bool, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, false, nil
	}
	var w Wallet
	var idVal uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT id, created_at FROM wallets WHERE id = $1`, id).Scan(&idVal, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, false, nil
	}
	if err != nil {
		return Wallet{}, false, err
	}
	w.ID = idVal.String()
	w.CreatedAt = w.CreatedAt.UTC()

	rows, err := s.db.Query(ctx, `SELECT currency, amount FROM balances WHERE wallet_id = $1 ORDER BY currency`, id)
	if err != nil {
		return Wallet{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		b := CurrencyBalance{WalletID: w.ID}
		if err := rows.Scan(&b.Currency, &b.Amount); err != nil {
			return Wallet{}, false, err
		}
		w.Balances = append(w.Balances, b)
	}
	if err := rows.Err(); err != nil {
		return Wallet{}, false, err
	}
	return w, true, nil
}

// FindBalance fetches a single (wallet, currency) balance record.
func (s *PostgresStore) FindBalance(ctx context.Context, walletID, currency string) (CurrencyBalance, bool, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return CurrencyBalance{}, false, nil
	}
	b := CurrencyBalance{WalletID: walletID, Currency: currency}
	err = s.db.QueryRow(ctx, `SELECT amount FROM balances WHERE wallet_id = $1 AND currency = $2`, id, currency).Scan(&b.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return CurrencyBalance{}, false, nil
	}
	if err != nil {
		return CurrencyBalance{}, false, err
	}
	return b, true, nil
}

// HasCurrency reports whether the wallet already holds the currency.
func (s *PostgresStore) HasCurrency(ctx context.Context, walletID, currency string) (bool, error) {
	_, ok, err := s.FindBalance(ctx, walletID, currency)
	return ok, err
}

// FindTransfer fetches a transfer row by id.
func (s *PostgresStore) FindTransfer(ctx context.Context, id string) (MoneyTransfer, bool, error) {
	transferID, err := uuid.Parse(id)
	if err != nil {
		return MoneyTransfer{}, false, nil
	}
	t, err := scanTransfer(s.db.QueryRow(ctx, `SELECT id, wallet_id, from_currency, to_currency, amount, rate, state, created_at
        FROM transfers WHERE id = $1`, transferID))
	if errors.Is(err, pgx.ErrNoRows) {
		return MoneyTransfer{}, false, nil
	}
	if err != nil {
		return MoneyTransfer{}, false, err
	}
	return t, true, nil
}

// FindTransferWithBalances fetches a transfer and resolves its balance links.
func (s *PostgresStore) FindTransferWithBalances(ctx context.Context, id string) (TransferWithBalances, bool, error) {
	t, ok, err := s.FindTransfer(ctx, id)
	if err != nil || !ok {
		return TransferWithBalances{}, ok, err
	}
	twb := TransferWithBalances{Transfer: t}
	if t.FromCurrency != "" {
		if b, ok, err := s.FindBalance(ctx, t.WalletID, t.FromCurrency); err != nil {
			return TransferWithBalances{}, false, err
		} else if ok {
			twb.From = &b
		}
	}
	if t.ToCurrency != "" {
		if b, ok, err := s.FindBalance(ctx, t.WalletID, t.ToCurrency); err != nil {
			return TransferWithBalances{}, false, err
		} else if ok {
			twb.To = &b
		}
	}
	return twb, true, nil
}

// CreateTransfer inserts the transfer row and, when provided, the zero-balance
// placeholder for the destination currency within one transaction.
func (s *PostgresStore) CreateTransfer(ctx context.Context, t MoneyTransfer, placeholder *CurrencyBalance) (MoneyTransfer, error) {
	walletID, err := uuid.Parse(t.WalletID)
	if err != nil {
		return MoneyTransfer{}, fmt.Errorf("invalid wallet id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return MoneyTransfer{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx, `INSERT INTO transfers (id, wallet_id, from_currency, to_currency, amount, rate, state, created_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)`,
		t.ID, walletID, t.FromCurrency, t.ToCurrency, t.Amount, t.Rate, string(t.State), t.CreatedAt); err != nil {
		return MoneyTransfer{}, fmt.Errorf("insert transfer: %w", err)
	}

	if placeholder != nil {
		_, err := tx.Exec(ctx, `INSERT INTO balances (wallet_id, currency, amount) VALUES ($1, $2, $3)`,
			walletID, placeholder.Currency, decimal.Zero)
		if isUniqueViolation(err) {
			return MoneyTransfer{}, ErrDuplicateBalance
		}
		if err != nil {
			return MoneyTransfer{}, fmt.Errorf("insert balance placeholder: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return MoneyTransfer{}, err
	}
	return t, nil
}

// CompleteTransfer applies the confirmed transfer atomically. The transfer row
// update is guarded on the active state and every balance write is guarded on
// the amount the engine observed, so a concurrent confirmation or a drifted
// balance aborts the whole commit with ErrConflict.
func (s *PostgresStore) CompleteTransfer(ctx context.Context, t MoneyTransfer, updates []BalanceUpdate) error {
	transferID, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("invalid transfer id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `UPDATE transfers SET state = $1, rate = $2 WHERE id = $3 AND state = $4`,
		string(TransferCompleted), t.Rate, transferID, string(TransferActive))
	if err != nil {
		return fmt.Errorf("complete transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	for _, u := range updates {
		walletID, err := uuid.Parse(u.WalletID)
		if err != nil {
			return fmt.Errorf("invalid wallet id: %w", err)
		}
		tag, err := tx.Exec(ctx, `UPDATE balances SET amount = $1 WHERE wallet_id = $2 AND currency = $3 AND amount = $4`,
			u.Amount, walletID, u.Currency, u.Previous)
		if err != nil {
			return fmt.Errorf("update balance %s: %w", u.Currency, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConflict
		}
	}

	return tx.Commit(ctx)
}

// MarkTransferDeleted flips an active transfer to deleted.
func (s *PostgresStore) MarkTransferDeleted(ctx context.Context, id string) error {
	transferID, err := uuid.Parse(id)
	if err != nil {
		return ErrConflict
	}
	tag, err := s.db.Exec(ctx, `UPDATE transfers SET state = $1 WHERE id = $2 AND state = $3`,
		string(TransferDeleted), transferID, string(TransferActive))
	if err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func scanTransfer(row pgx.Row) (MoneyTransfer, error) {
	var t MoneyTransfer
	var id, walletID uuid.UUID
	var from, to *string
	if err := row.Scan(&id, &walletID, &from, &to, &t.Amount, &t.Rate, &t.State, &t.CreatedAt); err != nil {
		return MoneyTransfer{}, err
	}
	t.ID = id.String()
	t.WalletID = walletID.String()
	if from != nil {
		t.FromCurrency = *from
	}
	if to != nil {
		t.ToCurrency = *to
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
