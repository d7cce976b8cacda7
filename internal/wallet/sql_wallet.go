package wallet

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLWallet debits player balances held in a MySQL ledger.  The schema is a
// wallet_accounts table (player_id PK, balance) plus an append-only
// wallet_entries journal.  A debit succeeds only when the account exists and
// covers the amount; both the balance update and the journal row commit in
// one transaction.
type SQLWallet struct {
	db *sql.DB
}

// NewSQLWallet returns a SQLWallet bound to the provided database.
func NewSQLWallet(db *sql.DB) *SQLWallet {
	if db == nil {
		panic("nil database passed to NewSQLWallet")
	}
	return &SQLWallet{db: db}
}

// Debit charges the player atomically.  An unknown player or insufficient
// balance is a clean decline (false, nil); any database failure is returned
// as an error for the caller to treat as a decline.
func (w *SQLWallet) Debit(ctx context.Context, playerID string, amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("debit: negative amount %d", amount)
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("debit: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Conditional update doubles as the balance check; zero rows affected
	// means unknown player or not enough funds.
	res, err := tx.ExecContext(ctx,
		`UPDATE wallet_accounts SET balance = balance - ? WHERE player_id = ? AND balance >= ?`,
		amount, playerID, amount,
	)
	if err != nil {
		return false, fmt.Errorf("debit: update balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_entries (player_id, amount) VALUES (?, ?)`,
		playerID, -amount,
	); err != nil {
		return false, fmt.Errorf("debit: journal insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("debit: commit: %w", err)
	}
	committed = true
	return true, nil
}
