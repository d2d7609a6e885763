// Package ledger defines the custody ledger: holding accounts, vault records
// and the transaction boundary every vault operation runs inside.
//
// All mutation goes through a Tx. A Tx either commits every change it made
// or none of them; Rollback after Commit is a no-op, so callers can always
// defer it.
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/domain"
)

// Ledger opens transactions against a backing store.
type Ledger interface {
	// Begin starts a transaction. Operations touching the same vault are
	// serialized: a second Begin that conflicts waits for the first to end.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the backing store.
	Close()
}

// HoldingReader reads holding accounts.
type HoldingReader interface {
	// Holding returns the holding at addr. Returns vaulterr.ErrNotFound if absent.
	Holding(ctx context.Context, addr solana.PublicKey) (*domain.Holding, error)
}

// Tx is a single atomic unit of ledger work.
type Tx interface {
	HoldingReader

	// OpenHolding creates the associated holding for (authority, asset), or
	// returns the existing one.
	OpenHolding(ctx context.Context, authority, asset solana.PublicKey) (*domain.Holding, error)

	// CloseHolding sweeps any balance to beneficiary and removes the holding.
	// Returns the swept amount.
	CloseHolding(ctx context.Context, addr, beneficiary solana.PublicKey) (uint64, error)

	// Transfer moves amount between holdings of the same asset.
	// Fails with InsufficientBalance, WrongMint or NotFound.
	Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error

	// Credit issues amount into an existing holding.
	Credit(ctx context.Context, addr solana.PublicKey, amount uint64) error

	// Vault returns the vault record at addr. Returns vaulterr.ErrNotFound if absent.
	Vault(ctx context.Context, addr solana.PublicKey) (*domain.Vault, error)

	// InsertVault stores a new vault. Returns vaulterr.ErrAlreadyExists on collision.
	InsertVault(ctx context.Context, v *domain.Vault) error

	// UpdateVault replaces the mutable fields of an existing vault.
	UpdateVault(ctx context.Context, v *domain.Vault) error

	// DeleteVault removes the vault record.
	DeleteVault(ctx context.Context, addr solana.PublicKey) error

	// AppendEvent records a lifecycle event.
	AppendEvent(ctx context.Context, ev *domain.Event) error

	// Events returns the events of a vault ordered by time.
	Events(ctx context.Context, vault solana.PublicKey) ([]*domain.Event, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Run executes fn inside a transaction, committing on success and rolling
// back on any error or panic.
func Run(ctx context.Context, l Ledger, fn func(tx Tx) error) (err error) {
	tx, err := l.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
