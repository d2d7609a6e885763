// Package ledgertest holds behavior tests shared by every ledger backend.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

var (
	usdc = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	wsol = solana.WrappedSol
)

// Run executes the shared suite against ledgers built by newLedger.
// newLedger must return an empty ledger on every call.
func Run(t *testing.T, newLedger func(t *testing.T) ledger.Ledger) {
	t.Run("OpenHoldingIsIdempotent", func(t *testing.T) { testOpenHoldingIdempotent(t, newLedger(t)) })
	t.Run("TransferMovesBalance", func(t *testing.T) { testTransfer(t, newLedger(t)) })
	t.Run("TransferRejectsOverdraft", func(t *testing.T) { testOverdraft(t, newLedger(t)) })
	t.Run("TransferRejectsAssetMismatch", func(t *testing.T) { testAssetMismatch(t, newLedger(t)) })
	t.Run("RollbackDiscardsEverything", func(t *testing.T) { testRollback(t, newLedger(t)) })
	t.Run("CloseHoldingSweepsResidue", func(t *testing.T) { testCloseHolding(t, newLedger(t)) })
	t.Run("VaultLifecycle", func(t *testing.T) { testVaultLifecycle(t, newLedger(t)) })
	t.Run("EventsOrdered", func(t *testing.T) { testEvents(t, newLedger(t)) })
}

func fund(t *testing.T, l ledger.Ledger, authority, asset solana.PublicKey, amount uint64) *domain.Holding {
	t.Helper()
	ctx := context.Background()

	var h *domain.Holding
	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		var err error
		h, err = tx.OpenHolding(ctx, authority, asset)
		if err != nil {
			return err
		}
		if amount == 0 {
			return nil
		}
		return tx.Credit(ctx, h.Address, amount)
	})
	require.NoError(t, err)
	h.Balance += amount
	return h
}

func balance(t *testing.T, l ledger.Ledger, addr solana.PublicKey) uint64 {
	t.Helper()
	ctx := context.Background()

	var b uint64
	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		h, err := tx.Holding(ctx, addr)
		if err != nil {
			return err
		}
		b = h.Balance
		return nil
	})
	require.NoError(t, err)
	return b
}

func testOpenHoldingIdempotent(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	first := fund(t, l, owner, usdc, 10)

	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		again, err := tx.OpenHolding(ctx, owner, usdc)
		require.NoError(t, err)
		assert.Equal(t, first.Address, again.Address)
		assert.Equal(t, uint64(10), again.Balance)
		assert.Equal(t, owner, again.Authority)
		assert.Equal(t, usdc, again.Asset)
		return nil
	})
	require.NoError(t, err)
}

func testTransfer(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	a := fund(t, l, solana.NewWallet().PublicKey(), usdc, 1_000)
	b := fund(t, l, solana.NewWallet().PublicKey(), usdc, 0)

	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, a.Address, b.Address, 400)
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(600), balance(t, l, a.Address))
	assert.Equal(t, uint64(400), balance(t, l, b.Address))
}

func testOverdraft(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	a := fund(t, l, solana.NewWallet().PublicKey(), usdc, 100)
	b := fund(t, l, solana.NewWallet().PublicKey(), usdc, 0)

	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, a.Address, b.Address, 101)
	})
	require.ErrorIs(t, err, vaulterr.ErrInsufficientBalance)

	assert.Equal(t, uint64(100), balance(t, l, a.Address))
	assert.Equal(t, uint64(0), balance(t, l, b.Address))
}

func testAssetMismatch(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	a := fund(t, l, owner, usdc, 100)
	b := fund(t, l, owner, wsol, 0)

	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, a.Address, b.Address, 1)
	})
	require.ErrorIs(t, err, vaulterr.ErrWrongMint)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error {
		return tx.Transfer(ctx, a.Address, solana.NewWallet().PublicKey(), 1)
	})
	require.ErrorIs(t, err, vaulterr.ErrNotFound)
}

func testRollback(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	a := fund(t, l, owner, usdc, 500)
	b := fund(t, l, solana.NewWallet().PublicKey(), usdc, 0)
	v := sampleVault(owner)

	tx, err := l.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Transfer(ctx, a.Address, b.Address, 200))
	require.NoError(t, tx.InsertVault(ctx, v))
	require.NoError(t, tx.AppendEvent(ctx, domain.NewEvent(domain.EventVaultCreated, v, time.Now())))
	_, err = tx.OpenHolding(ctx, v.Address, usdc)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "second rollback is a no-op")

	assert.Equal(t, uint64(500), balance(t, l, a.Address))
	assert.Equal(t, uint64(0), balance(t, l, b.Address))

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error {
		_, err := tx.Vault(ctx, v.Address)
		assert.ErrorIs(t, err, vaulterr.ErrNotFound)

		events, err := tx.Events(ctx, v.Address)
		require.NoError(t, err)
		assert.Empty(t, events)
		return nil
	})
	require.NoError(t, err)
}

func testCloseHolding(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	custody := fund(t, l, solana.NewWallet().PublicKey(), usdc, 75)
	beneficiary := fund(t, l, solana.NewWallet().PublicKey(), usdc, 25)

	var swept uint64
	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		var err error
		swept, err = tx.CloseHolding(ctx, custody.Address, beneficiary.Address)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(75), swept)
	assert.Equal(t, uint64(100), balance(t, l, beneficiary.Address))

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error {
		_, err := tx.Holding(ctx, custody.Address)
		return err
	})
	require.ErrorIs(t, err, vaulterr.ErrNotFound)
}

func testVaultLifecycle(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	v := sampleVault(solana.NewWallet().PublicKey())

	err := ledger.Run(ctx, l, func(tx ledger.Tx) error { return tx.InsertVault(ctx, v) })
	require.NoError(t, err)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error { return tx.InsertVault(ctx, v) })
	require.ErrorIs(t, err, vaulterr.ErrAlreadyExists)

	updated := v.Clone()
	updated.CurrBalance = 800_000
	updated.PeriodsCompleted = 1
	updated.NextSwapTime += int64(v.IntervalSeconds)
	updated.TotalOutputReceived = 1_333
	err = ledger.Run(ctx, l, func(tx ledger.Tx) error { return tx.UpdateVault(ctx, updated) })
	require.NoError(t, err)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error {
		got, err := tx.Vault(ctx, v.Address)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
		return nil
	})
	require.NoError(t, err)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error { return tx.DeleteVault(ctx, v.Address) })
	require.NoError(t, err)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error {
		_, err := tx.Vault(ctx, v.Address)
		return err
	})
	require.ErrorIs(t, err, vaulterr.ErrNotFound)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error { return tx.UpdateVault(ctx, updated) })
	require.ErrorIs(t, err, vaulterr.ErrNotFound)
}

func testEvents(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	v := sampleVault(solana.NewWallet().PublicKey())
	other := sampleVault(solana.NewWallet().PublicKey())
	base := time.Unix(1_700_000_000, 0).UTC()

	created := domain.NewEvent(domain.EventVaultCreated, v, base)
	created.Amount = v.TotalAmount
	swapped := domain.NewEvent(domain.EventSwapExecuted, v, base.Add(2*time.Second))
	swapped.Amount = 200_000
	swapped.OutputAmount = 1_333

	err := ledger.Run(ctx, l, func(tx ledger.Tx) error {
		if err := tx.AppendEvent(ctx, swapped); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, domain.NewEvent(domain.EventVaultCreated, other, base)); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, created)
	})
	require.NoError(t, err)

	err = ledger.Run(ctx, l, func(tx ledger.Tx) error {
		events, err := tx.Events(ctx, v.Address)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, created.ID, events[0].ID)
		assert.Equal(t, domain.EventVaultCreated, events[0].Kind)
		assert.Equal(t, swapped.ID, events[1].ID)
		assert.Equal(t, uint64(1_333), events[1].OutputAmount)
		return nil
	})
	require.NoError(t, err)
}

func sampleVault(owner solana.PublicKey) *domain.Vault {
	return &domain.Vault{
		Address:         solana.NewWallet().PublicKey(),
		Bump:            254,
		Owner:           owner,
		DepositMint:     usdc,
		OutputMint:      wsol,
		Custody:         solana.NewWallet().PublicKey(),
		TotalAmount:     1_000_000,
		Periods:         5,
		IntervalSeconds: 2,
		CreatedAt:       1_700_000_000,
		CurrBalance:     1_000_000,
		NextSwapTime:    1_700_000_002,
	}
}
