package domain

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestVault_SliceAmount(t *testing.T) {
	v := &Vault{TotalAmount: 1_000_000, Periods: 5}
	assert.Equal(t, uint64(200_000), v.SliceAmount())

	v = &Vault{TotalAmount: 1_000_001, Periods: 3}
	assert.Equal(t, uint64(333_333), v.SliceAmount())

	v = &Vault{TotalAmount: 10}
	assert.Zero(t, v.SliceAmount())
}

func TestVault_Complete(t *testing.T) {
	v := &Vault{Periods: 2, PeriodsCompleted: 1}
	assert.False(t, v.Complete())

	v.PeriodsCompleted = 2
	assert.True(t, v.Complete())
}

func TestVault_CloneIsIndependent(t *testing.T) {
	v := &Vault{CurrBalance: 10}
	c := v.Clone()
	c.CurrBalance = 5

	assert.Equal(t, uint64(10), v.CurrBalance)
}

func TestNewEvent(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	v := &Vault{Address: solana.NewWallet().PublicKey(), Owner: owner, PeriodsCompleted: 2, NextSwapTime: 42}
	at := time.Unix(1_700_000_000, 0)

	ev := NewEvent(EventSwapExecuted, v, at)
	other := NewEvent(EventSwapExecuted, v, at)

	assert.Equal(t, owner, ev.Owner)
	assert.Equal(t, v.Address, ev.Vault)
	assert.Equal(t, uint16(2), ev.PeriodsCompleted)
	assert.Equal(t, int64(42), ev.NextSwapTime)
	assert.True(t, ev.At.Equal(at))
	assert.NotEqual(t, ev.ID, other.ID)
}
