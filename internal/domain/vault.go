package domain

import "github.com/gagliardetto/solana-go"

// Vault is the per-owner custody and schedule record.
// One vault exists per owner; its address is derived from the owner key.
type Vault struct {
	Address solana.PublicKey
	Bump    uint8 // derivation nonce of Address

	Owner           solana.PublicKey
	DepositMint     solana.PublicKey
	OutputMint      solana.PublicKey
	Custody         solana.PublicKey // holding account owned by the vault
	TotalAmount     uint64
	Periods         uint16
	IntervalSeconds uint64
	CreatedAt       int64 // unix seconds

	CurrBalance         uint64
	PeriodsCompleted    uint16
	NextSwapTime        int64 // unix seconds
	TotalOutputReceived uint64
}

// SliceAmount is the size of one scheduled tranche.
func (v *Vault) SliceAmount() uint64 {
	if v.Periods == 0 {
		return 0
	}
	return v.TotalAmount / uint64(v.Periods)
}

// Complete reports whether every scheduled period has been swapped.
func (v *Vault) Complete() bool {
	return v.PeriodsCompleted >= v.Periods
}

// Clone returns a copy safe to mutate.
func (v *Vault) Clone() *Vault {
	c := *v
	return &c
}
