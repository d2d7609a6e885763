package vault

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
)

// Every request carries Sequence, the number of events recorded for the
// owner's vault address when it was signed. Each committed operation appends
// an event, so a signature is accepted at most once.

// InitializeRequest opens a vault for the caller.
type InitializeRequest struct {
	Auth            auth.Request
	Sequence        uint64
	OwnerDeposit    solana.PublicKey // optional; derived when zero
	TotalAmount     uint64
	Periods         uint16
	IntervalSeconds uint64
}

// Digest returns the canonical parameter hash the caller signs.
func (r InitializeRequest) Digest() string {
	return auth.Digest(
		strconv.FormatUint(r.Sequence, 10),
		r.OwnerDeposit.String(),
		strconv.FormatUint(r.TotalAmount, 10),
		strconv.FormatUint(uint64(r.Periods), 10),
		strconv.FormatUint(r.IntervalSeconds, 10),
	)
}

// SwapRequest executes one scheduled tranche of owner's vault.
type SwapRequest struct {
	Auth     auth.Request
	Sequence uint64
	Owner    solana.PublicKey
	Amount  uint64
	Payload exchange.Payload
}

// Digest returns the canonical parameter hash the caller signs.
func (r SwapRequest) Digest() string {
	parts := []string{
		strconv.FormatUint(r.Sequence, 10),
		r.Owner.String(),
		strconv.FormatUint(r.Amount, 10),
		r.Payload.Target.String(),
		r.Payload.InputMint.String(),
		r.Payload.OutputMint.String(),
		r.Payload.Destination.String(),
	}
	for _, acc := range r.Payload.Accounts {
		parts = append(parts, fmt.Sprintf("%s:%t:%t", acc.PublicKey, acc.IsSigner, acc.IsWritable))
	}
	parts = append(parts, base64.StdEncoding.EncodeToString(r.Payload.RawData))
	return auth.Digest(parts...)
}

// WithdrawRequest closes owner's vault and pays out the remainder.
type WithdrawRequest struct {
	Auth        auth.Request
	Sequence    uint64
	Owner       solana.PublicKey
	Destination solana.PublicKey // optional; derived when zero
}

// Digest returns the canonical parameter hash the caller signs.
func (r WithdrawRequest) Digest() string {
	return auth.Digest(strconv.FormatUint(r.Sequence, 10), r.Owner.String(), r.Destination.String())
}

// SwapResult is the outcome of a committed swap.
type SwapResult struct {
	Vault    *domain.Vault
	Received uint64
}

// WithdrawResult is the outcome of a committed withdrawal.
type WithdrawResult struct {
	Vault       solana.PublicKey
	Destination solana.PublicKey
	Payout      uint64
	Fee         uint64
	FeeSink     solana.PublicKey // authority credited with Fee
	EarlyExit   bool
}
