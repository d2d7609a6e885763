// Package exchange executes caller-supplied exchange payloads under a
// limited delegation of custody authority.
//
// The gateway never interprets a payload's routing. It checks that the
// payload targets the configured router and names the expected accounts,
// hands an Executor a Delegation that can spend at most the delegated input,
// and measures what arrived at the destination.
package exchange

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

// Payload is an opaque exchange artifact produced by the routing service.
type Payload struct {
	Target      solana.PublicKey
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Destination solana.PublicKey
	Accounts    []solana.AccountMeta
	RawData     []byte
}

// Delegate describes the authority lent to one payload execution.
type Delegate struct {
	Authority   solana.PublicKey // signs on behalf of the custody holding
	Source      solana.PublicKey // custody holding
	Destination solana.PublicKey // owner's output holding
	MaxInput    uint64
}

// Executor runs an instruction against the ledger through a delegation.
type Executor interface {
	Execute(ctx context.Context, ix *solana.GenericInstruction, d *Delegation) error
}

// Gateway validates payloads and runs them through an Executor.
type Gateway struct {
	router   solana.PublicKey
	executor Executor
}

// NewGateway creates a gateway that only forwards to router.
func NewGateway(router solana.PublicKey, executor Executor) *Gateway {
	return &Gateway{router: router, executor: executor}
}

// Execute runs p inside tx and returns the amount received at the
// destination. Any failure is reported as SwapExecutionFailed, except an
// asset mismatch between the delegated holdings and the payload pair.
func (g *Gateway) Execute(ctx context.Context, tx ledger.Tx, del Delegate, p Payload) (uint64, error) {
	if !p.Target.Equals(g.router) {
		return 0, vaulterr.New(vaulterr.CodeSwapExecutionFailed, "payload targets %s, expected router %s", p.Target, g.router)
	}
	if !hasAccount(p.Accounts, del.Source) || !hasAccount(p.Accounts, del.Destination) {
		return 0, vaulterr.New(vaulterr.CodeSwapExecutionFailed, "payload accounts must include source %s and destination %s", del.Source, del.Destination)
	}

	src, err := tx.Holding(ctx, del.Source)
	if err != nil {
		return 0, failed(err)
	}
	if !src.Asset.Equals(p.InputMint) {
		return 0, vaulterr.New(vaulterr.CodeWrongMint, "source holds %s, payload spends %s", src.Asset, p.InputMint)
	}
	dst, err := tx.Holding(ctx, del.Destination)
	if err != nil {
		return 0, failed(err)
	}
	if !dst.Asset.Equals(p.OutputMint) {
		return 0, vaulterr.New(vaulterr.CodeWrongMint, "destination holds %s, payload delivers %s", dst.Asset, p.OutputMint)
	}
	before := dst.Balance

	d := &Delegation{
		tx:          tx,
		target:      p.Target,
		source:      src,
		destination: del.Destination,
		remaining:   del.MaxInput,
	}
	err = g.executor.Execute(ctx, solana.NewInstruction(p.Target, rebuildAccounts(p.Accounts, del.Authority), p.RawData), d)
	d.revoke()
	if err != nil {
		return 0, failed(err)
	}
	if d.spent != del.MaxInput {
		return 0, vaulterr.New(vaulterr.CodeSwapExecutionFailed, "exchange spent %d of %d delegated", d.spent, del.MaxInput)
	}

	after, err := tx.Holding(ctx, del.Destination)
	if err != nil {
		return 0, failed(err)
	}
	if after.Balance < before {
		return 0, vaulterr.New(vaulterr.CodeSwapExecutionFailed, "destination balance decreased from %d to %d", before, after.Balance)
	}
	return after.Balance - before, nil
}

// rebuildAccounts copies metas so that only authority is a signer.
func rebuildAccounts(accounts []solana.AccountMeta, authority solana.PublicKey) solana.AccountMetaSlice {
	metas := make(solana.AccountMetaSlice, 0, len(accounts))
	for _, acc := range accounts {
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  acc.PublicKey,
			IsWritable: acc.IsWritable,
			IsSigner:   acc.PublicKey.Equals(authority),
		})
	}
	return metas
}

func hasAccount(accounts []solana.AccountMeta, key solana.PublicKey) bool {
	for _, acc := range accounts {
		if acc.PublicKey.Equals(key) {
			return true
		}
	}
	return false
}

func failed(err error) error {
	return &vaulterr.Error{Code: vaulterr.CodeSwapExecutionFailed, Err: err}
}

// Delegation is the limited ledger capability an Executor receives.
// It is revoked as soon as the executor returns.
type Delegation struct {
	tx          ledger.Tx
	target      solana.PublicKey
	source      *domain.Holding
	destination solana.PublicKey
	remaining   uint64
	spent       uint64
	revoked     bool
}

// NewDelegation creates a delegation outside a Gateway, for executor tests.
func NewDelegation(tx ledger.Tx, target solana.PublicKey, source *domain.Holding, destination solana.PublicKey, maxInput uint64) *Delegation {
	return &Delegation{tx: tx, target: target, source: source, destination: destination, remaining: maxInput}
}

func (d *Delegation) revoke() { d.revoked = true }

// Source returns the delegated source holding address.
func (d *Delegation) Source() solana.PublicKey { return d.source.Address }

// InputMint returns the asset the delegation spends.
func (d *Delegation) InputMint() solana.PublicKey { return d.source.Asset }

// Destination returns the holding that must receive the output.
func (d *Delegation) Destination() solana.PublicKey { return d.destination }

// Target returns the program whose holdings may pay out.
func (d *Delegation) Target() solana.PublicKey { return d.target }

// Remaining returns the input still available to spend.
func (d *Delegation) Remaining() uint64 { return d.remaining }

// Spent returns the input spent so far.
func (d *Delegation) Spent() uint64 { return d.spent }

// Spend moves amount out of the source holding. The total spent can never
// exceed the delegated input.
func (d *Delegation) Spend(ctx context.Context, to solana.PublicKey, amount uint64) error {
	if d.revoked {
		return fmt.Errorf("delegation revoked")
	}
	if amount > d.remaining {
		return fmt.Errorf("spend of %d exceeds remaining delegation %d", amount, d.remaining)
	}
	if to.Equals(d.source.Address) {
		return fmt.Errorf("cannot spend into the source holding")
	}
	if err := d.tx.Transfer(ctx, d.source.Address, to, amount); err != nil {
		return err
	}
	d.remaining -= amount
	d.spent += amount
	return nil
}

// Pay moves amount out of a holding controlled by the target program.
func (d *Delegation) Pay(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if d.revoked {
		return fmt.Errorf("delegation revoked")
	}
	h, err := d.tx.Holding(ctx, from)
	if err != nil {
		return err
	}
	if !h.Authority.Equals(d.target) {
		return fmt.Errorf("holding %s is not controlled by %s", from, d.target)
	}
	return d.tx.Transfer(ctx, from, to, amount)
}

// Pool opens, or returns, the target program's holding for asset.
func (d *Delegation) Pool(ctx context.Context, asset solana.PublicKey) (*domain.Holding, error) {
	if d.revoked {
		return nil, fmt.Errorf("delegation revoked")
	}
	return d.tx.OpenHolding(ctx, d.target, asset)
}
