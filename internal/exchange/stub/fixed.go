// Package stub provides a deterministic exchange for local runs and tests.
package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/exchange"
)

// FixedRate fills every swap at out = in * Num / Den. Output is paid from
// the target program's pool holding for OutputMint, which must be funded.
type FixedRate struct {
	Num        uint64
	Den        uint64
	OutputMint solana.PublicKey

	// Fail, when set, is returned after the input has been spent so tests
	// can observe the rollback of a half-executed swap.
	Fail error
}

var _ exchange.Executor = (*FixedRate)(nil)

// Quote returns the output for in.
func (f *FixedRate) Quote(in uint64) (uint64, error) {
	if f.Den == 0 {
		return 0, errors.New("fixed rate denominator is zero")
	}
	out := new(big.Int).Mul(new(big.Int).SetUint64(in), new(big.Int).SetUint64(f.Num))
	out.Quo(out, new(big.Int).SetUint64(f.Den))
	if !out.IsUint64() {
		return 0, fmt.Errorf("quote for %d overflows", in)
	}
	return out.Uint64(), nil
}

// Execute spends the whole delegation into the input pool and pays the
// quoted output to the destination.
func (f *FixedRate) Execute(ctx context.Context, ix *solana.GenericInstruction, d *exchange.Delegation) error {
	if !ix.ProgramID().Equals(d.Target()) {
		return fmt.Errorf("instruction targets %s", ix.ProgramID())
	}
	in := d.Remaining()
	if in == 0 {
		return errors.New("nothing delegated")
	}
	out, err := f.Quote(in)
	if err != nil {
		return err
	}

	inPool, err := d.Pool(ctx, d.InputMint())
	if err != nil {
		return fmt.Errorf("open input pool: %w", err)
	}
	if err := d.Spend(ctx, inPool.Address, in); err != nil {
		return fmt.Errorf("spend input: %w", err)
	}
	if f.Fail != nil {
		return f.Fail
	}

	outPool, err := d.Pool(ctx, f.OutputMint)
	if err != nil {
		return fmt.Errorf("open output pool: %w", err)
	}
	if err := d.Pay(ctx, outPool.Address, d.Destination(), out); err != nil {
		return fmt.Errorf("pay output: %w", err)
	}
	return nil
}
