// Package address derives the deterministic keys under which vaults and
// holdings are stored. Derivation is pure: the same inputs always yield the
// same key, and a vault key can never collide with a signing key because
// derived keys are off the ed25519 curve.
package address

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const treasurySeed = "treasury"

// Deriver derives keys in a namespace (program ID plus seed prefix).
type Deriver struct {
	programID solana.PublicKey
	seed      []byte
}

// NewDeriver creates a Deriver for the given namespace.
func NewDeriver(programID solana.PublicKey, seed string) (*Deriver, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if seed == "" {
		return nil, fmt.Errorf("seed is required")
	}
	return &Deriver{programID: programID, seed: []byte(seed)}, nil
}

// ProgramID returns the namespace program ID.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// Vault returns the vault key for owner and its derivation nonce.
func (d *Deriver) Vault(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	key, bump, err := solana.FindProgramAddress([][]byte{d.seed, owner[:]}, d.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive vault address: %w", err)
	}
	return key, bump, nil
}

// Treasury returns the namespace's default fee-sink authority.
func (d *Deriver) Treasury() (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress([][]byte{d.seed, []byte(treasurySeed)}, d.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive treasury address: %w", err)
	}
	return key, nil
}

// Holding returns the associated holding key for (authority, asset).
func Holding(authority, asset solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindAssociatedTokenAddress(authority, asset)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find associated holding address: %w", err)
	}
	return key, nil
}

// MustHolding is Holding for inputs known to be valid.
func MustHolding(authority, asset solana.PublicKey) solana.PublicKey {
	key, err := Holding(authority, asset)
	if err != nil {
		panic(err)
	}
	return key
}
