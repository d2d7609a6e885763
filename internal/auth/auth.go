// Package auth authenticates vault requests and checks that the accounts a
// request names are the ones derived for it.
//
// A request is authenticated by an ed25519 signature of the caller over
//
//	dcavault/v1\n<op>\n<caller>\n<issued_at>\n<digest>
//
// where issued_at is unix seconds and digest is the hex SHA-256 of the
// operation's canonical parameters (see Digest).
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

const messagePrefix = "dcavault/v1"

// DefaultMaxSkew bounds how far IssuedAt may drift from the guard clock.
const DefaultMaxSkew = 2 * time.Minute

// Op names the operation a signature authorizes.
type Op string

const (
	OpInitialize  Op = "initialize"
	OpExecuteSwap Op = "execute_swap"
	OpWithdraw    Op = "withdraw"
)

// Request is the signed envelope carried by every mutating call.
type Request struct {
	Caller    solana.PublicKey
	IssuedAt  time.Time
	Signature solana.Signature
}

// Digest hashes canonical parameters. Parts are joined with newlines.
func Digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// Message returns the bytes a caller signs.
func Message(op Op, caller solana.PublicKey, issuedAt time.Time, digest string) []byte {
	return []byte(strings.Join([]string{
		messagePrefix,
		string(op),
		caller.String(),
		strconv.FormatInt(issuedAt.Unix(), 10),
		digest,
	}, "\n"))
}

// Sign builds a signed Request for op over digest.
func Sign(key solana.PrivateKey, op Op, issuedAt time.Time, digest string) (Request, error) {
	caller := key.PublicKey()
	sig, err := key.Sign(Message(op, caller, issuedAt, digest))
	if err != nil {
		return Request{}, fmt.Errorf("failed to sign request: %w", err)
	}
	return Request{Caller: caller, IssuedAt: time.Unix(issuedAt.Unix(), 0), Signature: sig}, nil
}

// Guard validates callers and account bindings.
type Guard struct {
	now     func() time.Time
	maxSkew time.Duration
}

// NewGuard creates a Guard. A nil clock uses time.Now; a non-positive skew
// uses DefaultMaxSkew.
func NewGuard(now func() time.Time, maxSkew time.Duration) *Guard {
	if now == nil {
		now = time.Now
	}
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &Guard{now: now, maxSkew: maxSkew}
}

// Authenticate verifies that req was signed by its caller for op and digest
// and is fresh.
func (g *Guard) Authenticate(op Op, req Request, digest string) error {
	if req.Caller.IsZero() {
		return vaulterr.New(vaulterr.CodeUnauthorized, "caller is required")
	}
	if req.Signature == (solana.Signature{}) {
		return vaulterr.New(vaulterr.CodeUnauthorized, "caller signature is required")
	}

	skew := g.now().Sub(req.IssuedAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > g.maxSkew {
		return vaulterr.New(vaulterr.CodeUnauthorized, "request issued at %s is outside the allowed window", req.IssuedAt.UTC().Format(time.RFC3339))
	}

	if !req.Signature.Verify(req.Caller, Message(op, req.Caller, req.IssuedAt, digest)) {
		return vaulterr.New(vaulterr.CodeUnauthorized, "invalid signature for %s", req.Caller)
	}
	return nil
}

// Authorize requires caller to own v.
func (g *Guard) Authorize(caller solana.PublicKey, v *domain.Vault) error {
	if !caller.Equals(v.Owner) {
		return vaulterr.New(vaulterr.CodeUnauthorized, "%s is not the owner of vault %s", caller, v.Address)
	}
	return nil
}

// Binding ties a caller-supplied account to the holding it must be.
type Binding struct {
	Name      string
	Supplied  solana.PublicKey // zero means derive it
	Authority solana.PublicKey
	Asset     solana.PublicKey
}

// CheckBindings verifies every binding and returns the resolved addresses
// in the same order.
func (g *Guard) CheckBindings(ctx context.Context, reader ledger.HoldingReader, bindings ...Binding) ([]solana.PublicKey, error) {
	resolved := make([]solana.PublicKey, 0, len(bindings))
	for _, b := range bindings {
		want, err := address.Holding(b.Authority, b.Asset)
		if err != nil {
			return nil, err
		}
		if !b.Supplied.IsZero() && !b.Supplied.Equals(want) {
			return nil, vaulterr.New(vaulterr.CodeWrongAssociatedAccount, "%s %s is not the associated holding %s", b.Name, b.Supplied, want)
		}

		h, err := reader.Holding(ctx, want)
		switch {
		case errors.Is(err, vaulterr.ErrNotFound):
		case err != nil:
			return nil, err
		case !h.Asset.Equals(b.Asset):
			return nil, vaulterr.New(vaulterr.CodeWrongMint, "%s holds %s, expected %s", b.Name, h.Asset, b.Asset)
		}
		resolved = append(resolved, want)
	}
	return resolved, nil
}
