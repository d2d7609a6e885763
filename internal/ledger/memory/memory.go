// Package memory is an in-memory implementation of ledger.Ledger.
//
// One transaction runs at a time. Every write records an undo step so that
// Rollback restores the exact prior state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

// Ledger is an in-memory ledger.
type Ledger struct {
	writer   sync.Mutex
	holdings map[solana.PublicKey]*domain.Holding
	vaults   map[solana.PublicKey]*domain.Vault
	events   []*domain.Event
}

// New creates an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{
		holdings: make(map[solana.PublicKey]*domain.Holding),
		vaults:   make(map[solana.PublicKey]*domain.Vault),
	}
}

var _ ledger.Ledger = (*Ledger)(nil)

// Begin acquires the writer lock and starts a transaction.
func (l *Ledger) Begin(ctx context.Context) (ledger.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.writer.Lock()
	return &tx{l: l}, nil
}

// Close is a no-op.
func (l *Ledger) Close() {}

type tx struct {
	l    *Ledger
	undo []func()
	done bool
}

var _ ledger.Tx = (*tx)(nil)

func (t *tx) active() error {
	if t.done {
		return vaulterr.New(vaulterr.CodeInternal, "transaction already finished")
	}
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if err := t.active(); err != nil {
		return err
	}
	t.done = true
	t.undo = nil
	t.l.writer.Unlock()
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
	t.l.writer.Unlock()
	return nil
}

// setHolding stores h, journaling the previous value.
func (t *tx) setHolding(h *domain.Holding) {
	prev, existed := t.l.holdings[h.Address]
	t.undo = append(t.undo, func() {
		if existed {
			t.l.holdings[h.Address] = prev
		} else {
			delete(t.l.holdings, h.Address)
		}
	})
	t.l.holdings[h.Address] = h
}

func (t *tx) deleteHolding(addr solana.PublicKey) {
	prev, existed := t.l.holdings[addr]
	if !existed {
		return
	}
	t.undo = append(t.undo, func() { t.l.holdings[addr] = prev })
	delete(t.l.holdings, addr)
}

func (t *tx) Holding(_ context.Context, addr solana.PublicKey) (*domain.Holding, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	h, ok := t.l.holdings[addr]
	if !ok {
		return nil, vaulterr.New(vaulterr.CodeNotFound, "holding %s not found", addr)
	}
	c := *h
	return &c, nil
}

func (t *tx) OpenHolding(_ context.Context, authority, asset solana.PublicKey) (*domain.Holding, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	addr, err := address.Holding(authority, asset)
	if err != nil {
		return nil, err
	}
	if h, ok := t.l.holdings[addr]; ok {
		c := *h
		return &c, nil
	}
	h := &domain.Holding{Address: addr, Authority: authority, Asset: asset}
	t.setHolding(h)
	c := *h
	return &c, nil
}

func (t *tx) CloseHolding(ctx context.Context, addr, beneficiary solana.PublicKey) (uint64, error) {
	if err := t.active(); err != nil {
		return 0, err
	}
	h, ok := t.l.holdings[addr]
	if !ok {
		return 0, vaulterr.New(vaulterr.CodeNotFound, "holding %s not found", addr)
	}
	swept := h.Balance
	if swept > 0 {
		if err := t.Transfer(ctx, addr, beneficiary, swept); err != nil {
			return 0, err
		}
	}
	t.deleteHolding(addr)
	return swept, nil
}

func (t *tx) Transfer(_ context.Context, from, to solana.PublicKey, amount uint64) error {
	if err := t.active(); err != nil {
		return err
	}
	src, ok := t.l.holdings[from]
	if !ok {
		return vaulterr.New(vaulterr.CodeNotFound, "source holding %s not found", from)
	}
	dst, ok := t.l.holdings[to]
	if !ok {
		return vaulterr.New(vaulterr.CodeNotFound, "destination holding %s not found", to)
	}
	if !src.Asset.Equals(dst.Asset) {
		return vaulterr.New(vaulterr.CodeWrongMint, "cannot transfer %s into %s holding", src.Asset, dst.Asset)
	}
	if src.Balance < amount {
		return vaulterr.New(vaulterr.CodeInsufficientBalance, "holding %s has %d, need %d", from, src.Balance, amount)
	}
	if from.Equals(to) || amount == 0 {
		return nil
	}
	if dst.Balance+amount < dst.Balance {
		return vaulterr.ErrArithmeticOverflow
	}

	newSrc, newDst := *src, *dst
	newSrc.Balance -= amount
	newDst.Balance += amount
	t.setHolding(&newSrc)
	t.setHolding(&newDst)
	return nil
}

func (t *tx) Credit(_ context.Context, addr solana.PublicKey, amount uint64) error {
	if err := t.active(); err != nil {
		return err
	}
	h, ok := t.l.holdings[addr]
	if !ok {
		return vaulterr.New(vaulterr.CodeNotFound, "holding %s not found", addr)
	}
	if h.Balance+amount < h.Balance {
		return vaulterr.ErrArithmeticOverflow
	}
	c := *h
	c.Balance += amount
	t.setHolding(&c)
	return nil
}

func (t *tx) Vault(_ context.Context, addr solana.PublicKey) (*domain.Vault, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	v, ok := t.l.vaults[addr]
	if !ok {
		return nil, vaulterr.New(vaulterr.CodeNotFound, "vault %s not found", addr)
	}
	return v.Clone(), nil
}

func (t *tx) InsertVault(_ context.Context, v *domain.Vault) error {
	if err := t.active(); err != nil {
		return err
	}
	if _, ok := t.l.vaults[v.Address]; ok {
		return vaulterr.New(vaulterr.CodeAlreadyExists, "vault %s already exists", v.Address)
	}
	t.putVault(v.Clone())
	return nil
}

func (t *tx) UpdateVault(_ context.Context, v *domain.Vault) error {
	if err := t.active(); err != nil {
		return err
	}
	if _, ok := t.l.vaults[v.Address]; !ok {
		return vaulterr.New(vaulterr.CodeNotFound, "vault %s not found", v.Address)
	}
	t.putVault(v.Clone())
	return nil
}

func (t *tx) putVault(v *domain.Vault) {
	prev, existed := t.l.vaults[v.Address]
	t.undo = append(t.undo, func() {
		if existed {
			t.l.vaults[v.Address] = prev
		} else {
			delete(t.l.vaults, v.Address)
		}
	})
	t.l.vaults[v.Address] = v
}

func (t *tx) DeleteVault(_ context.Context, addr solana.PublicKey) error {
	if err := t.active(); err != nil {
		return err
	}
	prev, ok := t.l.vaults[addr]
	if !ok {
		return vaulterr.New(vaulterr.CodeNotFound, "vault %s not found", addr)
	}
	t.undo = append(t.undo, func() { t.l.vaults[addr] = prev })
	delete(t.l.vaults, addr)
	return nil
}

func (t *tx) AppendEvent(_ context.Context, ev *domain.Event) error {
	if err := t.active(); err != nil {
		return err
	}
	n := len(t.l.events)
	c := *ev
	t.undo = append(t.undo, func() { t.l.events = t.l.events[:n] })
	t.l.events = append(t.l.events, &c)
	return nil
}

func (t *tx) Events(_ context.Context, vault solana.PublicKey) ([]*domain.Event, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	var result []*domain.Event
	for _, ev := range t.l.events {
		if ev.Vault.Equals(vault) {
			c := *ev
			result = append(result, &c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].At.Before(result[j].At)
	})
	return result, nil
}
