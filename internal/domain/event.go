package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// EventKind identifies a vault lifecycle event.
type EventKind string

const (
	EventVaultCreated EventKind = "VaultCreated"
	EventSwapExecuted EventKind = "SwapExecuted"
	EventWithdrawn    EventKind = "Withdrawn"
)

// Event is an append-only record of a committed vault operation.
// Events outlive the vault they describe.
type Event struct {
	ID               uuid.UUID
	Vault            solana.PublicKey
	Owner            solana.PublicKey
	Kind             EventKind
	Amount           uint64 // deposit asset moved (deposited, swapped or paid out)
	OutputAmount     uint64 // target asset received by a swap
	Fee              uint64 // early-exit fee on withdraw
	PeriodsCompleted uint16
	NextSwapTime     int64
	EarlyExit        bool
	At               time.Time
}

// NewEvent creates an event with a fresh ID.
func NewEvent(kind EventKind, v *Vault, at time.Time) *Event {
	return &Event{
		ID:               uuid.New(),
		Vault:            v.Address,
		Owner:            v.Owner,
		Kind:             kind,
		PeriodsCompleted: v.PeriodsCompleted,
		NextSwapTime:     v.NextSwapTime,
		At:               at.UTC(),
	}
}
