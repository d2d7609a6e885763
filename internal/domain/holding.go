package domain

import "github.com/gagliardetto/solana-go"

// Holding is a balance container for one asset under one authority.
type Holding struct {
	Address   solana.PublicKey
	Authority solana.PublicKey
	Asset     solana.PublicKey
	Balance   uint64
}
