package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient reads on-chain balances of an owner wallet
type SolanaClient struct {
	rpcClient *rpc.Client
}

// NewSolanaClient creates a new Solana RPC client
func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{rpcClient: rpc.New(rpcURL)}
}

// TokenBalance is the balance of one associated token account
type TokenBalance struct {
	Mint    solana.PublicKey
	Account solana.PublicKey
	Amount  uint64 // base units
	Exists  bool
}

// WalletBalance is the SOL and token balance of a wallet
type WalletBalance struct {
	Owner    solana.PublicKey
	Lamports uint64
	Tokens   []TokenBalance
}

// GetBalance gets SOL (lamports) and the associated token balances of owner for mints
func (c *SolanaClient) GetBalance(ctx context.Context, owner solana.PublicKey, mints ...solana.PublicKey) (*WalletBalance, error) {
	bal, err := c.rpcClient.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get SOL balance: %w", err)
	}

	out := &WalletBalance{Owner: owner, Lamports: bal.Value}
	for _, mint := range mints {
		tb, err := c.getTokenBalance(ctx, owner, mint)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s balance: %w", mint, err)
		}
		out.Tokens = append(out.Tokens, tb)
	}
	return out, nil
}

func (c *SolanaClient) getTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (TokenBalance, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return TokenBalance{}, fmt.Errorf("failed to find associated token account address: %w", err)
	}
	tb := TokenBalance{Mint: mint, Account: ata}

	balance, err := c.rpcClient.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		if isATANotFoundError(err) {
			return tb, nil
		}
		return TokenBalance{}, fmt.Errorf("failed to get token account balance: %w", err)
	}
	tb.Exists = true
	if balance.Value == nil {
		return tb, nil
	}

	tb.Amount, err = strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return TokenBalance{}, fmt.Errorf("failed to parse token balance amount: %w", err)
	}
	return tb, nil
}

// isATANotFoundError checks if error indicates that token account doesn't exist
func isATANotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "could not find account") ||
		strings.Contains(errStr, "not found")
}
