package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/exchange"
)

const (
	jupiterAPI = "https://quote-api.jup.ag/v6"
)

// JupiterClient client for the Jupiter routing API
type JupiterClient struct {
	baseURL string
	client  *http.Client
}

// NewJupiterClient creates a new Jupiter client. An empty baseURL uses the public API.
func NewJupiterClient(baseURL string) *JupiterClient {
	if baseURL == "" {
		baseURL = jupiterAPI
	}
	return &JupiterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Quote is an exact-in route quote. Raw is echoed back to /swap-instructions.
type Quote struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	InAmount    uint64
	OutAmount   uint64
	MinOut      uint64 // otherAmountThreshold after slippage
	SlippageBPS uint16
	Raw         json.RawMessage
}

type quoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SwapMode             string `json:"swapMode"`
	SlippageBps          uint16 `json:"slippageBps"`
}

// GetQuote gets an exact-in quote for amount of inputMint
func (c *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps uint16) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint.String())
	q.Set("outputMint", outputMint.String())
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))
	q.Set("swapMode", "ExactIn")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if resp.SwapMode != "" && resp.SwapMode != "ExactIn" {
		return nil, fmt.Errorf("unexpected swap mode %q", resp.SwapMode)
	}

	quote := &Quote{SlippageBPS: resp.SlippageBps, Raw: raw}
	if quote.InputMint, err = solana.PublicKeyFromBase58(resp.InputMint); err != nil {
		return nil, fmt.Errorf("invalid quote inputMint: %w", err)
	}
	if quote.OutputMint, err = solana.PublicKeyFromBase58(resp.OutputMint); err != nil {
		return nil, fmt.Errorf("invalid quote outputMint: %w", err)
	}
	if quote.InAmount, err = strconv.ParseUint(resp.InAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid quote inAmount: %w", err)
	}
	if quote.OutAmount, err = strconv.ParseUint(resp.OutAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid quote outAmount: %w", err)
	}
	if resp.OtherAmountThreshold != "" {
		if quote.MinOut, err = strconv.ParseUint(resp.OtherAmountThreshold, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid quote otherAmountThreshold: %w", err)
		}
	}
	if quote.InAmount != amount {
		return nil, fmt.Errorf("quote is for %d, requested %d", quote.InAmount, amount)
	}
	return quote, nil
}

type swapInstructionsRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	DestinationTokenAccount string          `json:"destinationTokenAccount"`
	WrapAndUnwrapSol        bool            `json:"wrapAndUnwrapSol"`
}

type instructionJSON struct {
	ProgramID string `json:"programId"`
	Accounts  []struct {
		Pubkey     string `json:"pubkey"`
		IsSigner   bool   `json:"isSigner"`
		IsWritable bool   `json:"isWritable"`
	} `json:"accounts"`
	Data string `json:"data"`
}

type swapInstructionsResponse struct {
	SwapInstruction *instructionJSON `json:"swapInstruction"`
	Error           string           `json:"error"`
}

// GetSwapInstructions gets the swap instruction for quote, executed by user
// and paying out to destination.
func (c *JupiterClient) GetSwapInstructions(ctx context.Context, user, destination solana.PublicKey, quote *Quote) (exchange.Payload, error) {
	body, err := json.Marshal(swapInstructionsRequest{
		QuoteResponse:           quote.Raw,
		UserPublicKey:           user.String(),
		DestinationTokenAccount: destination.String(),
	})
	if err != nil {
		return exchange.Payload{}, fmt.Errorf("failed to encode swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap-instructions", bytes.NewReader(body))
	if err != nil {
		return exchange.Payload{}, fmt.Errorf("failed to build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return exchange.Payload{}, fmt.Errorf("failed to get swap instructions: %w", err)
	}

	var resp swapInstructionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return exchange.Payload{}, fmt.Errorf("failed to decode swap instructions: %w", err)
	}
	if resp.Error != "" {
		return exchange.Payload{}, fmt.Errorf("swap instructions rejected: %s", resp.Error)
	}
	if resp.SwapInstruction == nil {
		return exchange.Payload{}, fmt.Errorf("swap instructions response has no swapInstruction")
	}

	ix := resp.SwapInstruction
	payload := exchange.Payload{
		InputMint:   quote.InputMint,
		OutputMint:  quote.OutputMint,
		Destination: destination,
	}
	if payload.Target, err = solana.PublicKeyFromBase58(ix.ProgramID); err != nil {
		return exchange.Payload{}, fmt.Errorf("invalid programId: %w", err)
	}
	for i, acc := range ix.Accounts {
		key, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return exchange.Payload{}, fmt.Errorf("invalid account %d: %w", i, err)
		}
		payload.Accounts = append(payload.Accounts, solana.AccountMeta{
			PublicKey:  key,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}
	if payload.RawData, err = base64.StdEncoding.DecodeString(ix.Data); err != nil {
		return exchange.Payload{}, fmt.Errorf("invalid instruction data: %w", err)
	}
	return payload, nil
}

func (c *JupiterClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(raw) > 512 {
			raw = raw[:512]
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, nil
}
