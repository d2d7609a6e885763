package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdc = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	wsol = solana.WrappedSol
)

func TestJupiterClient_QuoteAndInstructions(t *testing.T) {
	vaultAddr := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	program := solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	account := solana.NewWallet().PublicKey()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			assert.Equal(t, usdc.String(), r.URL.Query().Get("inputMint"))
			assert.Equal(t, "200000", r.URL.Query().Get("amount"))
			assert.Equal(t, "50", r.URL.Query().Get("slippageBps"))
			w.Write([]byte(`{"inputMint":"` + usdc.String() + `","inAmount":"200000","outputMint":"` + wsol.String() +
				`","outAmount":"1333","otherAmountThreshold":"1326","swapMode":"ExactIn","slippageBps":50,"routePlan":[]}`))
		case "/swap-instructions":
			var body map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, `"`+vaultAddr.String()+`"`, string(body["userPublicKey"]))
			assert.JSONEq(t, `"`+dest.String()+`"`, string(body["destinationTokenAccount"]))
			assert.Contains(t, string(body["quoteResponse"]), `"outAmount":"1333"`)
			w.Write([]byte(`{"swapInstruction":{"programId":"` + program.String() + `","accounts":[` +
				`{"pubkey":"` + vaultAddr.String() + `","isSigner":true,"isWritable":false},` +
				`{"pubkey":"` + account.String() + `","isSigner":false,"isWritable":true}],"data":"5RfLlw=="}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewJupiterClient(srv.URL + "/")
	quote, err := c.GetQuote(context.Background(), usdc, wsol, 200_000, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_333), quote.OutAmount)
	assert.Equal(t, uint64(1_326), quote.MinOut)

	p, err := c.GetSwapInstructions(context.Background(), vaultAddr, dest, quote)
	require.NoError(t, err)
	assert.Equal(t, program, p.Target)
	assert.Equal(t, usdc, p.InputMint)
	assert.Equal(t, wsol, p.OutputMint)
	assert.Equal(t, dest, p.Destination)
	require.Len(t, p.Accounts, 2)
	assert.True(t, p.Accounts[0].IsSigner)
	assert.Equal(t, account, p.Accounts[1].PublicKey)
	assert.Equal(t, []byte{0xe5, 0x17, 0xcb, 0x97}, p.RawData)
}

func TestJupiterClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			if r.URL.Query().Get("amount") == "1" {
				w.Write([]byte(`{"inputMint":"` + usdc.String() + `","inAmount":"2","outputMint":"` + wsol.String() + `","outAmount":"0"}`))
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"no route"}`))
		case "/swap-instructions":
			w.Write([]byte(`{"error":"stale quote"}`))
		}
	}))
	defer srv.Close()

	c := NewJupiterClient(srv.URL)
	_, err := c.GetQuote(context.Background(), usdc, wsol, 5, 50)
	assert.ErrorContains(t, err, "no route")

	_, err = c.GetQuote(context.Background(), usdc, wsol, 1, 50)
	assert.ErrorContains(t, err, "requested 1")

	_, err = c.GetSwapInstructions(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), &Quote{Raw: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "stale quote")
}

func TestCoinGeckoClient_GetSOLtoUSDrate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"solana":{"usd":151.237}}`))
	}))
	defer srv.Close()

	rate, err := NewCoinGeckoClient(srv.URL).GetSOLtoUSDrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "151.24", rate)
}

func TestSolanaClient_GetBalance(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	usdcATA, _, err := solana.FindAssociatedTokenAddress(owner, usdc)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params []any           `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")

		reply := func(body string) {
			w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,` + body + `}`))
		}
		switch {
		case req.Method == "getBalance":
			reply(`"result":{"context":{"slot":1},"value":2500000}`)
		case req.Method == "getTokenAccountBalance" && req.Params[0] == usdcATA.String():
			reply(`"result":{"context":{"slot":1},"value":{"amount":"1500000","decimals":6,"uiAmountString":"1.5"}}`)
		default:
			reply(`"error":{"code":-32602,"message":"Invalid param: could not find account"}`)
		}
	}))
	defer srv.Close()

	bal, err := NewSolanaClient(srv.URL).GetBalance(context.Background(), owner, usdc, wsol)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000), bal.Lamports)
	require.Len(t, bal.Tokens, 2)

	assert.True(t, bal.Tokens[0].Exists)
	assert.Equal(t, usdcATA, bal.Tokens[0].Account)
	assert.Equal(t, uint64(1_500_000), bal.Tokens[0].Amount)

	assert.False(t, bal.Tokens[1].Exists)
	assert.Zero(t, bal.Tokens[1].Amount)
}
