package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/exchange/stub"
	"github.com/AlexZinkM/dca-vault/internal/handler"
	"github.com/AlexZinkM/dca-vault/internal/ledger/memory"
	"github.com/AlexZinkM/dca-vault/internal/observability"
	"github.com/AlexZinkM/dca-vault/internal/vault"
)

func newServer(t *testing.T, faucet bool) *httptest.Server {
	t.Helper()
	usdc := solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	router := solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

	deriver, err := address.NewDeriver(solana.MustPublicKeyFromBase58("AZDprYt6ksZxH1nUFQdSEp84GYu9WpvG68M4oNmscTFF"), "dcavault")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg, "")
	svc, err := vault.New(
		memory.New(),
		auth.NewGuard(nil, 0),
		exchange.NewGateway(router, &stub.FixedRate{Num: 1, Den: 150, OutputMint: solana.WrappedSol}),
		deriver,
		vault.Config{DepositMint: usdc, OutputMint: solana.WrappedSol},
		vault.WithMetrics(metrics),
	)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	h := SetupRouter(handler.NewVaultHandler(svc, log), Options{
		Logger:   log,
		Metrics:  metrics,
		Gatherer: reg,
		Faucet:   faucet,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, header http.Header) (*http.Response, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestRouter_RequestID(t *testing.T) {
	srv := newServer(t, false)

	resp, _ := do(t, http.MethodGet, srv.URL+"/vault", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp, _ = do(t, http.MethodGet, srv.URL+"/vault", "", http.Header{RequestIDHeader: {"req-42"}})
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestRouter_FaucetToggle(t *testing.T) {
	body := `{"authority":"` + solana.NewWallet().PublicKey().String() + `","asset":"So11111111111111111111111111111111111111112","amount":"10"}`

	resp, _ := do(t, http.MethodPost, newServer(t, false).URL+"/dev/faucet", body, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, out := do(t, http.MethodPost, newServer(t, true).URL+"/dev/faucet", body, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Contains(t, out, `"balance":"10"`)
}

func TestRouter_Metrics(t *testing.T) {
	srv := newServer(t, false)
	do(t, http.MethodGet, srv.URL+"/vault?owner="+solana.NewWallet().PublicKey().String(), "", nil)

	resp, out := do(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, `dca_vault_http_request_duration_seconds_count{route="/vault",status="404"} 1`)
}

func TestRouter_Swagger(t *testing.T) {
	resp, out := do(t, http.MethodGet, newServer(t, false).URL+"/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "/vault/initialize")
}
