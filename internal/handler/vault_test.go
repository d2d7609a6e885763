package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/exchange/stub"
	"github.com/AlexZinkM/dca-vault/internal/handler"
	"github.com/AlexZinkM/dca-vault/internal/ledger/memory"
	"github.com/AlexZinkM/dca-vault/internal/model"
	"github.com/AlexZinkM/dca-vault/internal/vault"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

var (
	programID = solana.MustPublicKeyFromBase58("AZDprYt6ksZxH1nUFQdSEp84GYu9WpvG68M4oNmscTFF")
	router    = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	usdc      = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	wsol      = solana.WrappedSol
)

type fixture struct {
	t   *testing.T
	now time.Time
	svc *vault.Service
	h   *handler.VaultHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, now: time.Unix(1_700_000_000, 0)}
	clock := func() time.Time { return f.now }

	deriver, err := address.NewDeriver(programID, "dcavault")
	require.NoError(t, err)

	f.svc, err = vault.New(
		memory.New(),
		auth.NewGuard(clock, time.Minute),
		exchange.NewGateway(router, &stub.FixedRate{Num: 1, Den: 150, OutputMint: wsol}),
		deriver,
		vault.Config{DepositMint: usdc, OutputMint: wsol, EarlyExitFeeBPS: vault.DefaultEarlyExitFeeBPS},
		vault.WithClock(clock),
		vault.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	_, err = f.svc.Faucet(context.Background(), router, wsol, 1_000_000_000)
	require.NoError(t, err)

	f.h = handler.NewVaultHandler(f.svc, zaptest.NewLogger(t))
	return f
}

func (f *fixture) owner(deposit uint64) solana.PrivateKey {
	f.t.Helper()
	key := solana.NewWallet().PrivateKey
	_, err := f.svc.Faucet(context.Background(), key.PublicKey(), usdc, deposit)
	require.NoError(f.t, err)
	return key
}

func (f *fixture) sign(key solana.PrivateKey, op auth.Op, digest string) auth.Request {
	f.t.Helper()
	req, err := auth.Sign(key, op, f.now, digest)
	require.NoError(f.t, err)
	return req
}

func (f *fixture) post(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(f.t, err)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw)))
	return rec
}

func (f *fixture) get(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (f *fixture) sequence(owner solana.PublicKey) uint64 {
	f.t.Helper()
	events, err := f.svc.Events(context.Background(), owner)
	require.NoError(f.t, err)
	return uint64(len(events))
}

func (f *fixture) initialize(key solana.PrivateKey, total uint64, periods uint16, interval uint64) *httptest.ResponseRecorder {
	req := vault.InitializeRequest{Sequence: f.sequence(key.PublicKey()), TotalAmount: total, Periods: periods, IntervalSeconds: interval}
	req.Auth = f.sign(key, auth.OpInitialize, req.Digest())
	return f.post(f.h.Initialize, model.NewInitializeRequest(req))
}

func (f *fixture) swap(key solana.PrivateKey, amount uint64) *httptest.ResponseRecorder {
	f.t.Helper()
	owner := key.PublicKey()
	vaultAddr, err := f.svc.VaultAddress(owner)
	require.NoError(f.t, err)
	dest := address.MustHolding(owner, wsol)
	req := vault.SwapRequest{
		Sequence: f.sequence(owner),
		Owner:    owner,
		Amount:   amount,
		Payload: exchange.Payload{
			Target:      router,
			InputMint:   usdc,
			OutputMint:  wsol,
			Destination: dest,
			Accounts: []solana.AccountMeta{
				{PublicKey: vaultAddr},
				{PublicKey: address.MustHolding(vaultAddr, usdc), IsWritable: true},
				{PublicKey: dest, IsWritable: true},
			},
			RawData: []byte("route"),
		},
	}
	req.Auth = f.sign(key, auth.OpExecuteSwap, req.Digest())
	return f.post(f.h.Swap, model.NewSwapRequest(req))
}

func (f *fixture) withdraw(key solana.PrivateKey) *httptest.ResponseRecorder {
	req := vault.WithdrawRequest{Sequence: f.sequence(key.PublicKey()), Owner: key.PublicKey()}
	req.Auth = f.sign(key, auth.OpWithdraw, req.Digest())
	return f.post(f.h.Withdraw, model.NewWithdrawRequest(req))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestVaultHandler_Lifecycle(t *testing.T) {
	f := newFixture(t)
	key := f.owner(1_000_000)
	owner := key.PublicKey().String()

	rec := f.initialize(key, 1_000_000, 5, 60)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeBody[model.VaultResponse](t, rec)
	assert.Equal(t, owner, created.Owner)
	assert.Equal(t, "1.000000", created.CurrBalanceUI)
	assert.Equal(t, uint64(200_000), created.SliceAmount)

	f.now = f.now.Add(time.Minute)
	rec = f.swap(key, 200_000)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	swapped := decodeBody[model.SwapResponse](t, rec)
	assert.Equal(t, uint64(1_333), swapped.Received)
	assert.Equal(t, uint16(1), swapped.Vault.PeriodsCompleted)

	rec = f.get(f.h.Get, "/vault?owner="+owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(800_000), decodeBody[model.VaultResponse](t, rec).CurrBalance)

	rec = f.withdraw(key)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	withdrawn := decodeBody[model.WithdrawResponse](t, rec)
	assert.True(t, withdrawn.EarlyExit)
	assert.Equal(t, uint64(4_000), withdrawn.Fee)
	assert.Equal(t, uint64(796_000), withdrawn.Payout)

	rec = f.get(f.h.Events, "/vault/events?owner="+owner)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[model.EventsResponse](t, rec)
	require.Len(t, history.Events, 3)
	assert.Equal(t, "VaultCreated", history.Events[0].Kind)
	assert.Equal(t, "SwapExecuted", history.Events[1].Kind)
	assert.Equal(t, "Withdrawn", history.Events[2].Kind)

	rec = f.get(f.h.Get, "/vault?owner="+owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVaultHandler_ErrorStatus(t *testing.T) {
	f := newFixture(t)
	key := f.owner(1_000_000)
	require.Equal(t, http.StatusOK, f.initialize(key, 1_000_000, 5, 60).Code)

	rec := f.swap(key, 200_000)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[model.ErrorResponse](t, rec)
	assert.Equal(t, string(vaulterr.CodeSwapNotDue), body.Code)
	assert.Equal(t, string(vaulterr.KindSchedule), body.Kind)

	rec = f.initialize(key, 1_000_000, 5, 60)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(vaulterr.CodeAlreadyExists), decodeBody[model.ErrorResponse](t, rec).Code)

	poor := f.owner(10)
	rec = f.initialize(poor, 1_000_000, 5, 60)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.initialize(f.owner(10), 0, 5, 60)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(vaulterr.CodeInvalidAmount), decodeBody[model.ErrorResponse](t, rec).Code)

	req := vault.WithdrawRequest{Owner: key.PublicKey()}
	req.Auth = f.sign(poor, auth.OpWithdraw, req.Digest())
	rec = f.post(f.h.Withdraw, model.NewWithdrawRequest(req))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVaultHandler_BadRequests(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.h.Initialize(rec, httptest.NewRequest(http.MethodGet, "/vault/initialize", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	f.h.Swap(rec, httptest.NewRequest(http.MethodPost, "/vault/swap", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[model.ErrorResponse](t, rec)
	assert.Equal(t, string(vaulterr.CodeInvalidRequest), body.Code)
	assert.Equal(t, string(vaulterr.KindValidation), body.Kind)

	rec = httptest.NewRecorder()
	f.h.Initialize(rec, httptest.NewRequest(http.MethodPost, "/vault/initialize", bytes.NewBufferString(`{"totalAmount":"ten"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(vaulterr.CodeInvalidRequest), decodeBody[model.ErrorResponse](t, rec).Code)

	rec = httptest.NewRecorder()
	f.h.Withdraw(rec, httptest.NewRequest(http.MethodPost, "/vault/withdraw", bytes.NewBufferString(`{"unknown":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(f.h.Get, "/vault")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decodeBody[model.ErrorResponse](t, rec)
	assert.Contains(t, body.Error, "owner is required")
	assert.Equal(t, string(vaulterr.CodeInvalidRequest), body.Code)

	rec = f.get(f.h.Get, "/vault?owner=not-a-key")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVaultHandler_QR(t *testing.T) {
	f := newFixture(t)
	key := f.owner(1_000)
	require.Equal(t, http.StatusOK, f.initialize(key, 1_000, 1, 60).Code)

	rec := f.get(f.h.QR, "/vault/qr?owner="+key.PublicKey().String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = f.get(f.h.QR, "/vault/qr?owner="+solana.NewWallet().PublicKey().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVaultHandler_FaucetAndHolding(t *testing.T) {
	f := newFixture(t)
	authority := solana.NewWallet().PublicKey()

	rec := f.post(f.h.Faucet, model.FaucetRequest{Authority: authority.String(), Asset: usdc.String(), Amount: 500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(500), decodeBody[model.HoldingResponse](t, rec).Balance)

	rec = f.get(f.h.Holding, "/holding?authority="+authority.String()+"&asset="+usdc.String())
	require.Equal(t, http.StatusOK, rec.Code)
	holding := decodeBody[model.HoldingResponse](t, rec)
	assert.Equal(t, address.MustHolding(authority, usdc).String(), holding.Address)
	assert.Equal(t, uint64(500), holding.Balance)

	rec = f.post(f.h.Faucet, model.FaucetRequest{Authority: authority.String(), Asset: usdc.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		code vaulterr.Code
		want int
	}{
		{vaulterr.CodeInvalidPeriods, http.StatusBadRequest},
		{vaulterr.CodeUnauthorized, http.StatusUnauthorized},
		{vaulterr.CodeWrongMint, http.StatusForbidden},
		{vaulterr.CodePlanComplete, http.StatusConflict},
		{vaulterr.CodeInsufficientBalance, http.StatusUnprocessableEntity},
		{vaulterr.CodeSwapExecutionFailed, http.StatusBadGateway},
		{vaulterr.CodeInvalidDestination, http.StatusBadRequest},
		{vaulterr.CodeNotFound, http.StatusNotFound},
		{vaulterr.CodeArithmeticOverflow, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, handler.StatusOf(tt.code))
		})
	}
}
