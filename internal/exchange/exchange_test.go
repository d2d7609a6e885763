package exchange_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/exchange/stub"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/ledger/memory"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

var (
	usdc   = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	wsol   = solana.WrappedSol
	router = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
)

type fixture struct {
	l       *memory.Ledger
	vault   solana.PublicKey
	custody *domain.Holding
	dest    *domain.Holding
}

func newFixture(t *testing.T, custodyBalance, poolBalance uint64) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{l: memory.New(), vault: solana.NewWallet().PublicKey()}
	owner := solana.NewWallet().PublicKey()

	err := ledger.Run(ctx, f.l, func(tx ledger.Tx) error {
		var err error
		if f.custody, err = tx.OpenHolding(ctx, f.vault, usdc); err != nil {
			return err
		}
		if err := tx.Credit(ctx, f.custody.Address, custodyBalance); err != nil {
			return err
		}
		if f.dest, err = tx.OpenHolding(ctx, owner, wsol); err != nil {
			return err
		}
		pool, err := tx.OpenHolding(ctx, router, wsol)
		if err != nil {
			return err
		}
		return tx.Credit(ctx, pool.Address, poolBalance)
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) delegate(max uint64) exchange.Delegate {
	return exchange.Delegate{Authority: f.vault, Source: f.custody.Address, Destination: f.dest.Address, MaxInput: max}
}

func (f *fixture) payload() exchange.Payload {
	return exchange.Payload{
		Target:      router,
		InputMint:   usdc,
		OutputMint:  wsol,
		Destination: f.dest.Address,
		Accounts: []solana.AccountMeta{
			{PublicKey: f.vault, IsSigner: false},
			{PublicKey: f.custody.Address, IsWritable: true},
			{PublicKey: f.dest.Address, IsWritable: true, IsSigner: true},
		},
		RawData: []byte{0xe5, 0x17, 0xcb, 0x97},
	}
}

func (f *fixture) balance(t *testing.T, addr solana.PublicKey) uint64 {
	t.Helper()
	ctx := context.Background()
	var b uint64
	require.NoError(t, ledger.Run(ctx, f.l, func(tx ledger.Tx) error {
		h, err := tx.Holding(ctx, addr)
		if err != nil {
			return err
		}
		b = h.Balance
		return nil
	}))
	return b
}

func (f *fixture) execute(t *testing.T, g *exchange.Gateway, del exchange.Delegate, p exchange.Payload) (uint64, error) {
	t.Helper()
	ctx := context.Background()
	var received uint64
	err := ledger.Run(ctx, f.l, func(tx ledger.Tx) error {
		var err error
		received, err = g.Execute(ctx, tx, del, p)
		return err
	})
	return received, err
}

func TestGateway_ExecuteFixedRate(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)
	g := exchange.NewGateway(router, &stub.FixedRate{Num: 1, Den: 150, OutputMint: wsol})

	received, err := f.execute(t, g, f.delegate(200_000), f.payload())
	require.NoError(t, err)

	assert.Equal(t, uint64(1_333), received)
	assert.Equal(t, uint64(800_000), f.balance(t, f.custody.Address))
	assert.Equal(t, uint64(1_333), f.balance(t, f.dest.Address))
}

func TestGateway_RejectsBadPayload(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)
	g := exchange.NewGateway(router, &stub.FixedRate{Num: 1, Den: 150, OutputMint: wsol})

	tests := []struct {
		name   string
		mutate func(p *exchange.Payload)
		want   error
	}{
		{name: "foreign target", mutate: func(p *exchange.Payload) { p.Target = solana.NewWallet().PublicKey() }, want: vaulterr.ErrSwapExecutionFailed},
		{name: "missing source", mutate: func(p *exchange.Payload) { p.Accounts = p.Accounts[2:] }, want: vaulterr.ErrSwapExecutionFailed},
		{name: "wrong input mint", mutate: func(p *exchange.Payload) { p.InputMint = wsol }, want: vaulterr.ErrWrongMint},
		{name: "wrong output mint", mutate: func(p *exchange.Payload) { p.OutputMint = usdc }, want: vaulterr.ErrWrongMint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := f.payload()
			tt.mutate(&p)
			_, err := f.execute(t, g, f.delegate(200_000), p)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, uint64(1_000_000), f.balance(t, f.custody.Address))
		})
	}
}

func TestGateway_ExecutorFailureRollsBack(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)
	g := exchange.NewGateway(router, &stub.FixedRate{Num: 1, Den: 150, OutputMint: wsol, Fail: errors.New("route expired")})

	_, err := f.execute(t, g, f.delegate(200_000), f.payload())
	require.ErrorIs(t, err, vaulterr.ErrSwapExecutionFailed)
	assert.Equal(t, vaulterr.CodeSwapExecutionFailed, vaulterr.CodeOf(err))

	assert.Equal(t, uint64(1_000_000), f.balance(t, f.custody.Address))
	assert.Equal(t, uint64(0), f.balance(t, f.dest.Address))
}

func TestGateway_EmptyPoolFails(t *testing.T) {
	f := newFixture(t, 1_000_000, 0)
	g := exchange.NewGateway(router, &stub.FixedRate{Num: 1, Den: 150, OutputMint: wsol})

	_, err := f.execute(t, g, f.delegate(200_000), f.payload())
	assert.Equal(t, vaulterr.CodeSwapExecutionFailed, vaulterr.CodeOf(err))
}

// greedy tries to take more than it was given.
type greedy struct{}

func (greedy) Execute(ctx context.Context, _ *solana.GenericInstruction, d *exchange.Delegation) error {
	pool, err := d.Pool(ctx, d.InputMint())
	if err != nil {
		return err
	}
	return d.Spend(ctx, pool.Address, d.Remaining()+1)
}

// partial spends less than delegated.
type partial struct{}

func (partial) Execute(ctx context.Context, _ *solana.GenericInstruction, d *exchange.Delegation) error {
	pool, err := d.Pool(ctx, d.InputMint())
	if err != nil {
		return err
	}
	return d.Spend(ctx, pool.Address, d.Remaining()/2)
}

// thief pays out of a holding the router does not control.
type thief struct{ from solana.PublicKey }

func (e thief) Execute(ctx context.Context, _ *solana.GenericInstruction, d *exchange.Delegation) error {
	return d.Pay(ctx, e.from, d.Destination(), 1)
}

// signers records the metas it was handed.
type signers struct{ got []*solana.AccountMeta }

func (e *signers) Execute(_ context.Context, ix *solana.GenericInstruction, _ *exchange.Delegation) error {
	e.got = ix.Accounts()
	return errors.New("stop")
}

func TestGateway_DelegationLimits(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)

	_, err := f.execute(t, exchange.NewGateway(router, greedy{}), f.delegate(200_000), f.payload())
	assert.ErrorIs(t, err, vaulterr.ErrSwapExecutionFailed)

	_, err = f.execute(t, exchange.NewGateway(router, partial{}), f.delegate(200_000), f.payload())
	assert.ErrorIs(t, err, vaulterr.ErrSwapExecutionFailed)

	_, err = f.execute(t, exchange.NewGateway(router, thief{from: f.custody.Address}), f.delegate(200_000), f.payload())
	assert.ErrorIs(t, err, vaulterr.ErrSwapExecutionFailed)

	assert.Equal(t, uint64(1_000_000), f.balance(t, f.custody.Address))
}

func TestGateway_OnlyAuthoritySigns(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)
	rec := &signers{}

	_, err := f.execute(t, exchange.NewGateway(router, rec), f.delegate(200_000), f.payload())
	require.Error(t, err)
	require.Len(t, rec.got, 3)

	assert.True(t, rec.got[0].IsSigner, "vault authority signs")
	assert.False(t, rec.got[1].IsSigner)
	assert.False(t, rec.got[2].IsSigner, "caller-declared signer flag is dropped")
	assert.True(t, rec.got[2].IsWritable)
}

func TestRemoteExecutor(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)
	// input lands in the router's USDC pool; output comes from its SOL pool
	inPool := openPool(t, f, usdc)
	outPool := openPool(t, f, wsol)

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"inputAccount":  inPool.String(),
			"inAmount":      "200000",
			"outputAccount": outPool.String(),
			"outAmount":     "1400",
		})
	}))
	defer srv.Close()

	received, err := f.execute(t, exchange.NewGateway(router, exchange.NewRemoteExecutor(srv.URL)), f.delegate(200_000), f.payload())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_400), received)
	assert.Equal(t, uint64(200_000), f.balance(t, inPool))
	assert.Equal(t, router.String(), got["programId"])
	assert.Equal(t, "5RfLlw==", got["data"])
	assert.Equal(t, "200000", got["maxInput"])
	assert.Equal(t, f.dest.Address.String(), got["destination"])
}

func TestRemoteExecutor_ErrorStatus(t *testing.T) {
	f := newFixture(t, 1_000_000, 10_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slippage exceeded", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := f.execute(t, exchange.NewGateway(router, exchange.NewRemoteExecutor(srv.URL)), f.delegate(200_000), f.payload())
	require.ErrorIs(t, err, vaulterr.ErrSwapExecutionFailed)
	assert.Contains(t, err.Error(), "slippage exceeded")
	assert.Equal(t, uint64(1_000_000), f.balance(t, f.custody.Address))
}

func openPool(t *testing.T, f *fixture, asset solana.PublicKey) solana.PublicKey {
	t.Helper()
	ctx := context.Background()
	var addr solana.PublicKey
	require.NoError(t, ledger.Run(ctx, f.l, func(tx ledger.Tx) error {
		h, err := tx.OpenHolding(ctx, router, asset)
		if err != nil {
			return err
		}
		addr = h.Address
		return nil
	}))
	return addr
}
