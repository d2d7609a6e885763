package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/ledger/postgres"
	"github.com/AlexZinkM/dca-vault/internal/ledger/postgres/pgtest"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

func newPostgresEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dsn := pgtest.DSN(t)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool), "failed to apply migrations")

	return newTestEnvOn(t, postgres.New(pool))
}

func TestLifecycle_PostgresLedger(t *testing.T) {
	e := newPostgresEnv(t)
	key := e.owner(1_000_000)
	owner := key.PublicKey()

	created, err := e.initialize(key, 1_000_000, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, *created, *e.vault(owner))
	assert.Equal(t, uint64(1_000_000), e.balance(created.Address, usdc), "custody holds curr_balance")

	e.clock.Advance(2 * time.Second)
	res, err := e.swap(key, owner, 200_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_333), res.Received)
	assert.Equal(t, *res.Vault, *e.vault(owner))
	assert.Equal(t, uint64(800_000), e.balance(created.Address, usdc))
	assert.Equal(t, uint64(1_333), e.balance(owner, wsol))

	e.clock.Advance(2 * time.Second)
	want := e.vault(owner)
	e.rate.Fail = errors.New("route expired")
	_, err = e.swap(key, owner, 200_000)
	require.ErrorIs(t, err, vaulterr.ErrSwapExecutionFailed)
	e.rate.Fail = nil
	assert.Equal(t, want, e.vault(owner), "failed swap rolled back")
	assert.Equal(t, uint64(800_000), e.balance(created.Address, usdc))

	req := WithdrawRequest{Sequence: e.sequence(owner), Owner: owner}
	req.Auth = e.sign(key, auth.OpWithdraw, req.Digest())
	w, err := e.svc.Withdraw(e.ctx, req)
	require.NoError(t, err)
	assert.True(t, w.EarlyExit)
	assert.Equal(t, uint64(4_000), w.Fee)
	assert.Equal(t, uint64(796_000), w.Payout)
	assert.Equal(t, uint64(796_000), e.balance(owner, usdc))
	assert.Equal(t, uint64(4_000), e.balance(e.svc.FeeSink(), usdc))

	_, err = e.svc.Withdraw(e.ctx, req)
	assert.ErrorIs(t, err, vaulterr.ErrNotFound)

	events, err := e.svc.Events(e.ctx, owner)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventVaultCreated, events[0].Kind)
	assert.Equal(t, domain.EventSwapExecuted, events[1].Kind)
	assert.Equal(t, domain.EventWithdrawn, events[2].Kind)
}

func TestInitialize_ReplayRejectedOnPostgres(t *testing.T) {
	e := newPostgresEnv(t)
	key := e.owner(1_000_000)
	owner := key.PublicKey()

	req := InitializeRequest{Sequence: e.sequence(owner), TotalAmount: 1_000_000, Periods: 5, IntervalSeconds: 2}
	req.Auth = e.sign(key, auth.OpInitialize, req.Digest())
	_, err := e.svc.Initialize(e.ctx, req)
	require.NoError(t, err)
	_, err = e.withdraw(key)
	require.NoError(t, err)

	_, err = e.svc.Initialize(e.ctx, req)
	require.ErrorIs(t, err, vaulterr.ErrUnauthorized)
	assert.Equal(t, uint64(995_000), e.balance(owner, usdc))
}
