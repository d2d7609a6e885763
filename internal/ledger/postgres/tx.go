package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

type tx struct {
	tx pgx.Tx
}

var _ ledger.Tx = (*tx)(nil)

func (t *tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

const holdingColumns = `address, authority, asset, balance`

func scanHolding(row pgx.Row) (*domain.Holding, error) {
	var addr, authority, asset string
	var bal int64
	if err := row.Scan(&addr, &authority, &asset, &bal); err != nil {
		return nil, err
	}

	h := &domain.Holding{Balance: uint64(bal)}
	var err error
	if h.Address, err = parseKey(addr); err != nil {
		return nil, err
	}
	if h.Authority, err = parseKey(authority); err != nil {
		return nil, err
	}
	if h.Asset, err = parseKey(asset); err != nil {
		return nil, err
	}
	return h, nil
}

func (t *tx) Holding(ctx context.Context, addr solana.PublicKey) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE address = $1 FOR UPDATE`

	h, err := scanHolding(t.tx.QueryRow(ctx, query, addr.String()))
	if err != nil {
		if isNotFoundError(err) {
			return nil, vaulterr.New(vaulterr.CodeNotFound, "holding %s not found", addr)
		}
		return nil, fmt.Errorf("get holding: %w", err)
	}
	return h, nil
}

func (t *tx) OpenHolding(ctx context.Context, authority, asset solana.PublicKey) (*domain.Holding, error) {
	addr, err := address.Holding(authority, asset)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO holdings (address, authority, asset, balance)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := t.tx.Exec(ctx, query, addr.String(), authority.String(), asset.String()); err != nil {
		return nil, fmt.Errorf("open holding: %w", err)
	}
	return t.Holding(ctx, addr)
}

func (t *tx) CloseHolding(ctx context.Context, addr, beneficiary solana.PublicKey) (uint64, error) {
	h, err := t.Holding(ctx, addr)
	if err != nil {
		return 0, err
	}
	if h.Balance > 0 {
		if err := t.Transfer(ctx, addr, beneficiary, h.Balance); err != nil {
			return 0, err
		}
	}

	tag, err := t.tx.Exec(ctx, `DELETE FROM holdings WHERE address = $1 AND balance = 0`, addr.String())
	if err != nil {
		return 0, fmt.Errorf("close holding: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return 0, vaulterr.New(vaulterr.CodeInternal, "holding %s still has a balance", addr)
	}
	return h.Balance, nil
}

func (t *tx) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	delta, err := toDB(amount)
	if err != nil {
		return err
	}

	// Lock both rows in a fixed order so concurrent transfers cannot deadlock.
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE address = ANY($1) ORDER BY address FOR UPDATE`
	rows, err := t.tx.Query(ctx, query, []string{from.String(), to.String()})
	if err != nil {
		return fmt.Errorf("lock holdings: %w", err)
	}
	locked := make(map[solana.PublicKey]*domain.Holding, 2)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scan holding row: %w", err)
		}
		locked[h.Address] = h
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate holding rows: %w", err)
	}

	src, ok := locked[from]
	if !ok {
		return vaulterr.New(vaulterr.CodeNotFound, "source holding %s not found", from)
	}
	dst, ok := locked[to]
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
	if dst.Balance > math.MaxInt64-amount {
		return vaulterr.ErrArithmeticOverflow
	}

	if _, err := t.tx.Exec(ctx, `UPDATE holdings SET balance = balance - $2 WHERE address = $1`, from.String(), delta); err != nil {
		if isPgError(err, pgErrCheckViolation) {
			return vaulterr.New(vaulterr.CodeInsufficientBalance, "holding %s overdrawn", from)
		}
		return fmt.Errorf("debit holding: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `UPDATE holdings SET balance = balance + $2 WHERE address = $1`, to.String(), delta); err != nil {
		return fmt.Errorf("credit holding: %w", err)
	}
	return nil
}

func (t *tx) Credit(ctx context.Context, addr solana.PublicKey, amount uint64) error {
	h, err := t.Holding(ctx, addr)
	if err != nil {
		return err
	}
	delta, err := toDB(amount)
	if err != nil {
		return err
	}
	if h.Balance > math.MaxInt64-amount {
		return vaulterr.ErrArithmeticOverflow
	}

	if _, err := t.tx.Exec(ctx, `UPDATE holdings SET balance = balance + $2 WHERE address = $1`, addr.String(), delta); err != nil {
		return fmt.Errorf("credit holding: %w", err)
	}
	return nil
}

const vaultColumns = `address, bump, owner, deposit_mint, output_mint, custody, total_amount, periods,
	interval_seconds, created_at, curr_balance, periods_completed, next_swap_time, total_output_received`

func (t *tx) Vault(ctx context.Context, addr solana.PublicKey) (*domain.Vault, error) {
	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE address = $1 FOR UPDATE`

	var (
		vaultAddr, owner, depositMint, outputMint, custody string
		bump                                               int16
		total, interval, curr, output                      int64
		periods, completed                                 int32
		createdAt, nextSwap                                int64
	)
	err := t.tx.QueryRow(ctx, query, addr.String()).Scan(
		&vaultAddr, &bump, &owner, &depositMint, &outputMint, &custody, &total, &periods,
		&interval, &createdAt, &curr, &completed, &nextSwap, &output,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, vaulterr.New(vaulterr.CodeNotFound, "vault %s not found", addr)
		}
		return nil, fmt.Errorf("get vault: %w", err)
	}

	v := &domain.Vault{
		Bump:                uint8(bump),
		TotalAmount:         uint64(total),
		Periods:             uint16(periods),
		IntervalSeconds:     uint64(interval),
		CreatedAt:           createdAt,
		CurrBalance:         uint64(curr),
		PeriodsCompleted:    uint16(completed),
		NextSwapTime:        nextSwap,
		TotalOutputReceived: uint64(output),
	}
	for _, f := range []struct {
		dst *solana.PublicKey
		src string
	}{
		{&v.Address, vaultAddr},
		{&v.Owner, owner},
		{&v.DepositMint, depositMint},
		{&v.OutputMint, outputMint},
		{&v.Custody, custody},
	} {
		key, err := parseKey(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = key
	}
	return v, nil
}

func (t *tx) InsertVault(ctx context.Context, v *domain.Vault) error {
	args, err := vaultAmounts(v)
	if err != nil {
		return err
	}

	query := `INSERT INTO vaults (` + vaultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = t.tx.Exec(ctx, query,
		v.Address.String(),
		int16(v.Bump),
		v.Owner.String(),
		v.DepositMint.String(),
		v.OutputMint.String(),
		v.Custody.String(),
		args.total,
		int32(v.Periods),
		args.interval,
		v.CreatedAt,
		args.curr,
		int32(v.PeriodsCompleted),
		v.NextSwapTime,
		args.output,
	)
	if err != nil {
		if isPgError(err, pgErrUniqueViolation) {
			return vaulterr.New(vaulterr.CodeAlreadyExists, "vault %s already exists", v.Address)
		}
		return fmt.Errorf("insert vault: %w", err)
	}
	return nil
}

func (t *tx) UpdateVault(ctx context.Context, v *domain.Vault) error {
	args, err := vaultAmounts(v)
	if err != nil {
		return err
	}

	query := `
		UPDATE vaults
		SET curr_balance = $2, periods_completed = $3, next_swap_time = $4, total_output_received = $5
		WHERE address = $1
	`
	tag, err := t.tx.Exec(ctx, query, v.Address.String(), args.curr, int32(v.PeriodsCompleted), v.NextSwapTime, args.output)
	if err != nil {
		return fmt.Errorf("update vault: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vaulterr.New(vaulterr.CodeNotFound, "vault %s not found", v.Address)
	}
	return nil
}

func (t *tx) DeleteVault(ctx context.Context, addr solana.PublicKey) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM vaults WHERE address = $1`, addr.String())
	if err != nil {
		return fmt.Errorf("delete vault: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vaulterr.New(vaulterr.CodeNotFound, "vault %s not found", addr)
	}
	return nil
}

type dbAmounts struct {
	total, interval, curr, output int64
}

func vaultAmounts(v *domain.Vault) (dbAmounts, error) {
	var a dbAmounts
	var err error
	if a.total, err = toDB(v.TotalAmount); err != nil {
		return a, err
	}
	if a.interval, err = toDB(v.IntervalSeconds); err != nil {
		return a, err
	}
	if a.curr, err = toDB(v.CurrBalance); err != nil {
		return a, err
	}
	if a.output, err = toDB(v.TotalOutputReceived); err != nil {
		return a, err
	}
	return a, nil
}

func (t *tx) AppendEvent(ctx context.Context, ev *domain.Event) error {
	amount, err := toDB(ev.Amount)
	if err != nil {
		return err
	}
	output, err := toDB(ev.OutputAmount)
	if err != nil {
		return err
	}
	fee, err := toDB(ev.Fee)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vault_events (
			id, vault, owner, kind, amount, output_amount, fee, periods_completed, next_swap_time, early_exit, at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = t.tx.Exec(ctx, query,
		ev.ID.String(),
		ev.Vault.String(),
		ev.Owner.String(),
		string(ev.Kind),
		amount,
		output,
		fee,
		int32(ev.PeriodsCompleted),
		ev.NextSwapTime,
		ev.EarlyExit,
		ev.At,
	)
	if err != nil {
		return fmt.Errorf("insert vault event: %w", err)
	}
	return nil
}

func (t *tx) Events(ctx context.Context, vault solana.PublicKey) ([]*domain.Event, error) {
	query := `
		SELECT id::text, vault, owner, kind, amount, output_amount, fee, periods_completed, next_swap_time, early_exit, at
		FROM vault_events
		WHERE vault = $1
		ORDER BY at ASC
	`
	rows, err := t.tx.Query(ctx, query, vault.String())
	if err != nil {
		return nil, fmt.Errorf("get vault events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var (
			ev                   domain.Event
			id, vaultAddr, owner string
			kind                 string
			amount, output, fee  int64
			completed            int32
		)
		if err := rows.Scan(&id, &vaultAddr, &owner, &kind, &amount, &output, &fee, &completed, &ev.NextSwapTime, &ev.EarlyExit, &ev.At); err != nil {
			return nil, fmt.Errorf("scan vault event row: %w", err)
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt event id %q: %w", id, err)
		}
		if ev.Vault, err = parseKey(vaultAddr); err != nil {
			return nil, err
		}
		if ev.Owner, err = parseKey(owner); err != nil {
			return nil, err
		}
		ev.Kind = domain.EventKind(kind)
		ev.Amount = uint64(amount)
		ev.OutputAmount = uint64(output)
		ev.Fee = uint64(fee)
		ev.PeriodsCompleted = uint16(completed)
		ev.At = ev.At.UTC()
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault event rows: %w", err)
	}
	return events, nil
}
