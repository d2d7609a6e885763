// Package vault implements the vault lifecycle: initialize, scheduled swaps
// and withdrawal.
//
// Every operation runs inside one ledger transaction. All preconditions are
// checked before the first mutation, and any failure after that rolls the
// whole transaction back, so a failed call leaves vault and balances
// untouched.
package vault

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/common"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/observability"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

// DefaultEarlyExitFeeBPS is 0.5%.
const DefaultEarlyExitFeeBPS = 50

// Operation names used in logs and metrics.
const (
	opInitialize = "initialize"
	opSwap       = "execute_swap"
	opWithdraw   = "withdraw"
)

// Config is the vault namespace's fixed asset pair and fee policy.
type Config struct {
	DepositMint     solana.PublicKey
	OutputMint      solana.PublicKey
	EarlyExitFeeBPS uint16
	// FeeSink is the authority whose deposit holding collects early-exit
	// fees. When zero, the namespace treasury is used.
	FeeSink solana.PublicKey
}

// Service is the vault lifecycle controller.
type Service struct {
	ledger  ledger.Ledger
	guard   *auth.Guard
	gateway *exchange.Gateway
	deriver *address.Deriver
	cfg     Config

	now     func() time.Time
	log     *zap.Logger
	metrics *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the source of "now" for schedule checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service.
func New(l ledger.Ledger, guard *auth.Guard, gateway *exchange.Gateway, deriver *address.Deriver, cfg Config, opts ...Option) (*Service, error) {
	if cfg.DepositMint.IsZero() || cfg.OutputMint.IsZero() {
		return nil, errors.New("deposit and output mints are required")
	}
	if cfg.DepositMint.Equals(cfg.OutputMint) {
		return nil, errors.New("deposit and output mints must differ")
	}
	if cfg.EarlyExitFeeBPS > common.BPSDenominator {
		return nil, fmt.Errorf("early exit fee of %d bps exceeds 100%%", cfg.EarlyExitFeeBPS)
	}
	if cfg.FeeSink.IsZero() {
		treasury, err := deriver.Treasury()
		if err != nil {
			return nil, err
		}
		cfg.FeeSink = treasury
	}

	s := &Service{
		ledger:  l,
		guard:   guard,
		gateway: gateway,
		deriver: deriver,
		cfg:     cfg,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FeeSink returns the authority collecting early-exit fees.
func (s *Service) FeeSink() solana.PublicKey {
	return s.cfg.FeeSink
}

// VaultAddress returns the derived vault address of owner.
func (s *Service) VaultAddress(owner solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := s.deriver.Vault(owner)
	return addr, err
}

// Initialize creates the caller's vault and locks TotalAmount into custody.
func (s *Service) Initialize(ctx context.Context, req InitializeRequest) (v *domain.Vault, err error) {
	start := time.Now()
	owner := req.Auth.Caller
	defer func() { s.observe(opInitialize, start, err, zap.Stringer("owner", owner)) }()

	if err := s.guard.Authenticate(auth.OpInitialize, req.Auth, req.Digest()); err != nil {
		return nil, err
	}
	if req.TotalAmount == 0 {
		return nil, vaulterr.ErrInvalidAmount
	}
	if req.Periods == 0 {
		return nil, vaulterr.ErrInvalidPeriods
	}
	if req.IntervalSeconds == 0 {
		return nil, vaulterr.ErrInvalidInterval
	}
	if req.IntervalSeconds > math.MaxInt64 {
		return nil, vaulterr.New(vaulterr.CodeInvalidInterval, "interval of %d seconds is out of range", req.IntervalSeconds)
	}

	err = ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		bound, err := s.guard.CheckBindings(ctx, tx, auth.Binding{
			Name:      "owner deposit account",
			Supplied:  req.OwnerDeposit,
			Authority: owner,
			Asset:     s.cfg.DepositMint,
		})
		if err != nil {
			return err
		}
		ownerDeposit := bound[0]

		addr, bump, err := s.deriver.Vault(owner)
		if err != nil {
			return err
		}
		switch _, err := tx.Vault(ctx, addr); {
		case err == nil:
			return vaulterr.New(vaulterr.CodeAlreadyExists, "vault for %s already exists", owner)
		case !errors.Is(err, vaulterr.ErrNotFound):
			return err
		}
		if err := checkSequence(ctx, tx, addr, req.Sequence); err != nil {
			return err
		}

		var balance uint64
		switch h, err := tx.Holding(ctx, ownerDeposit); {
		case errors.Is(err, vaulterr.ErrNotFound):
		case err != nil:
			return err
		default:
			balance = h.Balance
		}
		if balance < req.TotalAmount {
			return vaulterr.New(vaulterr.CodeInsufficientBalance, "owner holds %d, vault needs %d", balance, req.TotalAmount)
		}

		createdAt := s.now().Unix()
		if createdAt > math.MaxInt64-int64(req.IntervalSeconds) {
			return vaulterr.ErrArithmeticOverflow
		}

		custody, err := tx.OpenHolding(ctx, addr, s.cfg.DepositMint)
		if err != nil {
			return err
		}
		v = &domain.Vault{
			Address:         addr,
			Bump:            bump,
			Owner:           owner,
			DepositMint:     s.cfg.DepositMint,
			OutputMint:      s.cfg.OutputMint,
			Custody:         custody.Address,
			TotalAmount:     req.TotalAmount,
			Periods:         req.Periods,
			IntervalSeconds: req.IntervalSeconds,
			CreatedAt:       createdAt,
			CurrBalance:     req.TotalAmount,
			NextSwapTime:    createdAt + int64(req.IntervalSeconds),
		}
		if err := tx.InsertVault(ctx, v); err != nil {
			return err
		}
		if err := tx.Transfer(ctx, ownerDeposit, custody.Address, req.TotalAmount); err != nil {
			return err
		}

		ev := domain.NewEvent(domain.EventVaultCreated, v, s.now())
		ev.Amount = req.TotalAmount
		return tx.AppendEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordDeposit(v.TotalAmount)
	}
	return v, nil
}

// ExecuteSwap releases one tranche of the owner's vault through the
// exchange gateway.
func (s *Service) ExecuteSwap(ctx context.Context, req SwapRequest) (res *SwapResult, err error) {
	start := time.Now()
	defer func() {
		s.observe(opSwap, start, err, zap.Stringer("owner", req.Owner), zap.Stringer("caller", req.Auth.Caller), zap.Uint64("amount", req.Amount))
	}()

	if err := s.guard.Authenticate(auth.OpExecuteSwap, req.Auth, req.Digest()); err != nil {
		return nil, err
	}

	err = ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		v, err := s.loadVault(ctx, tx, req.Owner)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(req.Auth.Caller, v); err != nil {
			return err
		}

		now := s.now().Unix()
		if now < v.NextSwapTime {
			return vaulterr.New(vaulterr.CodeSwapNotDue, "next swap is due at %d, now %d", v.NextSwapTime, now)
		}
		if v.Complete() {
			return vaulterr.New(vaulterr.CodePlanComplete, "all %d periods completed", v.Periods)
		}
		if err := checkSequence(ctx, tx, v.Address, req.Sequence); err != nil {
			return err
		}
		if req.Amount == 0 {
			return vaulterr.ErrInvalidAmount
		}
		custody, err := tx.Holding(ctx, v.Custody)
		if err != nil {
			return err
		}
		if req.Amount > v.CurrBalance || req.Amount > custody.Balance {
			return vaulterr.New(vaulterr.CodeInsufficientBalance, "vault holds %d, swap needs %d", v.CurrBalance, req.Amount)
		}
		if slice := v.SliceAmount(); req.Amount != slice {
			return vaulterr.New(vaulterr.CodeInvalidSliceAmount, "swap amount %d must equal the slice %d", req.Amount, slice)
		}

		dest, err := s.checkDestination(ctx, tx, v, req.Payload)
		if err != nil {
			return err
		}

		received, err := s.gateway.Execute(ctx, tx, exchange.Delegate{
			Authority:   v.Address,
			Source:      v.Custody,
			Destination: dest,
			MaxInput:    req.Amount,
		}, req.Payload)
		if err != nil {
			return err
		}

		next, err := advance(v, req.Amount, received)
		if err != nil {
			return err
		}
		if err := tx.UpdateVault(ctx, next); err != nil {
			return err
		}

		ev := domain.NewEvent(domain.EventSwapExecuted, next, s.now())
		ev.Amount = req.Amount
		ev.OutputAmount = received
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}
		res = &SwapResult{Vault: next, Received: received}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSwap(req.Amount, res.Received)
	}
	return res, nil
}

// checkDestination validates the payload pair and destination, then opens
// the owner's output holding if it does not exist yet.
func (s *Service) checkDestination(ctx context.Context, tx ledger.Tx, v *domain.Vault, p exchange.Payload) (solana.PublicKey, error) {
	if !p.InputMint.Equals(v.DepositMint) || !p.OutputMint.Equals(v.OutputMint) {
		return solana.PublicKey{}, vaulterr.New(vaulterr.CodeInvalidDestination, "payload pair %s -> %s does not match vault pair %s -> %s",
			p.InputMint, p.OutputMint, v.DepositMint, v.OutputMint)
	}
	if p.Destination.Equals(v.Custody) || p.Destination.Equals(v.Address) {
		return solana.PublicKey{}, vaulterr.New(vaulterr.CodeInvalidDestination, "destination %s is vault-controlled", p.Destination)
	}
	want, err := address.Holding(v.Owner, v.OutputMint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !p.Destination.Equals(want) {
		return solana.PublicKey{}, vaulterr.New(vaulterr.CodeInvalidDestination, "destination %s is not the owner's output account %s", p.Destination, want)
	}

	h, err := tx.OpenHolding(ctx, v.Owner, v.OutputMint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if h.Authority.Equals(v.Address) {
		return solana.PublicKey{}, vaulterr.New(vaulterr.CodeInvalidDestination, "destination %s is vault-controlled", p.Destination)
	}
	return h.Address, nil
}

// advance returns v after one swap of amount that received output.
func advance(v *domain.Vault, amount, received uint64) (*domain.Vault, error) {
	next := v.Clone()
	if next.CurrBalance < amount {
		return nil, vaulterr.ErrArithmeticOverflow
	}
	next.CurrBalance -= amount

	if next.PeriodsCompleted == math.MaxUint16 {
		return nil, vaulterr.ErrArithmeticOverflow
	}
	next.PeriodsCompleted++

	if next.NextSwapTime > math.MaxInt64-int64(next.IntervalSeconds) {
		return nil, vaulterr.ErrArithmeticOverflow
	}
	next.NextSwapTime += int64(next.IntervalSeconds)

	if next.TotalOutputReceived > math.MaxUint64-received {
		return nil, vaulterr.ErrArithmeticOverflow
	}
	next.TotalOutputReceived += received
	return next, nil
}

// Withdraw pays the owner the vault's remaining balance, less the early-exit
// fee when the schedule is incomplete, and closes the vault.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (res *WithdrawResult, err error) {
	start := time.Now()
	defer func() {
		s.observe(opWithdraw, start, err, zap.Stringer("owner", req.Owner), zap.Stringer("caller", req.Auth.Caller))
	}()

	if err := s.guard.Authenticate(auth.OpWithdraw, req.Auth, req.Digest()); err != nil {
		return nil, err
	}

	err = ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		v, err := s.loadVault(ctx, tx, req.Owner)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(req.Auth.Caller, v); err != nil {
			return err
		}
		if err := checkSequence(ctx, tx, v.Address, req.Sequence); err != nil {
			return err
		}
		bound, err := s.guard.CheckBindings(ctx, tx, auth.Binding{
			Name:      "withdraw destination",
			Supplied:  req.Destination,
			Authority: v.Owner,
			Asset:     v.DepositMint,
		})
		if err != nil {
			return err
		}
		dest, err := tx.OpenHolding(ctx, v.Owner, v.DepositMint)
		if err != nil {
			return err
		}

		early := !v.Complete()
		var fee uint64
		if early {
			if fee, err = common.BPSFee(v.CurrBalance, s.cfg.EarlyExitFeeBPS); err != nil {
				return vaulterr.Wrap(vaulterr.CodeInternal, err)
			}
		}
		payout := v.CurrBalance - fee

		if err := tx.Transfer(ctx, v.Custody, bound[0], payout); err != nil {
			return err
		}
		if fee > 0 {
			sink, err := tx.OpenHolding(ctx, s.cfg.FeeSink, v.DepositMint)
			if err != nil {
				return err
			}
			if err := tx.Transfer(ctx, v.Custody, sink.Address, fee); err != nil {
				return err
			}
		}
		swept, err := tx.CloseHolding(ctx, v.Custody, dest.Address)
		if err != nil {
			return err
		}
		if err := tx.DeleteVault(ctx, v.Address); err != nil {
			return err
		}

		ev := domain.NewEvent(domain.EventWithdrawn, v, s.now())
		ev.Amount = payout + swept
		ev.Fee = fee
		ev.EarlyExit = early
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}

		res = &WithdrawResult{
			Vault:       v.Address,
			Destination: dest.Address,
			Payout:      payout + swept,
			Fee:         fee,
			FeeSink:     s.cfg.FeeSink,
			EarlyExit:   early,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordWithdraw(res.Payout, res.Fee, res.EarlyExit)
	}
	return res, nil
}

// Get returns owner's vault.
func (s *Service) Get(ctx context.Context, owner solana.PublicKey) (*domain.Vault, error) {
	var v *domain.Vault
	err := ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		var err error
		v, err = s.loadVault(ctx, tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Events returns the event history of owner's vault, including after it
// has been withdrawn.
func (s *Service) Events(ctx context.Context, owner solana.PublicKey) ([]*domain.Event, error) {
	addr, _, err := s.deriver.Vault(owner)
	if err != nil {
		return nil, err
	}

	var events []*domain.Event
	err = ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		events, err = tx.Events(ctx, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Holding returns the associated holding of (authority, asset).
func (s *Service) Holding(ctx context.Context, authority, asset solana.PublicKey) (*domain.Holding, error) {
	addr, err := address.Holding(authority, asset)
	if err != nil {
		return nil, err
	}

	var h *domain.Holding
	err = ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		h, err = tx.Holding(ctx, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Faucet issues amount of asset to authority's holding. Development only.
// Derived authorities are refused, so vault custody always holds exactly the
// vault balance.
func (s *Service) Faucet(ctx context.Context, authority, asset solana.PublicKey, amount uint64) (*domain.Holding, error) {
	if amount == 0 {
		return nil, vaulterr.ErrInvalidAmount
	}
	return s.issue(ctx, authority, asset, func(uint64) uint64 { return amount })
}

// TopUp credits authority's holding of asset up to target. A holding already
// at or above target is left as is, so repeated calls issue nothing.
func (s *Service) TopUp(ctx context.Context, authority, asset solana.PublicKey, target uint64) (*domain.Holding, error) {
	return s.issue(ctx, authority, asset, func(balance uint64) uint64 {
		if balance >= target {
			return 0
		}
		return target - balance
	})
}

// issue credits the amount returned by shortfall for the current balance.
func (s *Service) issue(ctx context.Context, authority, asset solana.PublicKey, shortfall func(balance uint64) uint64) (*domain.Holding, error) {
	// vault addresses are derived off the curve
	if !authority.IsOnCurve() {
		return nil, vaulterr.New(vaulterr.CodeInvalidDestination, "%s is a derived address, only wallets can be credited", authority)
	}

	var (
		h      *domain.Holding
		amount uint64
	)
	err := ledger.Run(ctx, s.ledger, func(tx ledger.Tx) error {
		opened, err := tx.OpenHolding(ctx, authority, asset)
		if err != nil {
			return err
		}
		if amount = shortfall(opened.Balance); amount > 0 {
			if err := tx.Credit(ctx, opened.Address, amount); err != nil {
				return err
			}
		}
		h, err = tx.Holding(ctx, opened.Address)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("faucet credited holding",
		zap.Stringer("authority", authority),
		zap.Stringer("asset", asset),
		zap.Uint64("amount", amount),
	)
	return h, nil
}

// checkSequence rejects a request signed against another event count of
// the vault at addr, which makes every signature single-use.
func checkSequence(ctx context.Context, tx ledger.Tx, addr solana.PublicKey, signed uint64) error {
	events, err := tx.Events(ctx, addr)
	if err != nil {
		return err
	}
	if current := uint64(len(events)); signed != current {
		return vaulterr.New(vaulterr.CodeUnauthorized, "request signed at sequence %d, vault %s is at %d", signed, addr, current)
	}
	return nil
}

func (s *Service) loadVault(ctx context.Context, tx ledger.Tx, owner solana.PublicKey) (*domain.Vault, error) {
	addr, _, err := s.deriver.Vault(owner)
	if err != nil {
		return nil, err
	}
	v, err := tx.Vault(ctx, addr)
	if err != nil {
		if errors.Is(err, vaulterr.ErrNotFound) {
			return nil, vaulterr.New(vaulterr.CodeNotFound, "no vault for owner %s", owner)
		}
		return nil, err
	}
	return v, nil
}

func (s *Service) observe(op string, start time.Time, err error, fields ...zap.Field) {
	if s.metrics != nil {
		s.metrics.RecordOperation(op, time.Since(start).Seconds(), err)
	}

	fields = append(fields, zap.String("op", op), zap.Duration("took", time.Since(start)))
	if err != nil {
		code := vaulterr.CodeOf(err)
		fields = append(fields, zap.String("code", string(code)), zap.Error(err))
		if code.Kind() == vaulterr.KindInternal {
			s.log.Error("vault operation failed", fields...)
			return
		}
		s.log.Warn("vault operation rejected", fields...)
		return
	}
	s.log.Info("vault operation committed", fields...)
}
