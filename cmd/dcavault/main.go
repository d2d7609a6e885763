// Command dcavault serves the DCA vault HTTP API.
//
// @title        DCA Vault API
// @version      1.0
// @description  Custodied dollar-cost averaging vaults with scheduled delegated swaps.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/api"
	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/config"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/exchange/stub"
	"github.com/AlexZinkM/dca-vault/internal/handler"
	"github.com/AlexZinkM/dca-vault/internal/ledger"
	"github.com/AlexZinkM/dca-vault/internal/ledger/memory"
	"github.com/AlexZinkM/dca-vault/internal/ledger/postgres"
	"github.com/AlexZinkM/dca-vault/internal/logging"
	"github.com/AlexZinkM/dca-vault/internal/observability"
	"github.com/AlexZinkM/dca-vault/internal/vault"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg := config.Get()

	log, _, err := logging.New(logging.Config{Environment: logging.Environment(cfg.LogEnv), Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	keys, err := parseKeys(cfg)
	if err != nil {
		return err
	}

	l, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer l.Close()

	deriver, err := address.NewDeriver(keys.program, cfg.VaultSeed)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg, "")

	svc, err := vault.New(
		l,
		auth.NewGuard(time.Now, cfg.AuthMaxSkew),
		exchange.NewGateway(keys.router, newExecutor(cfg, keys)),
		deriver,
		vault.Config{
			DepositMint:     keys.deposit,
			OutputMint:      keys.output,
			EarlyExitFeeBPS: cfg.EarlyExitFeeBPS,
			FeeSink:         keys.feeSink,
		},
		vault.WithLogger(log.Named("vault")),
		vault.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	if cfg.ExchangeMode == config.ExchangeFixed && cfg.FixedPoolLiquidity > 0 {
		if _, err := svc.TopUp(ctx, keys.router, keys.output, cfg.FixedPoolLiquidity); err != nil {
			return fmt.Errorf("seed fixed-rate pool: %w", err)
		}
	}

	router := api.SetupRouter(handler.NewVaultHandler(svc, log.Named("http")), api.Options{
		Logger:   log.Named("http"),
		Metrics:  metrics,
		Gatherer: reg,
		Faucet:   cfg.DevFaucet,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("ledger", cfg.LedgerBackend),
			zap.String("exchange", cfg.ExchangeMode),
			zap.Stringer("fee_sink", svc.FeeSink()),
			zap.Bool("dev_faucet", cfg.DevFaucet),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type keySet struct {
	program, router, deposit, output, feeSink solana.PublicKey
}

func parseKeys(cfg *config.Config) (keySet, error) {
	var ks keySet
	fields := []struct {
		name, value string
		dst         *solana.PublicKey
	}{
		{"VAULT_PROGRAM_ID", cfg.VaultProgramID, &ks.program},
		{"ROUTER_PROGRAM_ID", cfg.RouterProgramID, &ks.router},
		{"DEPOSIT_MINT", cfg.DepositMint, &ks.deposit},
		{"OUTPUT_MINT", cfg.OutputMint, &ks.output},
		{"FEE_SINK", cfg.FeeSink, &ks.feeSink},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(f.value)
		if err != nil {
			return keySet{}, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dst = key
	}
	return ks, nil
}

func openLedger(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Ledger, error) {
	if cfg.LedgerBackend != config.LedgerPostgres {
		log.Warn("using in-memory ledger, state is lost on restart")
		return memory.New(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.New(pool), nil
}

func newExecutor(cfg *config.Config, keys keySet) exchange.Executor {
	if cfg.ExchangeMode == config.ExchangeRemote {
		return exchange.NewRemoteExecutor(cfg.ExchangeEndpoint)
	}
	return &stub.FixedRate{Num: cfg.FixedRateNum, Den: cfg.FixedRateDen, OutputMint: keys.output}
}
