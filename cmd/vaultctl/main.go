// Command vaultctl is the vault owner's client: it keeps the owner key in an
// encrypted .cwt file and signs vault requests sent to a dcavault server.
//
// Usage:
//
//	vaultctl keygen
//	vaultctl init --amount 100 --periods 10 --interval 24h
//	vaultctl swap [--payload payload.json]
//	vaultctl withdraw [--dest <holding>]
//	vaultctl show [--value]
//	vaultctl balance
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/AlexZinkM/dca-vault/internal/address"
	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/client"
	"github.com/AlexZinkM/dca-vault/internal/common"
	"github.com/AlexZinkM/dca-vault/internal/config"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/keystore"
	"github.com/AlexZinkM/dca-vault/internal/model"
	"github.com/AlexZinkM/dca-vault/internal/vault"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

type app struct {
	cfg   *config.ClientConfig
	vault *client.VaultClient
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Owner client of the dcavault server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.vault = client.NewVaultClient(cfg.ServerURL)
			return nil
		},
	}

	rootCmd.AddCommand(newKeygenCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newSwapCmd(a))
	rootCmd.AddCommand(newWithdrawCmd(a))
	rootCmd.AddCommand(newShowCmd(a))
	rootCmd.AddCommand(newBalanceCmd(a))
	return rootCmd
}

// loadKey prompts for the password and decrypts the owner key.
func (a *app) loadKey() (solana.PrivateKey, error) {
	password, err := config.PromptForPassword("Password for " + a.cfg.KeyFile + ": ")
	if err != nil {
		return nil, err
	}
	defer clear(password)
	return keystore.Load(a.cfg.KeyFile, password)
}

// sequence returns the event count the next request of owner must be signed with.
func (a *app) sequence(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	history, err := a.vault.GetEvents(ctx, owner)
	if err != nil {
		return 0, err
	}
	return history.Sequence, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newKeygenCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new encrypted owner key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.KeyFile
			}

			password, err := config.PromptForPassword("New password: ")
			if err != nil {
				return err
			}
			defer clear(password)

			confirm, err := config.PromptForPassword("Repeat password: ")
			if err != nil {
				return err
			}
			defer clear(confirm)
			if string(password) != string(confirm) {
				return errors.New("passwords do not match")
			}

			owner, err := keystore.Generate(out, password)
			if err != nil {
				return err
			}
			fmt.Printf("owner %s saved to %s\n", owner, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "key file to create (.cwt), VAULT_KEY_FILE when empty")
	return cmd
}

func newInitCmd(a *app) *cobra.Command {
	var (
		amount   string
		periods  uint16
		interval time.Duration
		deposit  string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Lock a deposit into a new vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := common.USDCToMicro(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount: %w", err)
			}
			ownerDeposit, err := model.ParseKey("--deposit", deposit)
			if err != nil {
				return err
			}

			key, err := a.loadKey()
			if err != nil {
				return err
			}
			defer clear(key)

			seq, err := a.sequence(cmd.Context(), key.PublicKey())
			if err != nil {
				return err
			}
			req := vault.InitializeRequest{
				Sequence:        seq,
				OwnerDeposit:    ownerDeposit,
				TotalAmount:     total,
				Periods:         periods,
				IntervalSeconds: uint64(interval.Seconds()),
			}
			if req.Auth, err = auth.Sign(key, auth.OpInitialize, time.Now(), req.Digest()); err != nil {
				return err
			}

			v, err := a.vault.Initialize(cmd.Context(), model.NewInitializeRequest(req))
			if err != nil {
				return err
			}
			return printJSON(v)
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "total deposit in USDC, e.g. 100.5")
	cmd.Flags().Uint16Var(&periods, "periods", 0, "number of scheduled swaps")
	cmd.Flags().DurationVar(&interval, "interval", 24*time.Hour, "time between swaps")
	cmd.Flags().StringVar(&deposit, "deposit", "", "owner deposit holding (derived when empty)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("periods")
	return cmd
}

func newSwapCmd(a *app) *cobra.Command {
	var (
		payloadFile string
		slippage    uint16
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute the next due swap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("slippage-bps") {
				slippage = a.cfg.SlippageBPS
			}

			key, err := a.loadKey()
			if err != nil {
				return err
			}
			defer clear(key)
			owner := key.PublicKey()

			v, err := a.vault.GetVault(ctx, owner)
			if err != nil {
				return err
			}
			if v.Complete {
				return errors.New("dca plan is already complete")
			}
			if wait := time.Until(time.Unix(v.NextSwapTime, 0)); wait > 0 {
				return fmt.Errorf("next swap is due in %s", wait.Round(time.Second))
			}

			var payload exchange.Payload
			if payloadFile != "" {
				payload, err = readPayload(payloadFile)
			} else {
				payload, err = quotePayload(ctx, a.cfg, v, owner, slippage)
			}
			if err != nil {
				return err
			}

			seq, err := a.sequence(ctx, owner)
			if err != nil {
				return err
			}
			req := vault.SwapRequest{Sequence: seq, Owner: owner, Amount: v.SliceAmount, Payload: payload}
			if req.Auth, err = auth.Sign(key, auth.OpExecuteSwap, time.Now(), req.Digest()); err != nil {
				return err
			}

			res, err := a.vault.Swap(ctx, model.NewSwapRequest(req))
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&payloadFile, "payload", "", "exchange payload JSON file (quoted from Jupiter when empty)")
	cmd.Flags().Uint16Var(&slippage, "slippage-bps", 0, "quote slippage in basis points, SLIPPAGE_BPS when unset")
	return cmd
}

func readPayload(path string) (exchange.Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return exchange.Payload{}, fmt.Errorf("failed to read payload: %w", err)
	}
	var dto model.PayloadDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return exchange.Payload{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	return dto.ToPayload()
}

// quotePayload asks the routing service for an exact-in route of the next
// slice, executed by the vault and paying out to the owner's output holding.
func quotePayload(ctx context.Context, cfg *config.ClientConfig, v *model.VaultResponse, owner solana.PublicKey, slippage uint16) (exchange.Payload, error) {
	vaultAddr, err := model.ParseRequiredKey("vault.address", v.Address)
	if err != nil {
		return exchange.Payload{}, err
	}
	depositMint, err := model.ParseRequiredKey("vault.depositMint", v.DepositMint)
	if err != nil {
		return exchange.Payload{}, err
	}
	outputMint, err := model.ParseRequiredKey("vault.outputMint", v.OutputMint)
	if err != nil {
		return exchange.Payload{}, err
	}
	dest, err := address.Holding(owner, outputMint)
	if err != nil {
		return exchange.Payload{}, err
	}

	jup := client.NewJupiterClient(cfg.JupiterAPIURL)
	quote, err := jup.GetQuote(ctx, depositMint, outputMint, v.SliceAmount, slippage)
	if err != nil {
		return exchange.Payload{}, err
	}
	fmt.Fprintf(os.Stderr, "quote: %s USDC -> %s SOL (min %s)\n",
		common.MicroToUSDC(quote.InAmount), common.LamportsToSOL(quote.OutAmount), common.LamportsToSOL(quote.MinOut))

	return jup.GetSwapInstructions(ctx, vaultAddr, dest, quote)
}

func newWithdrawCmd(a *app) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw the remainder and close the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			destination, err := model.ParseKey("--dest", dest)
			if err != nil {
				return err
			}

			key, err := a.loadKey()
			if err != nil {
				return err
			}
			defer clear(key)

			seq, err := a.sequence(cmd.Context(), key.PublicKey())
			if err != nil {
				return err
			}
			req := vault.WithdrawRequest{Sequence: seq, Owner: key.PublicKey(), Destination: destination}
			if req.Auth, err = auth.Sign(key, auth.OpWithdraw, time.Now(), req.Digest()); err != nil {
				return err
			}

			res, err := a.vault.Withdraw(cmd.Context(), model.NewWithdrawRequest(req))
			if err != nil {
				return err
			}
			if res.EarlyExit {
				fmt.Fprintf(os.Stderr, "early exit: fee %s USDC\n", common.MicroToUSDC(res.Fee))
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "owner deposit holding to pay out to (derived when empty)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var value bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the vault and its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := keystore.Address(a.cfg.KeyFile)
			if err != nil {
				return err
			}

			out := struct {
				Vault    *model.VaultResponse  `json:"vault,omitempty"`
				Events   *model.EventsResponse `json:"history"`
				OutputUS string                `json:"outputValueUSD,omitempty"`
			}{}

			if out.Events, err = a.vault.GetEvents(ctx, owner); err != nil {
				return err
			}
			out.Vault, err = a.vault.GetVault(ctx, owner)
			if errors.Is(err, vaulterr.ErrNotFound) {
				err = nil // withdrawn or never created
			}
			if err != nil {
				return err
			}

			if value && out.Vault != nil {
				rate, err := client.NewCoinGeckoClient(a.cfg.CoinGeckoURL).GetSOLtoUSDrate(ctx)
				if err != nil {
					return err
				}
				out.OutputUS, err = common.ValueOf(out.Vault.TotalOutputReceived, common.SOLDecimals, rate)
				if err != nil {
					return err
				}
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&value, "value", false, "value the accumulated output in USD")
	return cmd
}

func newBalanceCmd(a *app) *cobra.Command {
	var depositMint string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print on-chain wallet balances of the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := keystore.Address(a.cfg.KeyFile)
			if err != nil {
				return err
			}
			mint, err := model.ParseRequiredKey("--deposit-mint", depositMint)
			if err != nil {
				return err
			}

			bal, err := client.NewSolanaClient(a.cfg.SolanaRPCURL).GetBalance(cmd.Context(), owner, mint, solana.WrappedSol)
			if err != nil {
				return err
			}
			fmt.Printf("owner  %s\nSOL    %s\n", owner, common.LamportsToSOL(bal.Lamports))
			for _, tb := range bal.Tokens {
				status := ""
				if !tb.Exists {
					status = " (no token account)"
				}
				fmt.Printf("%s %d%s\n", tb.Mint, tb.Amount, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&depositMint, "deposit-mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "deposit asset mint")
	return cmd
}
