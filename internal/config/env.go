package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Ledger backends
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Exchange modes
const (
	ExchangeFixed  = "fixed"
	ExchangeRemote = "remote"
)

// Config contains all configuration parameters of the vault server.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogEnv   string `envconfig:"LOG_ENV" default:"production"`

	LedgerBackend string `envconfig:"LEDGER_BACKEND" default:"memory"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`

	VaultProgramID  string `envconfig:"VAULT_PROGRAM_ID" default:"AZDprYt6ksZxH1nUFQdSEp84GYu9WpvG68M4oNmscTFF"`
	VaultSeed       string `envconfig:"VAULT_SEED" default:"dcavault"`
	DepositMint     string `envconfig:"DEPOSIT_MINT" default:"4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"`
	OutputMint      string `envconfig:"OUTPUT_MINT" default:"So11111111111111111111111111111111111111112"`
	RouterProgramID string `envconfig:"ROUTER_PROGRAM_ID" default:"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"`

	EarlyExitFeeBPS uint16        `envconfig:"EARLY_EXIT_FEE_BPS" default:"50"`
	FeeSink         string        `envconfig:"FEE_SINK"`
	AuthMaxSkew     time.Duration `envconfig:"AUTH_MAX_SKEW" default:"2m"`

	ExchangeMode     string `envconfig:"EXCHANGE_MODE" default:"fixed"`
	ExchangeEndpoint string `envconfig:"EXCHANGE_ENDPOINT"`
	FixedRateNum     uint64 `envconfig:"FIXED_RATE_NUM" default:"1"`
	FixedRateDen     uint64 `envconfig:"FIXED_RATE_DEN" default:"150"`

	// FixedPoolLiquidity is the balance the router's output pool is topped up to at startup.
	FixedPoolLiquidity uint64 `envconfig:"FIXED_POOL_LIQUIDITY" default:"0"`

	DevFaucet bool `envconfig:"DEV_FAUCET" default:"false"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

func (c *Config) validate() error {
	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}

	switch c.ExchangeMode {
	case ExchangeFixed:
		if c.FixedRateDen == 0 {
			return errors.New("FIXED_RATE_DEN must be greater than zero")
		}
	case ExchangeRemote:
		if c.ExchangeEndpoint == "" {
			return errors.New("EXCHANGE_ENDPOINT is required for the remote exchange")
		}
	default:
		return fmt.Errorf("unknown EXCHANGE_MODE %q", c.ExchangeMode)
	}

	if c.EarlyExitFeeBPS > 10_000 {
		return fmt.Errorf("EARLY_EXIT_FEE_BPS %d exceeds 10000", c.EarlyExitFeeBPS)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetLedgerBackend returns the configured ledger backend name
func GetLedgerBackend() string {
	return Get().LedgerBackend
}

// GetPostgresDSN returns the PostgreSQL connection string
func GetPostgresDSN() string {
	return Get().PostgresDSN
}

// GetEarlyExitFeeBPS returns the early-exit fee in basis points
func GetEarlyExitFeeBPS() uint16 {
	return Get().EarlyExitFeeBPS
}

// GetAuthMaxSkew returns how far a request timestamp may drift
func GetAuthMaxSkew() time.Duration {
	return Get().AuthMaxSkew
}

// IsDevFaucetEnabled reports whether POST /dev/faucet is served
func IsDevFaucetEnabled() bool {
	return Get().DevFaucet
}

// ClientConfig contains the settings of the vaultctl owner client.
type ClientConfig struct {
	ServerURL     string `envconfig:"DCAVAULT_URL" default:"http://localhost:8080"`
	KeyFile       string `envconfig:"VAULT_KEY_FILE" default:"owner.cwt"`
	JupiterAPIURL string `envconfig:"JUPITER_API_URL" default:"https://quote-api.jup.ag/v6"`
	SolanaRPCURL  string `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	CoinGeckoURL  string `envconfig:"COINGECKO_API_URL" default:"https://api.coingecko.com/api/v3"`
	SlippageBPS   uint16 `envconfig:"SLIPPAGE_BPS" default:"50"`
}

// LoadClient reads the vaultctl configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	c := &ClientConfig{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process client config: %w", err)
	}
	return c, nil
}

// PromptForPassword prompts for the key file password in the terminal.
// The password is read without echoing. Caller must zero the returned slice.
func PromptForPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}
