package model

// AuthEnvelope carries the caller's signed request envelope.
type AuthEnvelope struct {
	Caller    string `json:"caller"`    // base58 owner public key
	IssuedAt  int64  `json:"issuedAt"`  // unix seconds
	Signature string `json:"signature"` // base58 ed25519 signature
}

// InitializeRequest represents request body for POST /vault/initialize
type InitializeRequest struct {
	Auth            AuthEnvelope `json:"auth"`
	Sequence        uint64       `json:"sequence"` // events recorded for the vault when signed
	OwnerDeposit    string       `json:"ownerDeposit,omitempty"`
	TotalAmount     uint64       `json:"totalAmount,string"` // deposit base units
	Periods         uint16       `json:"periods"`
	IntervalSeconds uint64       `json:"intervalSeconds,string"`
}

// AccountMetaDTO is one account reference of an exchange payload.
type AccountMetaDTO struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// PayloadDTO is the opaque exchange instruction issued by the routing service.
type PayloadDTO struct {
	Target      string           `json:"target"`
	InputMint   string           `json:"inputMint"`
	OutputMint  string           `json:"outputMint"`
	Destination string           `json:"destination"`
	Accounts    []AccountMetaDTO `json:"accounts"`
	Data        string           `json:"data"` // base64
}

// SwapRequest represents request body for POST /vault/swap
type SwapRequest struct {
	Auth     AuthEnvelope `json:"auth"`
	Sequence uint64       `json:"sequence"`
	Owner    string       `json:"owner"`
	Amount   uint64       `json:"amount,string"`
	Payload  PayloadDTO   `json:"payload"`
}

// WithdrawRequest represents request body for POST /vault/withdraw
type WithdrawRequest struct {
	Auth        AuthEnvelope `json:"auth"`
	Sequence    uint64       `json:"sequence"`
	Owner       string       `json:"owner"`
	Destination string       `json:"destination,omitempty"`
}

// VaultResponse represents a vault record
type VaultResponse struct {
	Address             string `json:"address"`
	Owner               string `json:"owner"`
	DepositMint         string `json:"depositMint"`
	OutputMint          string `json:"outputMint"`
	Custody             string `json:"custody"`
	TotalAmount         uint64 `json:"totalAmount,string"`
	TotalAmountUI       string `json:"totalAmountUI"`
	Periods             uint16 `json:"periods"`
	IntervalSeconds     uint64 `json:"intervalSeconds,string"`
	CreatedAt           int64  `json:"createdAt"`
	CurrBalance         uint64 `json:"currBalance,string"`
	CurrBalanceUI       string `json:"currBalanceUI"`
	PeriodsCompleted    uint16 `json:"periodsCompleted"`
	NextSwapTime        int64  `json:"nextSwapTime"`
	TotalOutputReceived uint64 `json:"totalOutputReceived,string"`
	TotalOutputUI       string `json:"totalOutputUI"`
	SliceAmount         uint64 `json:"sliceAmount,string"`
	Complete            bool   `json:"complete"`
}

// SwapResponse represents response for POST /vault/swap
type SwapResponse struct {
	Vault      VaultResponse `json:"vault"`
	Received   uint64        `json:"received,string"`
	ReceivedUI string        `json:"receivedUI"`
}

// WithdrawResponse represents response for POST /vault/withdraw
type WithdrawResponse struct {
	Vault       string `json:"vault"`
	Destination string `json:"destination"`
	Payout      uint64 `json:"payout,string"`
	PayoutUI    string `json:"payoutUI"`
	Fee         uint64 `json:"fee,string"`
	FeeSink     string `json:"feeSink"`
	EarlyExit   bool   `json:"earlyExit"`
}

// EventResponse represents a single vault event
type EventResponse struct {
	ID               string `json:"id"`
	Vault            string `json:"vault"`
	Owner            string `json:"owner"`
	Kind             string `json:"kind"`
	Amount           uint64 `json:"amount,string"`
	OutputAmount     uint64 `json:"outputAmount,string"`
	Fee              uint64 `json:"fee,string"`
	PeriodsCompleted uint16 `json:"periodsCompleted"`
	NextSwapTime     int64  `json:"nextSwapTime"`
	EarlyExit        bool   `json:"earlyExit"`
	At               string `json:"at"` // RFC3339
}

// EventsResponse represents response for GET /vault/events
type EventsResponse struct {
	Vault    string          `json:"vault"`
	Sequence uint64          `json:"sequence"` // the next request must be signed with this
	Events   []EventResponse `json:"events"`
}

// FaucetRequest represents request body for POST /dev/faucet
type FaucetRequest struct {
	Authority string `json:"authority"`
	Asset     string `json:"asset"`
	Amount    uint64 `json:"amount,string"`
}

// HoldingResponse represents a holding account balance
type HoldingResponse struct {
	Address   string `json:"address"`
	Authority string `json:"authority"`
	Asset     string `json:"asset"`
	Balance   uint64 `json:"balance,string"`
}
