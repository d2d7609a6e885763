package model

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/AlexZinkM/dca-vault/internal/auth"
	"github.com/AlexZinkM/dca-vault/internal/common"
	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/exchange"
	"github.com/AlexZinkM/dca-vault/internal/vault"
)

// ParseKey parses a base58 public key. An empty string yields the zero key.
func ParseKey(field, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return key, nil
}

// ParseRequiredKey is ParseKey that rejects an empty string.
func ParseRequiredKey(field, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", field)
	}
	return ParseKey(field, s)
}

func formatKey(key solana.PublicKey) string {
	if key.IsZero() {
		return ""
	}
	return key.String()
}

// ToAuth converts the envelope into a guard request.
func (e AuthEnvelope) ToAuth() (auth.Request, error) {
	caller, err := ParseRequiredKey("auth.caller", e.Caller)
	if err != nil {
		return auth.Request{}, err
	}
	req := auth.Request{Caller: caller, IssuedAt: time.Unix(e.IssuedAt, 0)}
	if e.Signature != "" {
		sig, err := solana.SignatureFromBase58(e.Signature)
		if err != nil {
			return auth.Request{}, fmt.Errorf("invalid auth.signature: %w", err)
		}
		req.Signature = sig
	}
	return req, nil
}

// NewAuthEnvelope converts a signed guard request into its wire form.
func NewAuthEnvelope(req auth.Request) AuthEnvelope {
	return AuthEnvelope{
		Caller:    req.Caller.String(),
		IssuedAt:  req.IssuedAt.Unix(),
		Signature: req.Signature.String(),
	}
}

// ToVault converts the request body into a controller request.
func (r InitializeRequest) ToVault() (vault.InitializeRequest, error) {
	a, err := r.Auth.ToAuth()
	if err != nil {
		return vault.InitializeRequest{}, err
	}
	deposit, err := ParseKey("ownerDeposit", r.OwnerDeposit)
	if err != nil {
		return vault.InitializeRequest{}, err
	}
	return vault.InitializeRequest{
		Auth:            a,
		Sequence:        r.Sequence,
		OwnerDeposit:    deposit,
		TotalAmount:     r.TotalAmount,
		Periods:         r.Periods,
		IntervalSeconds: r.IntervalSeconds,
	}, nil
}

// NewInitializeRequest converts a controller request into its wire form.
func NewInitializeRequest(req vault.InitializeRequest) InitializeRequest {
	return InitializeRequest{
		Auth:            NewAuthEnvelope(req.Auth),
		Sequence:        req.Sequence,
		OwnerDeposit:    formatKey(req.OwnerDeposit),
		TotalAmount:     req.TotalAmount,
		Periods:         req.Periods,
		IntervalSeconds: req.IntervalSeconds,
	}
}

// ToPayload converts the DTO into an exchange payload.
func (p PayloadDTO) ToPayload() (exchange.Payload, error) {
	var out exchange.Payload
	var err error
	if out.Target, err = ParseRequiredKey("payload.target", p.Target); err != nil {
		return exchange.Payload{}, err
	}
	if out.InputMint, err = ParseRequiredKey("payload.inputMint", p.InputMint); err != nil {
		return exchange.Payload{}, err
	}
	if out.OutputMint, err = ParseRequiredKey("payload.outputMint", p.OutputMint); err != nil {
		return exchange.Payload{}, err
	}
	if out.Destination, err = ParseRequiredKey("payload.destination", p.Destination); err != nil {
		return exchange.Payload{}, err
	}
	for i, acc := range p.Accounts {
		key, err := ParseRequiredKey(fmt.Sprintf("payload.accounts[%d]", i), acc.Pubkey)
		if err != nil {
			return exchange.Payload{}, err
		}
		out.Accounts = append(out.Accounts, solana.AccountMeta{
			PublicKey:  key,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}
	if out.RawData, err = base64.StdEncoding.DecodeString(p.Data); err != nil {
		return exchange.Payload{}, fmt.Errorf("invalid payload.data: %w", err)
	}
	return out, nil
}

// NewPayloadDTO converts an exchange payload into its wire form.
func NewPayloadDTO(p exchange.Payload) PayloadDTO {
	dto := PayloadDTO{
		Target:      p.Target.String(),
		InputMint:   p.InputMint.String(),
		OutputMint:  p.OutputMint.String(),
		Destination: p.Destination.String(),
		Accounts:    make([]AccountMetaDTO, 0, len(p.Accounts)),
		Data:        base64.StdEncoding.EncodeToString(p.RawData),
	}
	for _, acc := range p.Accounts {
		dto.Accounts = append(dto.Accounts, AccountMetaDTO{
			Pubkey:     acc.PublicKey.String(),
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}
	return dto
}

// ToVault converts the request body into a controller request.
func (r SwapRequest) ToVault() (vault.SwapRequest, error) {
	a, err := r.Auth.ToAuth()
	if err != nil {
		return vault.SwapRequest{}, err
	}
	owner, err := ParseRequiredKey("owner", r.Owner)
	if err != nil {
		return vault.SwapRequest{}, err
	}
	p, err := r.Payload.ToPayload()
	if err != nil {
		return vault.SwapRequest{}, err
	}
	return vault.SwapRequest{Auth: a, Sequence: r.Sequence, Owner: owner, Amount: r.Amount, Payload: p}, nil
}

// NewSwapRequest converts a controller request into its wire form.
func NewSwapRequest(req vault.SwapRequest) SwapRequest {
	return SwapRequest{
		Auth:     NewAuthEnvelope(req.Auth),
		Sequence: req.Sequence,
		Owner:    req.Owner.String(),
		Amount:   req.Amount,
		Payload:  NewPayloadDTO(req.Payload),
	}
}

// ToVault converts the request body into a controller request.
func (r WithdrawRequest) ToVault() (vault.WithdrawRequest, error) {
	a, err := r.Auth.ToAuth()
	if err != nil {
		return vault.WithdrawRequest{}, err
	}
	owner, err := ParseRequiredKey("owner", r.Owner)
	if err != nil {
		return vault.WithdrawRequest{}, err
	}
	dest, err := ParseKey("destination", r.Destination)
	if err != nil {
		return vault.WithdrawRequest{}, err
	}
	return vault.WithdrawRequest{Auth: a, Sequence: r.Sequence, Owner: owner, Destination: dest}, nil
}

// NewWithdrawRequest converts a controller request into its wire form.
func NewWithdrawRequest(req vault.WithdrawRequest) WithdrawRequest {
	return WithdrawRequest{
		Auth:        NewAuthEnvelope(req.Auth),
		Sequence:    req.Sequence,
		Owner:       req.Owner.String(),
		Destination: formatKey(req.Destination),
	}
}

// NewVaultResponse converts a vault record.
func NewVaultResponse(v *domain.Vault) VaultResponse {
	return VaultResponse{
		Address:             v.Address.String(),
		Owner:               v.Owner.String(),
		DepositMint:         v.DepositMint.String(),
		OutputMint:          v.OutputMint.String(),
		Custody:             v.Custody.String(),
		TotalAmount:         v.TotalAmount,
		TotalAmountUI:       common.MicroToUSDC(v.TotalAmount),
		Periods:             v.Periods,
		IntervalSeconds:     v.IntervalSeconds,
		CreatedAt:           v.CreatedAt,
		CurrBalance:         v.CurrBalance,
		CurrBalanceUI:       common.MicroToUSDC(v.CurrBalance),
		PeriodsCompleted:    v.PeriodsCompleted,
		NextSwapTime:        v.NextSwapTime,
		TotalOutputReceived: v.TotalOutputReceived,
		TotalOutputUI:       common.LamportsToSOL(v.TotalOutputReceived),
		SliceAmount:         v.SliceAmount(),
		Complete:            v.Complete(),
	}
}

// NewSwapResponse converts a swap result.
func NewSwapResponse(res *vault.SwapResult) SwapResponse {
	return SwapResponse{
		Vault:      NewVaultResponse(res.Vault),
		Received:   res.Received,
		ReceivedUI: common.LamportsToSOL(res.Received),
	}
}

// NewWithdrawResponse converts a withdraw result.
func NewWithdrawResponse(res *vault.WithdrawResult) WithdrawResponse {
	return WithdrawResponse{
		Vault:       res.Vault.String(),
		Destination: res.Destination.String(),
		Payout:      res.Payout,
		PayoutUI:    common.MicroToUSDC(res.Payout),
		Fee:         res.Fee,
		FeeSink:     res.FeeSink.String(),
		EarlyExit:   res.EarlyExit,
	}
}

// NewEventsResponse converts the event history of vault.
func NewEventsResponse(vaultAddr solana.PublicKey, events []*domain.Event) EventsResponse {
	out := EventsResponse{
		Vault:    vaultAddr.String(),
		Sequence: uint64(len(events)),
		Events:   make([]EventResponse, 0, len(events)),
	}
	for _, ev := range events {
		out.Events = append(out.Events, EventResponse{
			ID:               ev.ID.String(),
			Vault:            ev.Vault.String(),
			Owner:            ev.Owner.String(),
			Kind:             string(ev.Kind),
			Amount:           ev.Amount,
			OutputAmount:     ev.OutputAmount,
			Fee:              ev.Fee,
			PeriodsCompleted: ev.PeriodsCompleted,
			NextSwapTime:     ev.NextSwapTime,
			EarlyExit:        ev.EarlyExit,
			At:               ev.At.Format(time.RFC3339),
		})
	}
	return out
}

// NewHoldingResponse converts a holding.
func NewHoldingResponse(h *domain.Holding) HoldingResponse {
	return HoldingResponse{
		Address:   h.Address.String(),
		Authority: h.Authority.String(),
		Asset:     h.Asset.String(),
		Balance:   h.Balance,
	}
}
