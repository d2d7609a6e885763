package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/AlexZinkM/dca-vault/internal/domain"
	"github.com/AlexZinkM/dca-vault/internal/model"
	"github.com/AlexZinkM/dca-vault/internal/vault"
	"github.com/AlexZinkM/dca-vault/internal/vaulterr"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

const qrSize = 256

// VaultService is the controller surface served over HTTP.
type VaultService interface {
	Initialize(ctx context.Context, req vault.InitializeRequest) (*domain.Vault, error)
	ExecuteSwap(ctx context.Context, req vault.SwapRequest) (*vault.SwapResult, error)
	Withdraw(ctx context.Context, req vault.WithdrawRequest) (*vault.WithdrawResult, error)
	Get(ctx context.Context, owner solana.PublicKey) (*domain.Vault, error)
	Events(ctx context.Context, owner solana.PublicKey) ([]*domain.Event, error)
	Holding(ctx context.Context, authority, asset solana.PublicKey) (*domain.Holding, error)
	Faucet(ctx context.Context, authority, asset solana.PublicKey, amount uint64) (*domain.Holding, error)
	VaultAddress(owner solana.PublicKey) (solana.PublicKey, error)
}

// VaultHandler serves the vault endpoints
type VaultHandler struct {
	svc VaultService
	log *zap.Logger
}

// NewVaultHandler creates a new VaultHandler
func NewVaultHandler(svc VaultService, log *zap.Logger) *VaultHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VaultHandler{svc: svc, log: log}
}

// Initialize handles POST /vault/initialize
// @Summary      Create vault
// @Description  Locks totalAmount of the deposit asset into a new vault for the signing owner
// @Tags         vault
// @Accept       json
// @Produce      json
// @Param        request  body      model.InitializeRequest  true  "Signed initialize request"
// @Success      200      {object}  model.VaultResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Router       /vault/initialize [post]
func (h *VaultHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var body model.InitializeRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := body.ToVault()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	v, err := h.svc.Initialize(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewVaultResponse(v))
}

// Swap handles POST /vault/swap
// @Summary      Execute scheduled swap
// @Description  Executes one due tranche of the vault through the supplied exchange payload
// @Tags         vault
// @Accept       json
// @Produce      json
// @Param        request  body      model.SwapRequest  true  "Signed swap request"
// @Success      200      {object}  model.SwapResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /vault/swap [post]
func (h *VaultHandler) Swap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var body model.SwapRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := body.ToVault()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.svc.ExecuteSwap(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewSwapResponse(res))
}

// Withdraw handles POST /vault/withdraw
// @Summary      Withdraw and close vault
// @Description  Pays out the remaining deposit, minus the early-exit fee while swaps remain, and closes the vault
// @Tags         vault
// @Accept       json
// @Produce      json
// @Param        request  body      model.WithdrawRequest  true  "Signed withdraw request"
// @Success      200      {object}  model.WithdrawResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Router       /vault/withdraw [post]
func (h *VaultHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var body model.WithdrawRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := body.ToVault()
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.svc.Withdraw(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewWithdrawResponse(res))
}

// Get handles GET /vault
// @Summary      Get vault
// @Description  Returns the vault of the given owner
// @Tags         vault
// @Produce      json
// @Param        owner  query     string  true  "Owner public key"
// @Success      200    {object}  model.VaultResponse
// @Failure      404    {object}  model.ErrorResponse
// @Router       /vault [get]
func (h *VaultHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	owner, err := model.ParseRequiredKey("owner", r.URL.Query().Get("owner"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	v, err := h.svc.Get(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewVaultResponse(v))
}

// Events handles GET /vault/events
// @Summary      Get vault history
// @Description  Returns the event history of the owner's vault, including after withdrawal
// @Tags         vault
// @Produce      json
// @Param        owner  query     string  true  "Owner public key"
// @Success      200    {object}  model.EventsResponse
// @Router       /vault/events [get]
func (h *VaultHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	owner, err := model.ParseRequiredKey("owner", r.URL.Query().Get("owner"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	addr, err := h.svc.VaultAddress(owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	events, err := h.svc.Events(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewEventsResponse(addr, events))
}

// QR handles GET /vault/qr
// @Summary      Custody address QR
// @Description  Returns a PNG QR code of the vault's custody holding address
// @Tags         vault
// @Produce      png
// @Param        owner  query  string  true  "Owner public key"
// @Success      200
// @Failure      404    {object}  model.ErrorResponse
// @Router       /vault/qr [get]
func (h *VaultHandler) QR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	owner, err := model.ParseRequiredKey("owner", r.URL.Query().Get("owner"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	v, err := h.svc.Get(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}

	png, err := qrcode.Encode(v.Custody.String(), qrcode.Medium, qrSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Holding handles GET /holding
// @Summary      Get holding balance
// @Description  Returns the associated holding of an authority for an asset
// @Tags         holding
// @Produce      json
// @Param        authority  query     string  true  "Authority public key"
// @Param        asset      query     string  true  "Asset mint"
// @Success      200        {object}  model.HoldingResponse
// @Failure      404        {object}  model.ErrorResponse
// @Router       /holding [get]
func (h *VaultHandler) Holding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	authority, err := model.ParseRequiredKey("authority", q.Get("authority"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	asset, err := model.ParseRequiredKey("asset", q.Get("asset"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	holding, err := h.svc.Holding(r.Context(), authority, asset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewHoldingResponse(holding))
}

// Faucet handles POST /dev/faucet
// @Summary      Issue test funds
// @Description  Credits an authority's holding. Served only when DEV_FAUCET is enabled
// @Tags         dev
// @Accept       json
// @Produce      json
// @Param        request  body      model.FaucetRequest  true  "Faucet request"
// @Success      200      {object}  model.HoldingResponse
// @Router       /dev/faucet [post]
func (h *VaultHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var body model.FaucetRequest
	if !decode(w, r, &body) {
		return
	}
	authority, err := model.ParseRequiredKey("authority", body.Authority)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	asset, err := model.ParseRequiredKey("asset", body.Asset)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	holding, err := h.svc.Faucet(r.Context(), authority, asset, body.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewHoldingResponse(holding))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeBadRequest reports a body or query that could not be parsed.
func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error: err.Error(),
		Code:  string(vaulterr.CodeInvalidRequest),
		Kind:  string(vaulterr.KindValidation),
	})
}

func (h *VaultHandler) writeError(w http.ResponseWriter, err error) {
	code := vaulterr.CodeOf(err)
	status := StatusOf(code)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}

	resp := model.ErrorResponse{Error: err.Error(), Code: string(code), Kind: string(code.Kind())}
	var ve *vaulterr.Error
	if !errors.As(err, &ve) {
		// Untagged infrastructure errors stay in the log.
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

// StatusOf maps an error tag to its HTTP status.
func StatusOf(code vaulterr.Code) int {
	switch code {
	case vaulterr.CodeInvalidDestination:
		return http.StatusBadRequest
	case vaulterr.CodeUnauthorized:
		return http.StatusUnauthorized
	}

	switch code.Kind() {
	case vaulterr.KindValidation:
		return http.StatusBadRequest
	case vaulterr.KindAuthorization:
		return http.StatusForbidden
	case vaulterr.KindSchedule, vaulterr.KindConflict:
		return http.StatusConflict
	case vaulterr.KindFunds:
		return http.StatusUnprocessableEntity
	case vaulterr.KindExternal:
		return http.StatusBadGateway
	case vaulterr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
