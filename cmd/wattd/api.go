package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/mr-tron/base58"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/auth"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/token"
)

// api holds the HTTP boundary: JSON decoding, signature verification and
// error-to-status mapping around the token service.
type api struct {
	svc    *token.Service
	seeder accountSeeder
	logger *log.Logger
}

func newAPI(svc *token.Service, seeder accountSeeder, logger *log.Logger) *api {
	return &api{svc: svc, seeder: seeder, logger: logger}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /v1/initialize", a.handleInitialize)
	mux.HandleFunc("GET /v1/config", a.handleGetConfig)
	mux.HandleFunc("POST /v1/payments", a.handlePayment)
	mux.HandleFunc("POST /v1/stakes", a.handleStake)
	mux.HandleFunc("POST /v1/stakes/claim", a.handleClaim)
	mux.HandleFunc("GET /v1/stakes/{id}", a.handleGetStake)
	mux.HandleFunc("GET /v1/stakes", a.handleListStakes)
	mux.HandleFunc("GET /v1/balance", a.handleBalance)
	mux.HandleFunc("POST /v1/accounts", a.handleCreateAccount)

	return mux
}

// signatureJSON is one detached signature in a request body, base58 both ways.
type signatureJSON struct {
	Signer string `json:"signer"`
	Sig    string `json:"sig"`
}

func decodeSignatures(in []signatureJSON) ([]auth.Signature, error) {
	out := make([]auth.Signature, 0, len(in))
	for _, s := range in {
		raw, err := base58.Decode(s.Sig)
		if err != nil {
			return nil, fmt.Errorf("decode signature of %s: %w", s.Signer, err)
		}
		out = append(out, auth.Signature{Signer: domain.Address(s.Signer), Sig: raw})
	}
	return out, nil
}

type initializeRequest struct {
	Authority    string          `json:"authority"`
	Mint         string          `json:"mint"`
	UtilityVault string          `json:"utility_vault"`
	TotalSupply  uint64          `json:"total_supply"`
	BurnRateBp   uint16          `json:"burn_rate_bp"`
	Signatures   []signatureJSON `json:"signatures"`
}

func (a *api) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	sigs, err := decodeSignatures(req.Signatures)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	payload := initPayload(req)
	if err := auth.VerifySigner(payload, domain.Address(req.Authority), sigs); err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	cfg, err := a.svc.Initialize(r.Context(), token.InitializeParams{
		Authority:    domain.Address(req.Authority),
		Mint:         domain.Address(req.Mint),
		UtilityVault: domain.Address(req.UtilityVault),
		TotalSupply:  req.TotalSupply,
		BurnRateBp:   req.BurnRateBp,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, configResponse(cfg))
}

func (a *api) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.svc.Config(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, configResponse(cfg))
}

type paymentRequest struct {
	Amount     uint64          `json:"amount"`
	TaskID     string          `json:"task_id"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	BurnVault  string          `json:"burn_vault"`
	Signatures []signatureJSON `json:"signatures"`
}

func (a *api) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	sigs, err := decodeSignatures(req.Signatures)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	payload := paymentPayload(req)
	if err := auth.VerifySigner(payload, domain.Address(req.From), sigs); err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	receipt, err := a.svc.ExecuteTaskPayment(r.Context(), token.PaymentParams{
		Amount:    req.Amount,
		TaskID:    req.TaskID,
		From:      domain.Address(req.From),
		To:        domain.Address(req.To),
		BurnVault: domain.Address(req.BurnVault),
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"net_amount":   receipt.NetAmount,
		"burn_amount":  receipt.BurnAmount,
		"total_burned": receipt.TotalBurned,
	})
}

type stakeRequest struct {
	Owner        string          `json:"owner"`
	StakeVault   string          `json:"stake_vault"`
	Amount       uint64          `json:"amount"`
	DurationDays uint8           `json:"duration_days"`
	Reference    string          `json:"reference"`
	Signatures   []signatureJSON `json:"signatures"`
}

func (a *api) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	sigs, err := decodeSignatures(req.Signatures)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	payload := stakePayload(req)
	if err := auth.VerifySigner(payload, domain.Address(req.Owner), sigs); err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	stake, err := a.svc.StakeForEnergyRebate(r.Context(), token.StakeParams{
		Owner:        domain.Address(req.Owner),
		StakeVault:   domain.Address(req.StakeVault),
		Amount:       req.Amount,
		DurationDays: req.DurationDays,
		Reference:    req.Reference,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, stakeResponse(stake))
}

type claimRequest struct {
	StakeID      string          `json:"stake_id"`
	EnergyKwh    uint64          `json:"energy_kwh"`
	OwnerAccount string          `json:"owner_account"`
	StakeVault   string          `json:"stake_vault"`
	RebateVault  string          `json:"rebate_vault"`
	Signatures   []signatureJSON `json:"signatures"`
}

// handleClaim verifies the dual-signer rule before releasing a rebate: the
// stake owner and the configured authority must both have signed the claim
// payload with distinct keys.
func (a *api) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	sigs, err := decodeSignatures(req.Signatures)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := a.svc.Config(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	payload := claimPayload(req)
	if err := auth.VerifyClaim(payload, domain.Address(req.OwnerAccount), cfg.Authority, sigs); err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	receipt, err := a.svc.ClaimEnergyRebate(r.Context(), token.ClaimParams{
		StakeID:      req.StakeID,
		EnergyKwh:    req.EnergyKwh,
		OwnerAccount: domain.Address(req.OwnerAccount),
		StakeVault:   domain.Address(req.StakeVault),
		RebateVault:  domain.Address(req.RebateVault),
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"stake_id":      receipt.StakeID,
		"rebate_amount": receipt.RebateAmount,
		"principal":     receipt.Principal,
	})
}

func (a *api) handleGetStake(w http.ResponseWriter, r *http.Request) {
	stake, err := a.svc.Stake(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stakeResponse(stake))
}

func (a *api) handleListStakes(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("owner query parameter is required"))
		return
	}
	stakes, err := a.svc.StakesByOwner(r.Context(), domain.Address(owner))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(stakes))
	for _, s := range stakes {
		out = append(out, stakeResponse(s))
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"stakes": out})
}

func (a *api) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("account query parameter is required"))
		return
	}
	balance, err := a.svc.Balance(r.Context(), domain.Address(account))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"account": account, "balance": balance})
}

type createAccountRequest struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// handleCreateAccount provisions a ledger account. Unavailable when
// balances are custodied on-chain; accounts exist there already.
func (a *api) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if a.seeder == nil {
		a.writeError(w, http.StatusNotImplemented,
			errors.New("account provisioning is unavailable with on-chain custody"))
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if !domain.ValidAddress(domain.Address(req.Account)) {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid account address %q", req.Account))
		return
	}
	if err := a.seeder.CreateAccount(r.Context(), req.Account, req.Balance); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{"account": req.Account, "balance": req.Balance})
}

// Canonical signing payloads. Field order is fixed; every field the
// operation acts on is bound into the signature.

func initPayload(req initializeRequest) []byte {
	return fmt.Appendf(nil, "init|%s|%s|%s|%d|%d",
		req.Authority, req.Mint, req.UtilityVault, req.TotalSupply, req.BurnRateBp)
}

func paymentPayload(req paymentRequest) []byte {
	return fmt.Appendf(nil, "pay|%s|%s|%s|%s|%d",
		req.TaskID, req.From, req.To, req.BurnVault, req.Amount)
}

func stakePayload(req stakeRequest) []byte {
	return fmt.Appendf(nil, "stake|%s|%s|%d|%d|%s",
		req.Owner, req.StakeVault, req.Amount, req.DurationDays, req.Reference)
}

func claimPayload(req claimRequest) []byte {
	return fmt.Appendf(nil, "claim|%s|%d|%s|%s|%s",
		req.StakeID, req.EnergyKwh, req.OwnerAccount, req.StakeVault, req.RebateVault)
}

func configResponse(cfg *domain.TokenConfig) map[string]any {
	return map[string]any{
		"authority":     cfg.Authority,
		"mint":          cfg.Mint,
		"burn_rate_bp":  cfg.BurnRateBp,
		"total_burned":  cfg.TotalBurned,
		"utility_vault": cfg.UtilityVault,
		"created_at":    cfg.CreatedAt,
	}
}

func stakeResponse(s *domain.StakeAccount) map[string]any {
	return map[string]any{
		"stake_id":   s.StakeID,
		"owner":      s.Owner,
		"amount":     s.Amount,
		"start_time": s.StartTime,
		"duration":   s.Duration,
		"matures_at": s.MaturesAt(),
		"claimed":    s.Claimed,
	}
}

// writeServiceError maps service errors onto HTTP statuses.
func (a *api) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrInvalidAddress),
		errors.Is(err, token.ErrBurnRateTooHigh),
		errors.Is(err, storage.ErrInvalidInput):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, token.ErrNotInitialized),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, ledger.ErrUnknownAccount):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, token.ErrAlreadyInitialized),
		errors.Is(err, token.ErrAlreadyClaimed),
		errors.Is(err, token.ErrStakingPeriodNotComplete),
		errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrStaleVersion):
		a.writeError(w, http.StatusConflict, err)
	case errors.Is(err, token.ErrVaultMismatch),
		errors.Is(err, token.ErrArithmetic),
		errors.Is(err, ledger.ErrInsufficientFunds):
		a.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		a.logger.Printf("internal error: %v", err)
		a.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]any{"error": err.Error()})
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Printf("encode response: %v", err)
	}
}
