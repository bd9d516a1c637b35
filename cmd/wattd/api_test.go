package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/events"
	ledgermem "github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger/memory"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/storage/memory"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/token"
)

// signer is one test identity that can produce request signatures.
type signer struct {
	addr string
	priv ed25519.PrivateKey
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return signer{addr: base58.Encode(pub), priv: priv}
}

func (s signer) sign(payload []byte) signatureJSON {
	return signatureJSON{
		Signer: s.addr,
		Sig:    base58.Encode(ed25519.Sign(s.priv, payload)),
	}
}

// vaultAddr returns a valid address that is not a signing key, like a
// program-derived vault.
func vaultAddr(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base58.Encode(raw)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	l := ledgermem.NewLedger()
	backend := memory.NewBackend(l)
	svc := token.New(token.Options{Backend: backend, Emitter: events.LogEmitter{}})
	a := newAPI(svc, memorySeeder{ledger: l}, log.New(os.Stderr, "[wattd-test] ", log.LstdFlags))
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func createAccount(t *testing.T, srv *httptest.Server, account string, balance uint64) {
	t.Helper()
	resp, _ := postJSON(t, srv, "/v1/accounts", createAccountRequest{Account: account, Balance: balance})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func initialize(t *testing.T, srv *httptest.Server, authority signer, utilityVault string) {
	t.Helper()
	req := initializeRequest{
		Authority:    authority.addr,
		Mint:         vaultAddr(t),
		UtilityVault: utilityVault,
		TotalSupply:  1_000_000_000,
		BurnRateBp:   100,
	}
	req.Signatures = []signatureJSON{authority.sign(initPayload(req))}
	resp, _ := postJSON(t, srv, "/v1/initialize", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_PaymentFlow(t *testing.T) {
	srv := newTestServer(t)
	authority := newSigner(t)
	payer := newSigner(t)
	payee := newSigner(t)
	utilityVault := vaultAddr(t)

	createAccount(t, srv, payer.addr, 1_000_000)
	createAccount(t, srv, payee.addr, 0)
	createAccount(t, srv, utilityVault, 0)
	initialize(t, srv, authority, utilityVault)

	req := paymentRequest{
		Amount:    100_000,
		TaskID:    "task-42",
		From:      payer.addr,
		To:        payee.addr,
		BurnVault: utilityVault,
	}
	req.Signatures = []signatureJSON{payer.sign(paymentPayload(req))}
	resp, body := postJSON(t, srv, "/v1/payments", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(99_000), body["net_amount"])
	require.Equal(t, float64(1_000), body["burn_amount"])
	require.Equal(t, float64(1_000), body["total_burned"])

	resp, body = getJSON(t, srv, "/v1/balance?account="+payee.addr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(99_000), body["balance"])

	resp, body = getJSON(t, srv, "/v1/config")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1_000), body["total_burned"])
}

func TestAPI_StakeAndClaim(t *testing.T) {
	srv := newTestServer(t)
	authority := newSigner(t)
	owner := newSigner(t)
	utilityVault := vaultAddr(t)
	stakeVault := vaultAddr(t)
	rebateVault := vaultAddr(t)

	createAccount(t, srv, owner.addr, 2_000_000)
	createAccount(t, srv, stakeVault, 0)
	createAccount(t, srv, rebateVault, 10_000_000)
	initialize(t, srv, authority, utilityVault)

	stakeReq := stakeRequest{
		Owner:        owner.addr,
		StakeVault:   stakeVault,
		Amount:       1_000_000,
		DurationDays: 0,
		Reference:    "meter-7",
	}
	stakeReq.Signatures = []signatureJSON{owner.sign(stakePayload(stakeReq))}
	resp, body := postJSON(t, srv, "/v1/stakes", stakeReq)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	stakeID, ok := body["stake_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, stakeID)

	resp, body = getJSON(t, srv, "/v1/stakes/"+stakeID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["claimed"])

	resp, body = getJSON(t, srv, "/v1/stakes?owner="+owner.addr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["stakes"], 1)

	claimReq := claimRequest{
		StakeID:      stakeID,
		EnergyKwh:    1,
		OwnerAccount: owner.addr,
		StakeVault:   stakeVault,
		RebateVault:  rebateVault,
	}
	payload := claimPayload(claimReq)
	claimReq.Signatures = []signatureJSON{owner.sign(payload), authority.sign(payload)}
	resp, body = postJSON(t, srv, "/v1/stakes/claim", claimReq)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(100_000), body["rebate_amount"])
	require.Equal(t, float64(1_000_000), body["principal"])

	// second claim conflicts
	resp, _ = postJSON(t, srv, "/v1/stakes/claim", claimReq)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_ClaimRequiresBothSigners(t *testing.T) {
	srv := newTestServer(t)
	authority := newSigner(t)
	owner := newSigner(t)
	utilityVault := vaultAddr(t)
	stakeVault := vaultAddr(t)

	createAccount(t, srv, owner.addr, 2_000_000)
	createAccount(t, srv, stakeVault, 0)
	initialize(t, srv, authority, utilityVault)

	stakeReq := stakeRequest{
		Owner:      owner.addr,
		StakeVault: stakeVault,
		Amount:     1_000_000,
	}
	stakeReq.Signatures = []signatureJSON{owner.sign(stakePayload(stakeReq))}
	resp, body := postJSON(t, srv, "/v1/stakes", stakeReq)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	stakeID := body["stake_id"].(string)

	claimReq := claimRequest{
		StakeID:      stakeID,
		EnergyKwh:    1,
		OwnerAccount: owner.addr,
		StakeVault:   stakeVault,
		RebateVault:  vaultAddr(t),
	}
	claimReq.Signatures = []signatureJSON{owner.sign(claimPayload(claimReq))}
	resp, body = postJSON(t, srv, "/v1/stakes/claim", claimReq)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body["error"], "required signer missing")
}

func TestAPI_RejectsTamperedSignature(t *testing.T) {
	srv := newTestServer(t)
	authority := newSigner(t)
	payer := newSigner(t)
	payee := newSigner(t)
	utilityVault := vaultAddr(t)

	createAccount(t, srv, payer.addr, 1_000_000)
	createAccount(t, srv, payee.addr, 0)
	createAccount(t, srv, utilityVault, 0)
	initialize(t, srv, authority, utilityVault)

	req := paymentRequest{
		Amount:    50_000,
		TaskID:    "task-1",
		From:      payer.addr,
		To:        payee.addr,
		BurnVault: utilityVault,
	}
	req.Signatures = []signatureJSON{payer.sign(paymentPayload(req))}
	req.Amount = 500_000 // signed 50_000

	resp, _ := postJSON(t, srv, "/v1/payments", req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	authority := newSigner(t)
	payer := newSigner(t)
	utilityVault := vaultAddr(t)

	// payment before initialize
	req := paymentRequest{
		Amount:    1,
		From:      payer.addr,
		To:        vaultAddr(t),
		BurnVault: utilityVault,
	}
	req.Signatures = []signatureJSON{payer.sign(paymentPayload(req))}
	resp, _ := postJSON(t, srv, "/v1/payments", req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	initialize(t, srv, authority, utilityVault)

	// double initialize
	initReq := initializeRequest{
		Authority:    authority.addr,
		Mint:         vaultAddr(t),
		UtilityVault: utilityVault,
		BurnRateBp:   100,
	}
	initReq.Signatures = []signatureJSON{authority.sign(initPayload(initReq))}
	resp, _ = postJSON(t, srv, "/v1/initialize", initReq)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// payment from an unfunded, unknown account
	createAccount(t, srv, utilityVault, 0)
	payee := vaultAddr(t)
	createAccount(t, srv, payee, 0)
	req = paymentRequest{
		Amount:    10_000,
		From:      payer.addr,
		To:        payee,
		BurnVault: utilityVault,
	}
	req.Signatures = []signatureJSON{payer.sign(paymentPayload(req))}
	resp, _ = postJSON(t, srv, "/v1/payments", req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// insufficient funds
	createAccount(t, srv, payer.addr, 100)
	resp, out := postJSON(t, srv, "/v1/payments", req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Contains(t, out["error"], "insufficient funds")

	// missing query parameters
	resp, _ = getJSON(t, srv, "/v1/balance")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = getJSON(t, srv, "/v1/stakes")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// malformed body
	raw := []byte("{not json")
	httpResp, err := http.Post(srv.URL+"/v1/initialize", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusBadRequest, httpResp.StatusCode)
}

func TestDecodeOperatorKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	full, err := decodeOperatorKey(base58.Encode(priv))
	require.NoError(t, err)
	require.True(t, full.Equal(priv))

	fromSeed, err := decodeOperatorKey(base58.Encode(priv.Seed()))
	require.NoError(t, err)
	require.True(t, fromSeed.Equal(priv))

	_, err = decodeOperatorKey(base58.Encode([]byte("short")))
	require.Error(t, err)

	_, err = decodeOperatorKey("not-base58-0OIl")
	require.Error(t, err)
}
