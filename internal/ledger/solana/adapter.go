package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/jackiewangjingchun-cpu/wattcoin/internal/domain"
	"github.com/jackiewangjingchun-cpu/wattcoin/internal/ledger"
	solanarpc "github.com/jackiewangjingchun-cpu/wattcoin/internal/solana"
)

// DefaultConfirmTimeout bounds the wait for cluster confirmation of a
// submitted transaction.
const DefaultConfirmTimeout = 60 * time.Second

// DefaultConfirmPollInterval is how often confirmation is polled over RPC
// while waiting for the subscription to deliver. The poll catches
// notifications lost across a WebSocket reconnect.
const DefaultConfirmPollInterval = 5 * time.Second

// insufficientFundsCode is the SPL token program's custom error code for a
// debit exceeding the source account balance.
const insufficientFundsCode = 1

// Adapter executes transfer batches as single Solana transactions. It
// implements ledger.Adapter. The operator key is fee payer and delegate
// authority over every custodial token account the engine moves value
// between.
type Adapter struct {
	rpc            solanarpc.RPCClient
	ws             solanarpc.WSClient
	operator       ed25519.PrivateKey
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

var _ ledger.Adapter = (*Adapter)(nil)

// Options configures Adapter.
type Options struct {
	RPC      solanarpc.RPCClient
	WS       solanarpc.WSClient
	Operator ed25519.PrivateKey
	// ConfirmTimeout bounds confirmation waits. Zero means DefaultConfirmTimeout.
	ConfirmTimeout time.Duration
	// ConfirmPollInterval sets the RPC status-poll cadence during
	// confirmation waits. Zero means DefaultConfirmPollInterval.
	ConfirmPollInterval time.Duration
}

// New creates a Solana ledger adapter.
func New(opts Options) (*Adapter, error) {
	if opts.RPC == nil {
		return nil, fmt.Errorf("rpc client is required")
	}
	if opts.WS == nil {
		return nil, fmt.Errorf("ws client is required")
	}
	if len(opts.Operator) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("operator key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(opts.Operator))
	}

	timeout := opts.ConfirmTimeout
	if timeout == 0 {
		timeout = DefaultConfirmTimeout
	}
	poll := opts.ConfirmPollInterval
	if poll == 0 {
		poll = DefaultConfirmPollInterval
	}

	return &Adapter{
		rpc:            opts.RPC,
		ws:             opts.WS,
		operator:       opts.Operator,
		confirmTimeout: timeout,
		pollInterval:   poll,
	}, nil
}

// Apply packs all instructions into one transaction, submits it and waits
// for confirmation. The cluster executes instructions sequentially and
// rolls the whole transaction back on the first failure, so either every
// movement lands or none does.
func (a *Adapter) Apply(ctx context.Context, instrs []ledger.Instruction) error {
	if len(instrs) == 0 {
		return nil
	}

	transfers := make([]transfer, len(instrs))
	for i, in := range instrs {
		src, err := domain.DecodeAddress(in.From)
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrUnknownAccount, err)
		}
		dst, err := domain.DecodeAddress(in.To)
		if err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrUnknownAccount, err)
		}
		transfers[i] = transfer{Source: src, Destination: dst, Amount: in.Amount}
	}

	bh, err := a.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("get blockhash: %w", err)
	}
	blockhash, err := base58.Decode(bh.Blockhash)
	if err != nil {
		return fmt.Errorf("decode blockhash: %w", err)
	}

	tx, signature, err := buildTransferTransaction(a.operator, transfers, blockhash)
	if err != nil {
		return fmt.Errorf("build transaction: %w", err)
	}

	// Subscribe before sending so the confirmation cannot slip past us.
	confirmCh, err := a.ws.SubscribeSignature(ctx, signature)
	if err != nil {
		return fmt.Errorf("subscribe signature: %w", err)
	}

	sentSig, err := a.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(tx))
	if err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}
	if sentSig != signature {
		return fmt.Errorf("cluster returned signature %s for submitted %s", sentSig, signature)
	}

	return a.waitForConfirmation(ctx, signature, confirmCh)
}

// waitForConfirmation blocks until the subscription delivers, an RPC status
// poll reports the transaction confirmed, or the wait times out. The poll
// covers notifications lost when the WebSocket reconnects mid-wait.
func (a *Adapter) waitForConfirmation(ctx context.Context, signature string, confirmCh <-chan solanarpc.SignatureResult) error {
	timer := time.NewTimer(a.confirmTimeout)
	defer timer.Stop()
	poll := time.NewTicker(a.pollInterval)
	defer poll.Stop()

	for {
		select {
		case result, ok := <-confirmCh:
			if !ok {
				return fmt.Errorf("confirmation channel closed for %s", signature)
			}
			if result.Err != nil {
				return mapExecutionError(result.Err)
			}
			return nil
		case <-poll.C:
			statuses, err := a.rpc.GetSignatureStatuses(ctx, []string{signature})
			if err != nil {
				// Transient; the subscription or the next poll may still land.
				continue
			}
			if len(statuses) == 0 || statuses[0] == nil {
				continue
			}
			st := statuses[0]
			if st.ConfirmationStatus != "confirmed" && st.ConfirmationStatus != "finalized" {
				continue
			}
			if st.Err != nil {
				return mapExecutionError(st.Err)
			}
			return nil
		case <-timer.C:
			return fmt.Errorf("confirmation timeout for %s after %s", signature, a.confirmTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Balance returns the SPL token balance of a token account in base units.
func (a *Adapter) Balance(ctx context.Context, account domain.Address) (uint64, error) {
	if !domain.ValidAddress(account) {
		return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, account)
	}

	bal, err := a.rpc.GetTokenAccountBalance(ctx, account)
	if err != nil {
		if strings.Contains(err.Error(), "could not find account") {
			return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, account)
		}
		return 0, fmt.Errorf("get token balance: %w", err)
	}

	return bal.Amount, nil
}

// mapExecutionError converts an on-chain transaction error into a ledger
// error. The cluster reports failures as JSON structures like
// {"InstructionError":[0,{"Custom":1}]}.
func mapExecutionError(txErr interface{}) error {
	raw, err := json.Marshal(txErr)
	if err != nil {
		return fmt.Errorf("transaction failed: %v", txErr)
	}

	var instrErr struct {
		InstructionError []json.RawMessage `json:"InstructionError"`
	}
	if err := json.Unmarshal(raw, &instrErr); err == nil && len(instrErr.InstructionError) == 2 {
		var custom struct {
			Custom int `json:"Custom"`
		}
		if err := json.Unmarshal(instrErr.InstructionError[1], &custom); err == nil && custom.Custom == insufficientFundsCode {
			return fmt.Errorf("%w: %s", ledger.ErrInsufficientFunds, raw)
		}
	}

	if strings.Contains(string(raw), "AccountNotFound") {
		return fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, raw)
	}

	return fmt.Errorf("transaction failed: %s", raw)
}
