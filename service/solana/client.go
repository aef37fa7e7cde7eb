package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/solscope/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrNotFound is returned when the node has no account, transaction or block
// for the requested key.
var ErrNotFound = errors.New("not found")

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
		opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	GetBlock(
		ctx context.Context,
		slot uint64,
		opts *rpc.GetBlockOpts,
	) (*rpc.GetBlockResult, error)

	GetTokenAccountsByOwner(
		ctx context.Context,
		owner solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)
}

// RawAccount is an account snapshot as returned by the node.
type RawAccount struct {
	Key        solana.PublicKey
	Lamports   uint64
	Data       []byte
	Owner      solana.PublicKey
	Executable bool
}

// KeyedTokenAccount is one entry of a token account listing, taken from the
// node's pre-parsed JSON projection.
type KeyedTokenAccount struct {
	Pubkey   solana.PublicKey
	Mint     solana.PublicKey
	Owner    string
	State    string
	Amount   uint64
	Decimals uint8
}

// Client provides the node queries the inspectors need.
// It wraps the RPC client with metrics and logging.
type Client struct {
	rpc        RPCClient
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
	commitment rpc.CommitmentType
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:        rpcClient,
		logger:     logger,
		metrics:    m,
		endpoint:   endpoint,
		commitment: rpc.CommitmentConfirmed,
	}
}

// WithCommitment returns a copy of the client that queries at the given commitment.
func (c *Client) WithCommitment(commitment rpc.CommitmentType) *Client {
	cp := *c
	cp.commitment = commitment
	return &cp
}

// observe records the outcome of one RPC call.
func (c *Client) observe(ctx context.Context, method string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, rpc.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
		if strings.Contains(err.Error(), "429") {
			c.logger.WarnContext(ctx, "rate limited", "method", method)
			c.metrics.RecordRateLimitHit(c.endpoint)
		}
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

func wrapNotFound(what string, err error) error {
	if errors.Is(err, rpc.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// GetAccount fetches the raw account at key.
func (c *Client) GetAccount(ctx context.Context, key solana.PublicKey) (*RawAccount, error) {
	c.logger.DebugContext(ctx, "calling GetAccountInfo", "account", key.String())

	start := time.Now()
	res, err := c.rpc.GetAccountInfo(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	c.observe(ctx, "GetAccountInfo", start, err)
	if err != nil {
		return nil, wrapNotFound("account "+key.String(), err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("account %s: %w", key, ErrNotFound)
	}

	acct := res.Value
	raw := &RawAccount{
		Key:        key,
		Lamports:   acct.Lamports,
		Owner:      acct.Owner,
		Executable: acct.Executable,
	}
	if acct.Data != nil {
		raw.Data = acct.Data.GetBinary()
	}
	return raw, nil
}

// GetTransaction fetches a transaction envelope by signature, accepting both
// legacy and version 0 messages.
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	c.logger.DebugContext(ctx, "calling GetTransaction", "signature", sig.String())

	maxVersion := uint64(0)
	start := time.Now()
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	c.observe(ctx, "GetTransaction", start, err)
	if err != nil {
		return nil, wrapNotFound("transaction "+sig.String(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("transaction %s: %w", sig, ErrNotFound)
	}
	return res, nil
}

// GetBlock fetches a full block with rewards at slot.
func (c *Client) GetBlock(ctx context.Context, slot uint64) (*rpc.GetBlockResult, error) {
	c.logger.DebugContext(ctx, "calling GetBlock", "slot", slot)

	maxVersion := uint64(0)
	rewards := true
	start := time.Now()
	res, err := c.rpc.GetBlock(ctx, slot, &rpc.GetBlockOpts{
		Encoding:                       solana.EncodingBase64,
		TransactionDetails:             rpc.TransactionDetailsFull,
		Rewards:                        &rewards,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	c.observe(ctx, "GetBlock", start, err)
	if err != nil {
		return nil, wrapNotFound(fmt.Sprintf("block %d", slot), err)
	}
	if res == nil {
		return nil, fmt.Errorf("block %d: %w", slot, ErrNotFound)
	}
	return res, nil
}

// parsedTokenAccount mirrors value.account.data of a jsonParsed token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			State       string `json:"state"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
		Type string `json:"type"`
	} `json:"parsed"`
	Program string `json:"program"`
}

// ListTokenAccounts lists every token account owned by owner under one token
// program, in the order the node returned them.
func (c *Client) ListTokenAccounts(
	ctx context.Context,
	owner solana.PublicKey,
	programID solana.PublicKey,
) ([]KeyedTokenAccount, error) {
	c.logger.DebugContext(ctx, "calling GetTokenAccountsByOwner",
		"owner", owner.String(),
		"program", programID.String(),
	)

	start := time.Now()
	res, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Encoding:   solana.EncodingJSONParsed,
			Commitment: c.commitment,
		},
	)
	c.observe(ctx, "GetTokenAccountsByOwner", start, err)
	if err != nil {
		return nil, wrapNotFound("token accounts of "+owner.String(), err)
	}
	if res == nil {
		return nil, nil
	}

	out := make([]KeyedTokenAccount, 0, len(res.Value))
	for _, keyed := range res.Value {
		if keyed == nil || keyed.Account.Data == nil {
			continue
		}
		raw := keyed.Account.Data.GetRawJSON()
		if raw == nil {
			c.logger.WarnContext(ctx, "token account without parsed data", "account", keyed.Pubkey.String())
			continue
		}
		var parsed parsedTokenAccount
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("decode token account %s: %w", keyed.Pubkey, err)
		}
		info := parsed.Parsed.Info
		mint, err := solana.PublicKeyFromBase58(info.Mint)
		if err != nil {
			return nil, fmt.Errorf("token account %s mint %q: %w", keyed.Pubkey, info.Mint, err)
		}
		amount, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("token account %s amount %q: %w", keyed.Pubkey, info.TokenAmount.Amount, err)
		}
		out = append(out, KeyedTokenAccount{
			Pubkey:   keyed.Pubkey,
			Mint:     mint,
			Owner:    info.Owner,
			State:    info.State,
			Amount:   amount,
			Decimals: info.TokenAmount.Decimals,
		})
	}

	c.metrics.RecordTokenAccountsListed(programID.String(), len(out))
	c.logger.DebugContext(ctx, "listed token accounts",
		"owner", owner.String(),
		"program", programID.String(),
		"count", len(out),
	)
	return out, nil
}
