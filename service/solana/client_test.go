package solana

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brojonat/solscope/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	accounts      map[solana.PublicKey]*rpc.Account
	transactions  map[solana.Signature]*rpc.GetTransactionResult
	blocks        map[uint64]*rpc.GetBlockResult
	tokenAccounts map[solana.PublicKey]*rpc.GetTokenAccountsResult
	err           error

	lastTxOpts    *rpc.GetTransactionOpts
	lastBlockOpts *rpc.GetBlockOpts
}

func (m *mockRPCClient) GetAccountInfo(
	ctx context.Context,
	account solana.PublicKey,
	opts *rpc.GetAccountInfoOpts,
) (*rpc.GetAccountInfoResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	acct, ok := m.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acct}, nil
}

func (m *mockRPCClient) GetTransaction(
	ctx context.Context,
	signature solana.Signature,
	opts *rpc.GetTransactionOpts,
) (*rpc.GetTransactionResult, error) {
	m.lastTxOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	tx, ok := m.transactions[signature]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return tx, nil
}

func (m *mockRPCClient) GetBlock(
	ctx context.Context,
	slot uint64,
	opts *rpc.GetBlockOpts,
) (*rpc.GetBlockResult, error) {
	m.lastBlockOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.blocks[slot], nil
}

func (m *mockRPCClient) GetTokenAccountsByOwner(
	ctx context.Context,
	owner solana.PublicKey,
	conf *rpc.GetTokenAccountsConfig,
	opts *rpc.GetTokenAccountsOpts,
) (*rpc.GetTokenAccountsResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if conf == nil || conf.ProgramId == nil {
		return nil, errors.New("program filter required")
	}
	return m.tokenAccounts[*conf.ProgramId], nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", nil, logger)
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	key := solana.NewWallet().PublicKey()
	data := []byte{1, 2, 3, 4}

	mock := &mockRPCClient{
		accounts: map[solana.PublicKey]*rpc.Account{
			key: {
				Lamports:   42,
				Owner:      TokenProgramID,
				Data:       rpc.DataBytesOrJSONFromBytes(data),
				Executable: false,
			},
		},
	}
	client := newTestClient(mock)

	raw, err := client.GetAccount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, raw.Key)
	assert.Equal(t, uint64(42), raw.Lamports)
	assert.Equal(t, TokenProgramID, raw.Owner)
	assert.Equal(t, data, raw.Data)
	assert.False(t, raw.Executable)
}

func TestGetAccount_NotFound(t *testing.T) {
	client := newTestClient(&mockRPCClient{})

	_, err := client.GetAccount(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAccount_TransportError(t *testing.T) {
	client := newTestClient(&mockRPCClient{err: errors.New("connection refused")})

	_, err := client.GetAccount(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetTransaction_RequestsVersionZero(t *testing.T) {
	sig := solana.Signature{1}
	want := &rpc.GetTransactionResult{Slot: 7}
	mock := &mockRPCClient{
		transactions: map[solana.Signature]*rpc.GetTransactionResult{sig: want},
	}
	client := newTestClient(mock)

	got, err := client.GetTransaction(context.Background(), sig)
	require.NoError(t, err)
	assert.Same(t, want, got)

	require.NotNil(t, mock.lastTxOpts)
	require.NotNil(t, mock.lastTxOpts.MaxSupportedTransactionVersion)
	assert.Equal(t, uint64(0), *mock.lastTxOpts.MaxSupportedTransactionVersion)
	assert.Equal(t, solana.EncodingBase64, mock.lastTxOpts.Encoding)
}

func TestGetTransaction_NotFound(t *testing.T) {
	client := newTestClient(&mockRPCClient{})

	_, err := client.GetTransaction(context.Background(), solana.Signature{9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBlock(t *testing.T) {
	mock := &mockRPCClient{
		blocks: map[uint64]*rpc.GetBlockResult{10: {Blockhash: solana.Hash{1}}},
	}
	client := newTestClient(mock)

	got, err := client.GetBlock(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{1}, got.Blockhash)
	require.NotNil(t, mock.lastBlockOpts.Rewards)
	assert.True(t, *mock.lastBlockOpts.Rewards)
	assert.Equal(t, rpc.TransactionDetailsFull, mock.lastBlockOpts.TransactionDetails)

	_, err = client.GetBlock(context.Background(), 11)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithCommitment(t *testing.T) {
	mock := &mockRPCClient{
		blocks: map[uint64]*rpc.GetBlockResult{1: {}},
	}
	client := newTestClient(mock).WithCommitment(rpc.CommitmentFinalized)

	_, err := client.GetBlock(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, rpc.CommitmentFinalized, mock.lastBlockOpts.Commitment)
}

func tokenAccountsFixture(t *testing.T, body string) *rpc.GetTokenAccountsResult {
	t.Helper()
	var res rpc.GetTokenAccountsResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	return &res
}

func TestListTokenAccounts(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	res := tokenAccountsFixture(t, `{
		"context": {"slot": 1},
		"value": [{
			"pubkey": "7UX2i7SucgLMQcfZ75s3VXmZZY4YRUyJN9X1RgfMoDUi",
			"account": {
				"lamports": 2039280,
				"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
				"executable": false,
				"rentEpoch": 0,
				"data": {
					"program": "spl-token",
					"parsed": {
						"type": "account",
						"info": {
							"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
							"owner": "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
							"state": "initialized",
							"tokenAmount": {"amount": "1234567", "decimals": 6, "uiAmountString": "1.234567"}
						}
					},
					"space": 165
				}
			}
		}]
	}`)

	mock := &mockRPCClient{
		tokenAccounts: map[solana.PublicKey]*rpc.GetTokenAccountsResult{TokenProgramID: res},
	}
	client := newTestClient(mock)

	got, err := client.ListTokenAccounts(context.Background(), owner, TokenProgramID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7UX2i7SucgLMQcfZ75s3VXmZZY4YRUyJN9X1RgfMoDUi", got[0].Pubkey.String())
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", got[0].Mint.String())
	assert.Equal(t, uint64(1234567), got[0].Amount)
	assert.Equal(t, uint8(6), got[0].Decimals)
	assert.Equal(t, "initialized", got[0].State)

	// The other program has nothing for this owner.
	empty, err := client.ListTokenAccounts(context.Background(), owner, Token2022ProgramID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClientRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(&mockRPCClient{err: errors.New("HTTP 429 Too Many Requests")}, "test", m, logger)

	_, err := client.GetAccount(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["solana_rpc_calls_total"])
	assert.True(t, names["solana_rpc_rate_limit_hits_total"])
}
