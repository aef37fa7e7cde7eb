package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solscope/service/metrics"
	"github.com/brojonat/solscope/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	lookup "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrMissingMeta        = errors.New("transaction has no status metadata")
	ErrMissingBlockTime   = errors.New("transaction has no block time")
	ErrMissingVersion     = errors.New("transaction has no version")
	ErrMissingTransaction = errors.New("envelope has no transaction")
)

// AccountSource tells where a resolved account came from.
type AccountSource string

const (
	SourceStatic AccountSource = "static"
	SourceLookup AccountSource = "lookup"
)

// ResolvedAccountMeta is one entry of the expanded account list.
type ResolvedAccountMeta struct {
	Pubkey      solanago.PublicKey  `json:"pubkey"`
	IsSigner    bool                `json:"is_signer"`
	IsWritable  bool                `json:"is_writable"`
	Source      AccountSource       `json:"source"`
	Table       *solanago.PublicKey `json:"table,omitempty"`
	PreBalance  *uint64             `json:"pre_balance,omitempty"`
	PostBalance *uint64             `json:"post_balance,omitempty"`

	// position is the index into the node's balance arrays, which list
	// static keys, then every lookup's writable addresses, then every
	// lookup's read-only addresses.
	position int
}

// LookupFailure records a lookup table whose expansion was skipped.
type LookupFailure struct {
	Table solanago.PublicKey `json:"table"`
	Error string             `json:"error"`
}

// ParsedTransaction is the typed summary of one transaction.
type ParsedTransaction struct {
	Signature       string                `json:"signature"`
	Slot            uint64                `json:"slot"`
	BlockTime       time.Time             `json:"block_time"`
	RecentBlockhash solanago.Hash         `json:"recent_blockhash"`
	Version         string                `json:"version"`
	Success         bool                  `json:"success"`
	Error           string                `json:"error,omitempty"`
	Fee             uint64                `json:"fee"`
	ComputeUnits    *uint64               `json:"compute_units,omitempty"`
	Accounts        []ResolvedAccountMeta `json:"accounts"`
	LookupFailures  []LookupFailure       `json:"lookup_failures,omitempty"`
	LogMessages     []string              `json:"log_messages,omitempty"`
}

// AccountFetcher is the node query lookup expansion needs.
type AccountFetcher interface {
	GetAccount(ctx context.Context, key solanago.PublicKey) (*solana.RawAccount, error)
}

// Resolver builds ParsedTransactions.
type Resolver struct {
	node    AccountFetcher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResolver creates a Resolver. If metrics is nil, no metrics will be recorded.
func NewResolver(node AccountFetcher, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{node: node, metrics: m, logger: logger}
}

// Resolve decodes env and expands its account list. The envelope must carry
// status metadata, a block time and a version.
func (r *Resolver) Resolve(ctx context.Context, env *rpc.GetTransactionResult) (*ParsedTransaction, error) {
	if env.Meta == nil {
		return nil, ErrMissingMeta
	}
	if env.BlockTime == nil {
		return nil, ErrMissingBlockTime
	}
	if env.Transaction == nil {
		return nil, ErrMissingTransaction
	}

	tx, err := env.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	// An absent version decodes as 0, so a legacy message reporting 0 means
	// the node sent no version at all.
	legacy := env.Version < 0
	if legacy == tx.Message.IsVersioned() {
		return nil, fmt.Errorf("%w: message versioned=%t, reported %d", ErrMissingVersion, tx.Message.IsVersioned(), env.Version)
	}

	msg := NewMessage(&tx.Message)
	accounts, failures := r.ResolveAccounts(ctx, msg)
	attachBalances(accounts, env.Meta)

	parsed := &ParsedTransaction{
		Slot:            env.Slot,
		BlockTime:       env.BlockTime.Time().UTC(),
		RecentBlockhash: msg.Blockhash(),
		Version:         versionString(env.Version),
		Success:         env.Meta.Err == nil,
		Fee:             env.Meta.Fee,
		ComputeUnits:    env.Meta.ComputeUnitsConsumed,
		Accounts:        accounts,
		LookupFailures:  failures,
		LogMessages:     env.Meta.LogMessages,
	}
	if len(tx.Signatures) > 0 {
		parsed.Signature = tx.Signatures[0].String()
	}
	if env.Meta.Err != nil {
		raw, err := json.Marshal(env.Meta.Err)
		if err != nil {
			parsed.Error = fmt.Sprint(env.Meta.Err)
		} else {
			parsed.Error = string(raw)
		}
	}
	return parsed, nil
}

func versionString(v rpc.TransactionVersion) string {
	if v < 0 {
		return "legacy"
	}
	return fmt.Sprintf("%d", v)
}

// ResolveAccounts lists msg's static accounts with header flags and, for a
// V0Message, appends each lookup's writable then read-only addresses in
// lookup order. A lookup whose table cannot be fetched, decoded or indexed
// is skipped and reported; the others still expand.
func (r *Resolver) ResolveAccounts(ctx context.Context, msg Message) ([]ResolvedAccountMeta, []LookupFailure) {
	keys := msg.StaticKeys()
	h := msg.Header()

	accounts := make([]ResolvedAccountMeta, 0, len(keys))
	for idx, key := range keys {
		accounts = append(accounts, ResolvedAccountMeta{
			Pubkey:     key,
			IsSigner:   IsSigner(h, idx),
			IsWritable: IsWritable(h, len(keys), idx),
			Source:     SourceStatic,
			position:   idx,
		})
	}

	v0, ok := msg.(*V0Message)
	if !ok {
		return accounts, nil
	}

	totalWritable := 0
	for _, l := range v0.Lookups {
		totalWritable += len(l.WritableIndexes)
	}

	var failures []LookupFailure
	writableAt := len(keys)
	readonlyAt := len(keys) + totalWritable
	for _, l := range v0.Lookups {
		expanded, err := r.expandLookup(ctx, l, writableAt, readonlyAt)
		writableAt += len(l.WritableIndexes)
		readonlyAt += len(l.ReadonlyIndexes)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping lookup table",
				"table", l.AccountKey.String(),
				"error", err,
			)
			r.metrics.RecordLookupTable("skipped")
			failures = append(failures, LookupFailure{Table: l.AccountKey, Error: err.Error()})
			continue
		}
		r.metrics.RecordLookupTable("resolved")
		accounts = append(accounts, expanded...)
	}
	return accounts, failures
}

func (r *Resolver) expandLookup(
	ctx context.Context,
	l solanago.MessageAddressTableLookup,
	writableAt, readonlyAt int,
) ([]ResolvedAccountMeta, error) {
	acct, err := r.node.GetAccount(ctx, l.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	state, err := lookup.DecodeAddressLookupTableState(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	table := l.AccountKey
	out := make([]ResolvedAccountMeta, 0, len(l.WritableIndexes)+len(l.ReadonlyIndexes))
	for _, group := range []struct {
		indexes  []uint8
		writable bool
		at       int
	}{
		{l.WritableIndexes, true, writableAt},
		{l.ReadonlyIndexes, false, readonlyAt},
	} {
		for j, idx := range group.indexes {
			if int(idx) >= len(state.Addresses) {
				return nil, fmt.Errorf("index %d out of range for %d addresses", idx, len(state.Addresses))
			}
			out = append(out, ResolvedAccountMeta{
				Pubkey:     state.Addresses[idx],
				IsWritable: group.writable,
				Source:     SourceLookup,
				Table:      &table,
				position:   group.at + j,
			})
		}
	}
	return out, nil
}

// attachBalances pairs each resolved account with its pre and post lamport
// balance, looked up by the account's position in the node's ordering.
func attachBalances(accounts []ResolvedAccountMeta, meta *rpc.TransactionMeta) {
	for i := range accounts {
		pos := accounts[i].position
		if pos < len(meta.PreBalances) {
			v := meta.PreBalances[pos]
			accounts[i].PreBalance = &v
		}
		if pos < len(meta.PostBalances) {
			v := meta.PostBalances[pos]
			accounts[i].PostBalance = &v
		}
	}
}
