package account

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brojonat/solscope/service/metadata"
	"github.com/brojonat/solscope/service/solana"
	"github.com/brojonat/solscope/service/token"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode serves accounts and listings from maps.
type fakeNode struct {
	accounts map[solanago.PublicKey]*solana.RawAccount
	listings map[solanago.PublicKey][]solana.KeyedTokenAccount
	listErr  error
}

func (f *fakeNode) GetAccount(ctx context.Context, key solanago.PublicKey) (*solana.RawAccount, error) {
	acct, ok := f.accounts[key]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", key, solana.ErrNotFound)
	}
	return acct, nil
}

func (f *fakeNode) ListTokenAccounts(ctx context.Context, owner, programID solanago.PublicKey) ([]solana.KeyedTokenAccount, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings[programID], nil
}

// fakeSymbols answers from a map and tracks how many lookups overlap.
type fakeSymbols struct {
	symbols  map[solanago.PublicKey]string
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu      sync.Mutex
	queries []metadata.Query
}

func (f *fakeSymbols) ResolveSymbol(ctx context.Context, q metadata.Query) (string, bool) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	s, ok := f.symbols[q.Mint]
	return s, ok
}

func newTestInspector(node Node, symbols SymbolResolver, concurrency int) *Inspector {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInspector(node, solana.DefaultPrograms(), symbols, concurrency, logger)
}

func mintData(supply uint64, decimals uint8) []byte {
	buf := make([]byte, token.MintSize)
	binary.LittleEndian.PutUint64(buf[36:44], supply)
	buf[44] = decimals
	buf[45] = 1
	return buf
}

func tokenAccountData(mint, owner solanago.PublicKey, amount uint64) []byte {
	buf := make([]byte, token.AccountSize)
	copy(buf[0:32], mint[:])
	copy(buf[32:64], owner[:])
	binary.LittleEndian.PutUint64(buf[64:72], amount)
	buf[108] = 1
	return buf
}

func token22(base []byte, accountType token.AccountType, extType token.ExtensionType, value []byte) []byte {
	out := make([]byte, token.AccountSize+1)
	copy(out, base)
	out[token.AccountSize] = byte(accountType)
	header := make([]byte, 4)
	binary.LittleEndian.PutUint16(header[0:2], uint16(extType))
	binary.LittleEndian.PutUint16(header[2:4], uint16(len(value)))
	out = append(out, header...)
	return append(out, value...)
}

func TestClassify(t *testing.T) {
	programs := solana.DefaultPrograms()
	mint := solanago.NewWallet().PublicKey()
	owner := solanago.NewWallet().PublicKey()

	tests := []struct {
		name string
		raw  *solana.RawAccount
		kind Kind
		gen  Generation
	}{
		{"system wallet", &solana.RawAccount{Owner: programs.System}, KindSystem, ""},
		{"tokenkeg account", &solana.RawAccount{Owner: programs.Tokenkeg, Data: tokenAccountData(mint, owner, 5)}, KindTokenAccount, Tokenkeg},
		{"tokenkeg mint", &solana.RawAccount{Owner: programs.Tokenkeg, Data: mintData(10, 2)}, KindMint, Tokenkeg},
		{"tokenkeg garbage", &solana.RawAccount{Owner: programs.Tokenkeg, Data: []byte{1, 2, 3}}, KindOther, ""},
		{"tokenkeg rejects extended layout",
			&solana.RawAccount{Owner: programs.Tokenkeg, Data: token22(mintData(10, 2), token.AccountTypeMint, token.ExtensionNonTransferable, nil)},
			KindOther, ""},
		{"token22 plain account", &solana.RawAccount{Owner: programs.Token22, Data: tokenAccountData(mint, owner, 5)}, KindTokenAccount, Token22},
		{"token22 extended account",
			&solana.RawAccount{Owner: programs.Token22, Data: token22(tokenAccountData(mint, owner, 5), token.AccountTypeAccount, token.ExtensionImmutableOwner, nil)},
			KindTokenAccount, Token22},
		{"token22 extended mint",
			&solana.RawAccount{Owner: programs.Token22, Data: token22(mintData(10, 2), token.AccountTypeMint, token.ExtensionNonTransferable, nil)},
			KindMint, Token22},
		{"token22 multisig", &solana.RawAccount{Owner: programs.Token22, Data: make([]byte, token.MultisigSize)}, KindOther, ""},
		{"unknown owner", &solana.RawAccount{Owner: solanago.NewWallet().PublicKey(), Data: mintData(1, 1)}, KindOther, ""},
		{"vote program", &solana.RawAccount{Owner: programs.Vote, Data: make([]byte, 3762)}, KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw, programs)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.gen, got.Generation)

			// Same input, same answer.
			assert.Equal(t, got, Classify(tt.raw, programs))
		})
	}
}

func TestClassify_InjectedProgramIDs(t *testing.T) {
	fakeSystem := solanago.NewWallet().PublicKey()
	fakeKegg := solanago.NewWallet().PublicKey()
	programs := solana.Programs{System: fakeSystem, Tokenkeg: fakeKegg}

	assert.Equal(t, KindSystem, Classify(&solana.RawAccount{Owner: fakeSystem}, programs).Kind)
	assert.Equal(t, KindMint, Classify(&solana.RawAccount{Owner: fakeKegg, Data: mintData(1, 0)}, programs).Kind)
	assert.Equal(t, KindOther, Classify(&solana.RawAccount{Owner: solana.SystemProgramID}, programs).Kind)
}

func TestResolve_TokenAccountUsesMintDecimals(t *testing.T) {
	programs := solana.DefaultPrograms()
	mint := solanago.NewWallet().PublicKey()
	owner := solanago.NewWallet().PublicKey()
	key := solanago.NewWallet().PublicKey()

	node := &fakeNode{accounts: map[solanago.PublicKey]*solana.RawAccount{
		key:  {Key: key, Owner: programs.Tokenkeg, Data: tokenAccountData(mint, owner, 1234567890)},
		mint: {Key: mint, Owner: programs.Tokenkeg, Data: mintData(1, 9)},
	}}
	symbols := &fakeSymbols{symbols: map[solanago.PublicKey]string{mint: "WIF"}}
	inspector := newTestInspector(node, symbols, 0)

	parsed, err := inspector.Inspect(context.Background(), key)
	require.NoError(t, err)

	ta, ok := parsed.(*TokenAccount)
	require.True(t, ok)
	assert.Equal(t, Tokenkeg, ta.TokenProgram())
	assert.Equal(t, "1.234567890", ta.Balance)
	assert.Equal(t, uint8(9), ta.Decimals)
	assert.Equal(t, "WIF", ta.Symbol)
	assert.Equal(t, owner, ta.Owner)

	require.Len(t, symbols.queries, 1)
	assert.Equal(t, programs.Tokenkeg, symbols.queries[0].Program)
	assert.NotNil(t, symbols.queries[0].MintAccount)
}

func TestResolve_Token22AccountWithExtendedMint(t *testing.T) {
	programs := solana.DefaultPrograms()
	mint := solanago.NewWallet().PublicKey()
	key := solanago.NewWallet().PublicKey()

	node := &fakeNode{accounts: map[solanago.PublicKey]*solana.RawAccount{
		key: {Key: key, Owner: programs.Token22,
			Data: token22(tokenAccountData(mint, solanago.PublicKey{}, 1500), token.AccountTypeAccount, token.ExtensionImmutableOwner, nil)},
		mint: {Key: mint, Owner: programs.Token22,
			Data: token22(mintData(1, 3), token.AccountTypeMint, token.ExtensionMintCloseAuthority, make([]byte, 32))},
	}}
	inspector := newTestInspector(node, &fakeSymbols{}, 0)

	parsed, err := inspector.Inspect(context.Background(), key)
	require.NoError(t, err)
	ta := parsed.(*TokenAccount)
	assert.Equal(t, Token22, ta.Generation)
	assert.Equal(t, "1.500", ta.Balance)
	assert.Empty(t, ta.Symbol)
	assert.Equal(t, []token.ExtensionType{token.ExtensionImmutableOwner}, ta.Extensions)
}

func TestResolve_MintFetchFailureIsFatal(t *testing.T) {
	programs := solana.DefaultPrograms()
	key := solanago.NewWallet().PublicKey()
	node := &fakeNode{accounts: map[solanago.PublicKey]*solana.RawAccount{
		key: {Key: key, Owner: programs.Tokenkeg, Data: tokenAccountData(solanago.NewWallet().PublicKey(), solanago.PublicKey{}, 1)},
	}}
	inspector := newTestInspector(node, &fakeSymbols{}, 0)

	_, err := inspector.Inspect(context.Background(), key)
	require.Error(t, err)
	assert.ErrorIs(t, err, solana.ErrNotFound)
}

func TestResolve_Mint(t *testing.T) {
	programs := solana.DefaultPrograms()
	key := solanago.NewWallet().PublicKey()
	node := &fakeNode{accounts: map[solanago.PublicKey]*solana.RawAccount{
		key: {Key: key, Owner: programs.Token22,
			Data: token22(mintData(1234567000000, 3), token.AccountTypeMint, token.ExtensionNonTransferable, nil)},
	}}
	inspector := newTestInspector(node, &fakeSymbols{}, 0)

	parsed, err := inspector.Inspect(context.Background(), key)
	require.NoError(t, err)
	m := parsed.(*MintAccount)
	assert.Equal(t, "1,234,567,000.000", m.DisplaySupply)
	assert.Equal(t, []token.ExtensionType{token.ExtensionNonTransferable}, m.Extensions)
	assert.Nil(t, m.MintAuthority)
	assert.Nil(t, m.Metadata)
}

func TestResolve_Other(t *testing.T) {
	key := solanago.NewWallet().PublicKey()
	owner := solanago.NewWallet().PublicKey()
	node := &fakeNode{accounts: map[solanago.PublicKey]*solana.RawAccount{
		key: {Key: key, Owner: owner, Lamports: 2_000_000_000, Executable: true, Data: []byte("hello")},
	}}
	inspector := newTestInspector(node, &fakeSymbols{}, 0)

	parsed, err := inspector.Inspect(context.Background(), key)
	require.NoError(t, err)
	other := parsed.(*OtherAccount)
	assert.Equal(t, "2.000000000", other.Balance)
	assert.True(t, other.Executable)
	assert.Equal(t, []byte("hello"), other.Data)
}

func TestInspect_NotFound(t *testing.T) {
	inspector := newTestInspector(&fakeNode{}, &fakeSymbols{}, 0)
	_, err := inspector.Inspect(context.Background(), solanago.NewWallet().PublicKey())
	assert.ErrorIs(t, err, solana.ErrNotFound)
}

func listing(mints ...solanago.PublicKey) []solana.KeyedTokenAccount {
	out := make([]solana.KeyedTokenAccount, len(mints))
	for i, m := range mints {
		out[i] = solana.KeyedTokenAccount{
			Pubkey:   solanago.NewWallet().PublicKey(),
			Mint:     m,
			Amount:   uint64(i+1) * 1000,
			Decimals: 3,
		}
	}
	return out
}

func TestAggregate_SortsSymbolsFirst(t *testing.T) {
	programs := solana.DefaultPrograms()
	usdc := solanago.NewWallet().PublicKey()
	none := solanago.NewWallet().PublicKey()
	sol := solanago.NewWallet().PublicKey()
	lower := solanago.NewWallet().PublicKey()
	none2 := solanago.NewWallet().PublicKey()

	wallet := solanago.NewWallet().PublicKey()
	node := &fakeNode{
		accounts: map[solanago.PublicKey]*solana.RawAccount{
			wallet: {Key: wallet, Owner: programs.System, Lamports: 1_500_000_000},
		},
		listings: map[solanago.PublicKey][]solana.KeyedTokenAccount{
			programs.Tokenkeg: listing(usdc, none, sol),
			programs.Token22:  listing(lower, none2),
		},
	}
	symbols := &fakeSymbols{symbols: map[solanago.PublicKey]string{
		usdc:  "USDC",
		sol:   "SOL",
		lower: "bonk",
	}}
	inspector := newTestInspector(node, symbols, 0)

	parsed, err := inspector.Inspect(context.Background(), wallet)
	require.NoError(t, err)
	sys := parsed.(*SystemAccount)
	assert.Equal(t, "1.500000000", sys.Balance)

	got := make([]string, len(sys.TokenAccounts))
	for i, ta := range sys.TokenAccounts {
		got[i] = ta.Symbol + "|" + ta.Mint
		assert.Equal(t, ProgramTag, ta.Program)
	}
	// Uppercase sorts before lowercase; symbol-less entries keep listing order.
	assert.Equal(t, []string{
		"SOL|" + sol.String(),
		"USDC|" + usdc.String(),
		"bonk|" + lower.String(),
		"|" + none.String(),
		"|" + none2.String(),
	}, got)
	assert.Equal(t, "2.000", sys.TokenAccounts[3].Balance)
}

func TestAggregate_BoundsConcurrency(t *testing.T) {
	programs := solana.DefaultPrograms()
	mints := make([]solanago.PublicKey, 35)
	for i := range mints {
		mints[i] = solanago.NewWallet().PublicKey()
	}
	node := &fakeNode{listings: map[solanago.PublicKey][]solana.KeyedTokenAccount{
		programs.Tokenkeg: listing(mints[:20]...),
		programs.Token22:  listing(mints[20:]...),
	}}
	symbols := &fakeSymbols{delay: 10 * time.Millisecond}
	inspector := newTestInspector(node, symbols, DefaultConcurrency)

	out, err := inspector.Aggregate(context.Background(), solanago.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Len(t, out, 35)
	assert.Len(t, symbols.queries, 35)
	assert.LessOrEqual(t, symbols.maxSeen.Load(), int32(DefaultConcurrency))
	assert.Greater(t, symbols.maxSeen.Load(), int32(1))
}

func TestAggregate_ListFailure(t *testing.T) {
	node := &fakeNode{listErr: errors.New("node unavailable")}
	inspector := newTestInspector(node, &fakeSymbols{}, 0)

	_, err := inspector.Aggregate(context.Background(), solanago.NewWallet().PublicKey())
	assert.Error(t, err)
}

func TestSortBalances(t *testing.T) {
	in := []TokenAccountBalance{
		{Key: "a", Symbol: "USDC"},
		{Key: "b"},
		{Key: "c", Symbol: "SOL"},
	}
	SortBalances(in)
	assert.Equal(t, []string{"c", "a", "b"}, []string{in[0].Key, in[1].Key, in[2].Key})
}
