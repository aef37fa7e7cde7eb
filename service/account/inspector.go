package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/solscope/service/balance"
	"github.com/brojonat/solscope/service/metadata"
	"github.com/brojonat/solscope/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// DefaultConcurrency bounds concurrent symbol lookups during aggregation.
const DefaultConcurrency = 10

// Node is the subset of the node client the inspector needs.
type Node interface {
	GetAccount(ctx context.Context, key solanago.PublicKey) (*solana.RawAccount, error)
	ListTokenAccounts(ctx context.Context, owner, programID solanago.PublicKey) ([]solana.KeyedTokenAccount, error)
}

// SymbolResolver finds a mint's symbol. It never fails; ok is false when
// there is no symbol.
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, q metadata.Query) (symbol string, ok bool)
}

// Inspector fetches an account and resolves it into a ParsedAccount.
type Inspector struct {
	node        Node
	programs    solana.Programs
	symbols     SymbolResolver
	concurrency int
	logger      *slog.Logger
}

// NewInspector creates an Inspector. A concurrency below 1 uses DefaultConcurrency.
func NewInspector(node Node, programs solana.Programs, symbols SymbolResolver, concurrency int, logger *slog.Logger) *Inspector {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Inspector{
		node:        node,
		programs:    programs,
		symbols:     symbols,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Inspect fetches key and resolves it.
func (i *Inspector) Inspect(ctx context.Context, key solanago.PublicKey) (ParsedAccount, error) {
	raw, err := i.node.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return i.Resolve(ctx, raw)
}

// Resolve classifies raw and completes it with the node queries its shape
// needs: the token listing for a wallet, the mint and symbol for a token
// account. A failed mint fetch fails the whole resolution.
func (i *Inspector) Resolve(ctx context.Context, raw *solana.RawAccount) (ParsedAccount, error) {
	c := Classify(raw, i.programs)
	i.logger.DebugContext(ctx, "classified account",
		"account", raw.Key.String(),
		"owner", raw.Owner.String(),
		"kind", c.Kind.String(),
		"generation", string(c.Generation),
	)

	switch c.Kind {
	case KindSystem:
		accounts, err := i.Aggregate(ctx, raw.Key)
		if err != nil {
			return nil, err
		}
		return &SystemAccount{
			Key:           raw.Key,
			Lamports:      raw.Lamports,
			Balance:       balance.FormatSOL(raw.Lamports),
			TokenAccounts: accounts,
		}, nil

	case KindTokenAccount:
		return i.resolveTokenAccount(ctx, raw.Key, c)

	case KindMint:
		m := c.Mint
		view := &MintAccount{
			Key:             raw.Key,
			Generation:      c.Generation,
			Supply:          m.Supply,
			Decimals:        m.Decimals,
			DisplaySupply:   balance.Format(m.Supply, m.Decimals),
			MintAuthority:   m.MintAuthority,
			FreezeAuthority: m.FreezeAuthority,
			Extensions:      m.ExtensionTypes(),
		}
		if md, ok := m.InlineMetadata(); ok {
			view.Metadata = md
		}
		return view, nil

	default:
		return &OtherAccount{
			Key:        raw.Key,
			Lamports:   raw.Lamports,
			Balance:    balance.FormatSOL(raw.Lamports),
			Owner:      raw.Owner,
			Executable: raw.Executable,
			Data:       raw.Data,
		}, nil
	}
}

func (i *Inspector) resolveTokenAccount(ctx context.Context, key solanago.PublicKey, c Classification) (*TokenAccount, error) {
	acct := c.Account

	mintRaw, err := i.node.GetAccount(ctx, acct.Mint)
	if err != nil {
		return nil, fmt.Errorf("fetch mint of token account %s: %w", key, err)
	}
	mint, err := decodeMint(c.Generation, mintRaw.Data)
	if err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", acct.Mint, err)
	}

	symbol, _ := i.symbols.ResolveSymbol(ctx, metadata.Query{
		Mint:        acct.Mint,
		Program:     programOf(c.Generation, i.programs),
		MintAccount: mint,
	})

	return &TokenAccount{
		Key:        key,
		Generation: c.Generation,
		Mint:       acct.Mint,
		Owner:      acct.Owner,
		State:      acct.State,
		Amount:     acct.Amount,
		Decimals:   mint.Decimals,
		Balance:    balance.Format(acct.Amount, mint.Decimals),
		Symbol:     symbol,
		Extensions: acct.ExtensionTypes(),
	}, nil
}
