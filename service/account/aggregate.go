package account

import (
	"context"
	"fmt"
	"sort"

	"github.com/brojonat/solscope/service/balance"
	"github.com/brojonat/solscope/service/metadata"
	solanago "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
)

// Aggregate lists every token account owned by wallet under both token
// programs, resolves their symbols with at most i.concurrency lookups in
// flight, and returns them sorted: accounts with a symbol first, ordered by
// symbol, then the rest in listing order.
func (i *Inspector) Aggregate(ctx context.Context, wallet solanago.PublicKey) ([]TokenAccountBalance, error) {
	type pending struct {
		view    TokenAccountBalance
		mint    solanago.PublicKey
		program solanago.PublicKey
	}

	var all []pending
	for _, program := range []solanago.PublicKey{i.programs.Tokenkeg, i.programs.Token22} {
		listed, err := i.node.ListTokenAccounts(ctx, wallet, program)
		if err != nil {
			return nil, fmt.Errorf("list token accounts of %s: %w", wallet, err)
		}
		for _, ta := range listed {
			all = append(all, pending{
				view: TokenAccountBalance{
					Key:     ta.Pubkey.String(),
					Balance: balance.Format(ta.Amount, ta.Decimals),
					Mint:    ta.Mint.String(),
					Program: ProgramTag,
				},
				mint:    ta.Mint,
				program: program,
			})
		}
	}

	// Each task writes only its own slot.
	out := make([]TokenAccountBalance, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, p := range all {
		g.Go(func() error {
			view := p.view
			if symbol, ok := i.symbols.ResolveSymbol(gctx, metadata.Query{Mint: p.mint, Program: p.program}); ok {
				view.Symbol = symbol
			}
			out[idx] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortBalances(out)

	i.logger.DebugContext(ctx, "aggregated token accounts",
		"wallet", wallet.String(),
		"count", len(out),
	)
	return out, nil
}

// SortBalances orders symbol-bearing entries first, by symbol compared
// byte-wise, and keeps the remaining entries in their existing order.
func SortBalances(balances []TokenAccountBalance) {
	sort.SliceStable(balances, func(a, b int) bool {
		sa, sb := balances[a].Symbol, balances[b].Symbol
		switch {
		case sa != "" && sb != "":
			return sa < sb
		case sa != "":
			return true
		default:
			return false
		}
	})
}
