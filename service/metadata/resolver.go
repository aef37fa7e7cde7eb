// Package metadata resolves a human symbol for a token mint from an ordered
// list of independent sources. A missing symbol is a normal outcome.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brojonat/solscope/service/metrics"
	"github.com/brojonat/solscope/service/solana"
	"github.com/brojonat/solscope/service/token"
	solanago "github.com/gagliardetto/solana-go"
)

// Source names accepted by NewSources.
const (
	SourceMetaplex  = "metaplex"
	SourceToken2022 = "token2022"
)

// DefaultSourceOrder tries the metadata program record before inline extension metadata.
var DefaultSourceOrder = []string{SourceMetaplex, SourceToken2022}

// AccountFetcher is the node query the sources need.
type AccountFetcher interface {
	GetAccount(ctx context.Context, key solanago.PublicKey) (*solana.RawAccount, error)
}

// Query identifies the mint whose symbol is wanted.
type Query struct {
	Mint solanago.PublicKey
	// Program is the token program that owns the mint.
	Program solanago.PublicKey
	// MintAccount is the already decoded mint, if the caller has it.
	MintAccount *token.Mint
}

// SymbolSource is one place a symbol may come from.
// An empty symbol with a nil error means the source has nothing for the mint.
type SymbolSource interface {
	Name() string
	Symbol(ctx context.Context, q Query) (string, error)
}

// Resolver tries each source in order; the first non-empty symbol wins.
type Resolver struct {
	sources []SymbolSource
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResolver creates a Resolver over sources. If metrics is nil, no metrics will be recorded.
func NewResolver(sources []SymbolSource, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{sources: sources, metrics: m, logger: logger}
}

// NewSources builds the named sources in the given order.
func NewSources(names []string, node AccountFetcher, programs solana.Programs) ([]SymbolSource, error) {
	sources := make([]SymbolSource, 0, len(names))
	for _, name := range names {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case SourceMetaplex:
			sources = append(sources, NewMetaplexSource(node, programs.TokenMetadata))
		case SourceToken2022:
			sources = append(sources, NewInlineSource(node, programs.Token22))
		default:
			return nil, fmt.Errorf("unknown metadata source %q", name)
		}
	}
	return sources, nil
}

// ResolveSymbol returns the mint's symbol and whether one was found.
// Source failures are logged and treated as absence.
func (r *Resolver) ResolveSymbol(ctx context.Context, q Query) (string, bool) {
	for _, src := range r.sources {
		symbol, err := src.Symbol(ctx, q)
		if err != nil {
			r.logger.DebugContext(ctx, "metadata source failed",
				"source", src.Name(),
				"mint", q.Mint.String(),
				"error", err,
			)
			r.metrics.RecordMetadataResolution(src.Name(), "error")
			continue
		}
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			r.metrics.RecordMetadataResolution(src.Name(), "miss")
			continue
		}
		r.metrics.RecordMetadataResolution(src.Name(), "hit")
		return symbol, true
	}

	r.logger.DebugContext(ctx, "no symbol for mint", "mint", q.Mint.String())
	return "", false
}
