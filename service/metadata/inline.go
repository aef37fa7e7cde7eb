package metadata

import (
	"context"
	"errors"

	"github.com/brojonat/solscope/service/solana"
	"github.com/brojonat/solscope/service/token"
	solanago "github.com/gagliardetto/solana-go"
)

// InlineSource reads the TokenMetadata extension embedded in a Token-2022 mint.
type InlineSource struct {
	node    AccountFetcher
	token22 solanago.PublicKey
}

// NewInlineSource creates an InlineSource for mints owned by token22.
func NewInlineSource(node AccountFetcher, token22 solanago.PublicKey) *InlineSource {
	return &InlineSource{node: node, token22: token22}
}

func (s *InlineSource) Name() string { return SourceToken2022 }

// Symbol decodes the inline metadata of q's mint. The mint is only fetched
// when the caller did not pass it.
func (s *InlineSource) Symbol(ctx context.Context, q Query) (string, error) {
	if !q.Program.Equals(s.token22) {
		return "", nil
	}

	mint := q.MintAccount
	if mint == nil {
		acct, err := s.node.GetAccount(ctx, q.Mint)
		if errors.Is(err, solana.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if !acct.Owner.Equals(s.token22) {
			return "", nil
		}
		if mint, err = token.DecodeMintWithExtensions(acct.Data); err != nil {
			return "", err
		}
	}

	md, ok := mint.InlineMetadata()
	if !ok {
		return "", nil
	}
	return md.Symbol, nil
}
