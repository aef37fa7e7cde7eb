package account

import (
	"github.com/brojonat/solscope/service/solana"
	"github.com/brojonat/solscope/service/token"
	solanago "github.com/gagliardetto/solana-go"
)

// Kind is the shape a raw account was recognised as.
type Kind int

const (
	KindOther Kind = iota
	KindSystem
	KindTokenAccount
	KindMint
)

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindTokenAccount:
		return "token_account"
	case KindMint:
		return "mint"
	default:
		return "other"
	}
}

// Classification is the result of decoding a raw account without any
// further node queries.
type Classification struct {
	Kind       Kind
	Generation Generation
	Account    *token.Account
	Mint       *token.Mint
}

// Classify recognises raw by owner and layout. The first matching rule wins:
// system owner, then Tokenkeg account or mint, then Token-2022 account or
// mint. Anything else, including token program data that fails to decode,
// is KindOther. Classify never fails.
func Classify(raw *solana.RawAccount, programs solana.Programs) Classification {
	switch {
	case raw.Owner.Equals(programs.System):
		return Classification{Kind: KindSystem}

	case programs.IsTokenProgram(raw.Owner):
		gen := Tokenkeg
		if raw.Owner.Equals(programs.Token22) {
			gen = Token22
		}
		if acct, err := decodeAccount(gen, raw.Data); err == nil {
			return Classification{Kind: KindTokenAccount, Generation: gen, Account: acct}
		}
		if mint, err := decodeMint(gen, raw.Data); err == nil {
			return Classification{Kind: KindMint, Generation: gen, Mint: mint}
		}
	}
	return Classification{Kind: KindOther}
}

// programOf maps a generation back to its program id.
func programOf(gen Generation, programs solana.Programs) solanago.PublicKey {
	if gen == Token22 {
		return programs.Token22
	}
	return programs.Tokenkeg
}

func decodeAccount(gen Generation, data []byte) (*token.Account, error) {
	if gen == Token22 {
		return token.DecodeAccountWithExtensions(data)
	}
	return token.DecodeAccount(data)
}

// decodeMint decodes mint data with the rules of the given generation.
func decodeMint(gen Generation, data []byte) (*token.Mint, error) {
	if gen == Token22 {
		return token.DecodeMintWithExtensions(data)
	}
	return token.DecodeMint(data)
}
