// Package account classifies fetched accounts into the shapes the tool knows
// how to show: wallets, token accounts and mints of both token program
// generations, and everything else.
package account

import (
	"github.com/brojonat/solscope/service/token"
	solanago "github.com/gagliardetto/solana-go"
)

// Generation names the token program that owns a token record.
type Generation string

const (
	Tokenkeg Generation = "tokenkeg"
	Token22  Generation = "token22"
)

// ProgramTag is the display tag used for both token program generations.
const ProgramTag = "spl-token"

// ParsedAccount is one of *SystemAccount, *TokenAccount, *MintAccount or *OtherAccount.
type ParsedAccount interface {
	parsedAccount()
}

// TokenProgramAccount is one of *TokenAccount or *MintAccount.
type TokenProgramAccount interface {
	ParsedAccount
	TokenProgram() Generation
}

// SystemAccount is a wallet owned by the system program together with every
// token account it owns.
type SystemAccount struct {
	Key           solanago.PublicKey    `json:"key"`
	Lamports      uint64                `json:"lamports"`
	Balance       string                `json:"balance"`
	TokenAccounts []TokenAccountBalance `json:"token_accounts"`
}

// TokenAccountBalance is the listing projection of a wallet's token account.
type TokenAccountBalance struct {
	Key     string `json:"key"`
	Balance string `json:"balance"`
	Mint    string `json:"mint"`
	Program string `json:"program"`
	Symbol  string `json:"symbol,omitempty"`
}

// TokenAccount is a token account whose balance is denominated with its
// mint's decimals.
type TokenAccount struct {
	Key        solanago.PublicKey    `json:"key"`
	Generation Generation            `json:"generation"`
	Mint       solanago.PublicKey    `json:"mint"`
	Owner      solanago.PublicKey    `json:"owner"`
	State      string                `json:"state"`
	Amount     uint64                `json:"amount"`
	Decimals   uint8                 `json:"decimals"`
	Balance    string                `json:"balance"`
	Symbol     string                `json:"symbol,omitempty"`
	Extensions []token.ExtensionType `json:"extensions,omitempty"`
}

// MintAccount is a token mint.
type MintAccount struct {
	Key             solanago.PublicKey    `json:"key"`
	Generation      Generation            `json:"generation"`
	Supply          uint64                `json:"supply"`
	Decimals        uint8                 `json:"decimals"`
	DisplaySupply   string                `json:"display_supply"`
	MintAuthority   *solanago.PublicKey   `json:"mint_authority,omitempty"`
	FreezeAuthority *solanago.PublicKey   `json:"freeze_authority,omitempty"`
	Extensions      []token.ExtensionType `json:"extensions,omitempty"`
	Metadata        *token.TokenMetadata  `json:"metadata,omitempty"`
}

// OtherAccount is any account the tool has no decoder for.
type OtherAccount struct {
	Key        solanago.PublicKey `json:"key"`
	Lamports   uint64             `json:"lamports"`
	Balance    string             `json:"balance"`
	Owner      solanago.PublicKey `json:"owner"`
	Executable bool               `json:"executable"`
	Data       []byte             `json:"data"`
}

func (*SystemAccount) parsedAccount() {}
func (*TokenAccount) parsedAccount()  {}
func (*MintAccount) parsedAccount()   {}
func (*OtherAccount) parsedAccount()  {}

func (a *TokenAccount) TokenProgram() Generation { return a.Generation }
func (m *MintAccount) TokenProgram() Generation  { return m.Generation }
