// Package token decodes the account records of the two SPL token program
// generations: the fixed-layout Tokenkeg program and the Token-2022 program
// whose records may carry type-length-value extensions after the base layout.
package token

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// ErrMalformed is returned when bytes do not match the expected record layout.
var ErrMalformed = errors.New("malformed token record")

// Record sizes shared by both token programs.
const (
	MintSize     = 82
	AccountSize  = 165
	MultisigSize = 355

	// accountTypeOffset is where Token-2022 stores the AccountType byte for
	// both mints and token accounts; mints are zero-padded up to it.
	accountTypeOffset = AccountSize
	tlvOffset         = accountTypeOffset + 1
)

// AccountType is the Token-2022 discriminator stored after the base layout.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

// Mint is a decoded mint record.
type Mint struct {
	MintAuthority   *solana.PublicKey `json:"mint_authority,omitempty"`
	Supply          uint64            `json:"supply"`
	Decimals        uint8             `json:"decimals"`
	FreezeAuthority *solana.PublicKey `json:"freeze_authority,omitempty"`
	Extensions      []Extension       `json:"extensions,omitempty"`
}

// Account is a decoded token account record.
type Account struct {
	Mint            solana.PublicKey  `json:"mint"`
	Owner           solana.PublicKey  `json:"owner"`
	Amount          uint64            `json:"amount"`
	Delegate        *solana.PublicKey `json:"delegate,omitempty"`
	State           string            `json:"state"`
	IsNative        *uint64           `json:"is_native,omitempty"`
	DelegatedAmount uint64            `json:"delegated_amount"`
	CloseAuthority  *solana.PublicKey `json:"close_authority,omitempty"`
	Extensions      []Extension       `json:"extensions,omitempty"`
}

// ExtensionTypes lists the declared extension tags in account order.
func (m *Mint) ExtensionTypes() []ExtensionType {
	return extensionTypes(m.Extensions)
}

// Extension returns the value bytes of the first extension of type t.
func (m *Mint) Extension(t ExtensionType) ([]byte, bool) {
	return findExtension(m.Extensions, t)
}

// ExtensionTypes lists the declared extension tags in account order.
func (a *Account) ExtensionTypes() []ExtensionType {
	return extensionTypes(a.Extensions)
}

// DecodeMint decodes a Tokenkeg mint. The data must be exactly MintSize bytes.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("%w: mint length %d, want %d", ErrMalformed, len(data), MintSize)
	}
	return decodeBaseMint(data)
}

// DecodeAccount decodes a Tokenkeg token account. The data must be exactly AccountSize bytes.
func DecodeAccount(data []byte) (*Account, error) {
	if len(data) != AccountSize {
		return nil, fmt.Errorf("%w: account length %d, want %d", ErrMalformed, len(data), AccountSize)
	}
	return decodeBaseAccount(data)
}

// DecodeMintWithExtensions decodes a Token-2022 mint and its extensions.
func DecodeMintWithExtensions(data []byte) (*Mint, error) {
	tlv, err := splitExtensions(data, MintSize, AccountTypeMint)
	if err != nil {
		return nil, err
	}
	mint, err := decodeBaseMint(data[:MintSize])
	if err != nil {
		return nil, err
	}
	if mint.Extensions, err = ParseExtensions(tlv); err != nil {
		return nil, err
	}
	return mint, nil
}

// DecodeAccountWithExtensions decodes a Token-2022 token account and its extensions.
func DecodeAccountWithExtensions(data []byte) (*Account, error) {
	tlv, err := splitExtensions(data, AccountSize, AccountTypeAccount)
	if err != nil {
		return nil, err
	}
	acct, err := decodeBaseAccount(data[:AccountSize])
	if err != nil {
		return nil, err
	}
	if acct.Extensions, err = ParseExtensions(tlv); err != nil {
		return nil, err
	}
	return acct, nil
}

// splitExtensions validates the Token-2022 framing around a base record of
// baseSize bytes and returns the TLV region, which is nil when the record
// has no extension area.
func splitExtensions(data []byte, baseSize int, want AccountType) ([]byte, error) {
	if len(data) == MultisigSize {
		return nil, fmt.Errorf("%w: multisig sized record", ErrMalformed)
	}
	if len(data) < baseSize {
		return nil, fmt.Errorf("%w: length %d shorter than base %d", ErrMalformed, len(data), baseSize)
	}
	if len(data) == baseSize {
		return nil, nil
	}
	if len(data) <= accountTypeOffset {
		return nil, fmt.Errorf("%w: length %d has no account type", ErrMalformed, len(data))
	}
	for _, b := range data[baseSize:accountTypeOffset] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero padding after base record", ErrMalformed)
		}
	}
	if got := AccountType(data[accountTypeOffset]); got != want {
		return nil, fmt.Errorf("%w: account type %d, want %d", ErrMalformed, got, want)
	}
	return data[tlvOffset:], nil
}

func decodeBaseMint(data []byte) (*Mint, error) {
	var raw token.Mint
	if err := bin.NewBinDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !raw.IsInitialized {
		return nil, fmt.Errorf("%w: mint not initialized", ErrMalformed)
	}
	return &Mint{
		MintAuthority:   raw.MintAuthority,
		Supply:          raw.Supply,
		Decimals:        raw.Decimals,
		FreezeAuthority: raw.FreezeAuthority,
	}, nil
}

func decodeBaseAccount(data []byte) (*Account, error) {
	var raw token.Account
	if err := bin.NewBinDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var state string
	switch raw.State {
	case token.Initialized:
		state = "initialized"
	case token.Frozen:
		state = "frozen"
	default:
		return nil, fmt.Errorf("%w: account state %d", ErrMalformed, raw.State)
	}
	return &Account{
		Mint:            raw.Mint,
		Owner:           raw.Owner,
		Amount:          raw.Amount,
		Delegate:        raw.Delegate,
		State:           state,
		IsNative:        raw.IsNative,
		DelegatedAmount: raw.DelegatedAmount,
		CloseAuthority:  raw.CloseAuthority,
	}, nil
}
