package token

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// TokenMetadata is the value of the Token-2022 TokenMetadata extension.
type TokenMetadata struct {
	UpdateAuthority    solana.PublicKey `json:"update_authority"`
	Mint               solana.PublicKey `json:"mint"`
	Name               string           `json:"name"`
	Symbol             string           `json:"symbol"`
	URI                string           `json:"uri"`
	AdditionalMetadata []MetadataField  `json:"additional_metadata,omitempty"`
}

// MetadataField is one free-form key/value pair of TokenMetadata.
type MetadataField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type tokenMetadataLayout struct {
	UpdateAuthority    [32]byte
	Mint               [32]byte
	Name               string
	Symbol             string
	URI                string
	AdditionalMetadata []MetadataField
}

// DecodeTokenMetadata decodes a TokenMetadata extension value.
func DecodeTokenMetadata(value []byte) (md *TokenMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			md, err = nil, fmt.Errorf("%w: token metadata: %v", ErrMalformed, r)
		}
	}()

	var layout tokenMetadataLayout
	if err := borsh.Deserialize(&layout, value); err != nil {
		return nil, fmt.Errorf("%w: token metadata: %v", ErrMalformed, err)
	}
	return &TokenMetadata{
		UpdateAuthority:    solana.PublicKeyFromBytes(layout.UpdateAuthority[:]),
		Mint:               solana.PublicKeyFromBytes(layout.Mint[:]),
		Name:               layout.Name,
		Symbol:             layout.Symbol,
		URI:                layout.URI,
		AdditionalMetadata: layout.AdditionalMetadata,
	}, nil
}

// InlineMetadata decodes the mint's embedded TokenMetadata extension, if any.
func (m *Mint) InlineMetadata() (*TokenMetadata, bool) {
	value, ok := m.Extension(ExtensionTokenMetadata)
	if !ok {
		return nil, false
	}
	md, err := DecodeTokenMetadata(value)
	if err != nil {
		return nil, false
	}
	return md, true
}
