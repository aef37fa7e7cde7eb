package metadata

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/brojonat/solscope/service/solana"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

// metaplexSeed is the fixed first seed of every metadata record address.
const metaplexSeed = "metadata"

// maxMetaplexString bounds a single string field of the record prefix.
const maxMetaplexString = 1 << 10

// FindMetadataAddress derives the metadata record address for mint under the
// Token Metadata program.
func FindMetadataAddress(mint solanago.PublicKey) (solanago.PublicKey, error) {
	return findMetadataAddress(solana.TokenMetadataProgramID, mint)
}

func findMetadataAddress(programID, mint solanago.PublicKey) (solanago.PublicKey, error) {
	pda, _, err := solanago.FindProgramAddress(
		[][]byte{
			[]byte(metaplexSeed),
			programID.Bytes(),
			mint.Bytes(),
		},
		programID,
	)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}
	return pda, nil
}

// MetaplexRecord is the fixed prefix of a Token Metadata program record.
// Fields after uri vary across program versions and are not read.
type MetaplexRecord struct {
	Key             uint8
	UpdateAuthority solanago.PublicKey
	Mint            solanago.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// DecodeMetaplexRecord reads the record prefix. Strings are stored with a
// u32 length and right-padded with NUL bytes, which are trimmed.
func DecodeMetaplexRecord(data []byte) (*MetaplexRecord, error) {
	dec := bin.NewBorshDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	authority, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("read update authority: %w", err)
	}
	mint, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("read mint: %w", err)
	}

	rec := &MetaplexRecord{
		Key:             key,
		UpdateAuthority: solanago.PublicKeyFromBytes(authority),
		Mint:            solanago.PublicKeyFromBytes(mint),
	}
	for _, field := range []struct {
		name string
		dst  *string
	}{
		{"name", &rec.Name},
		{"symbol", &rec.Symbol},
		{"uri", &rec.URI},
	} {
		s, err := readPaddedString(dec)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", field.name, err)
		}
		*field.dst = s
	}
	return rec, nil
}

func readPaddedString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", err
	}
	if n > maxMetaplexString {
		return "", fmt.Errorf("string length %d too large", n)
	}
	raw, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(raw), "\x00"), nil
}

// MetaplexSource resolves symbols from the Token Metadata program record
// derived from the mint address.
type MetaplexSource struct {
	node      AccountFetcher
	programID solanago.PublicKey
}

// NewMetaplexSource creates a MetaplexSource reading records owned by programID.
func NewMetaplexSource(node AccountFetcher, programID solanago.PublicKey) *MetaplexSource {
	return &MetaplexSource{node: node, programID: programID}
}

func (s *MetaplexSource) Name() string { return SourceMetaplex }

// Symbol fetches and decodes the mint's metadata record.
func (s *MetaplexSource) Symbol(ctx context.Context, q Query) (string, error) {
	addr, err := findMetadataAddress(s.programID, q.Mint)
	if err != nil {
		return "", err
	}

	acct, err := s.node.GetAccount(ctx, addr)
	if errors.Is(err, solana.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !acct.Owner.Equals(s.programID) {
		return "", nil
	}

	rec, err := DecodeMetaplexRecord(acct.Data)
	if err != nil {
		return "", fmt.Errorf("metadata record %s: %w", addr, err)
	}
	return rec.Symbol, nil
}
