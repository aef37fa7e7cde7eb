package solana

import (
	"github.com/gagliardetto/solana-go"
)

// Well-known Solana program IDs
var (
	// SystemProgramID owns every plain wallet account.
	SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

	// TokenProgramID is the original SPL Token program ("Tokenkeg").
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Token2022ProgramID is the Token Extensions program (Token-2022)
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

	// VoteProgramID is the native vote program.
	VoteProgramID = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")

	// TokenMetadataProgramID is the Metaplex Token Metadata program.
	TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// Programs is the set of program ids the inspectors dispatch on.
// It is built once at startup and passed to every component, so tests can
// substitute arbitrary keys.
type Programs struct {
	System        solana.PublicKey
	Tokenkeg      solana.PublicKey
	Token22       solana.PublicKey
	Vote          solana.PublicKey
	TokenMetadata solana.PublicKey
}

// DefaultPrograms returns the mainnet program ids.
func DefaultPrograms() Programs {
	return Programs{
		System:        SystemProgramID,
		Tokenkeg:      TokenProgramID,
		Token22:       Token2022ProgramID,
		Vote:          VoteProgramID,
		TokenMetadata: TokenMetadataProgramID,
	}
}

// IsTokenProgram reports whether id is one of the two token program generations.
func (p Programs) IsTokenProgram(id solana.PublicKey) bool {
	return id.Equals(p.Tokenkeg) || id.Equals(p.Token22)
}
