package token

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// ExtensionType is the Token-2022 TLV type tag.
type ExtensionType uint16

const (
	ExtensionUninitialized ExtensionType = iota
	ExtensionTransferFeeConfig
	ExtensionTransferFeeAmount
	ExtensionMintCloseAuthority
	ExtensionConfidentialTransferMint
	ExtensionConfidentialTransferAccount
	ExtensionDefaultAccountState
	ExtensionImmutableOwner
	ExtensionMemoTransfer
	ExtensionNonTransferable
	ExtensionInterestBearingConfig
	ExtensionCpiGuard
	ExtensionPermanentDelegate
	ExtensionNonTransferableAccount
	ExtensionTransferHook
	ExtensionTransferHookAccount
	ExtensionConfidentialTransferFeeConfig
	ExtensionConfidentialTransferFeeAmount
	ExtensionMetadataPointer
	ExtensionTokenMetadata
	ExtensionGroupPointer
	ExtensionTokenGroup
	ExtensionGroupMemberPointer
	ExtensionTokenGroupMember
	ExtensionConfidentialMintBurn
	ExtensionScaledUiAmount
	ExtensionPausable
	ExtensionPausableAccount
)

var extensionNames = map[ExtensionType]string{
	ExtensionUninitialized:                 "Uninitialized",
	ExtensionTransferFeeConfig:             "TransferFeeConfig",
	ExtensionTransferFeeAmount:             "TransferFeeAmount",
	ExtensionMintCloseAuthority:            "MintCloseAuthority",
	ExtensionConfidentialTransferMint:      "ConfidentialTransferMint",
	ExtensionConfidentialTransferAccount:   "ConfidentialTransferAccount",
	ExtensionDefaultAccountState:           "DefaultAccountState",
	ExtensionImmutableOwner:                "ImmutableOwner",
	ExtensionMemoTransfer:                  "MemoTransfer",
	ExtensionNonTransferable:               "NonTransferable",
	ExtensionInterestBearingConfig:         "InterestBearingConfig",
	ExtensionCpiGuard:                      "CpiGuard",
	ExtensionPermanentDelegate:             "PermanentDelegate",
	ExtensionNonTransferableAccount:        "NonTransferableAccount",
	ExtensionTransferHook:                  "TransferHook",
	ExtensionTransferHookAccount:           "TransferHookAccount",
	ExtensionConfidentialTransferFeeConfig: "ConfidentialTransferFeeConfig",
	ExtensionConfidentialTransferFeeAmount: "ConfidentialTransferFeeAmount",
	ExtensionMetadataPointer:               "MetadataPointer",
	ExtensionTokenMetadata:                 "TokenMetadata",
	ExtensionGroupPointer:                  "GroupPointer",
	ExtensionTokenGroup:                    "TokenGroup",
	ExtensionGroupMemberPointer:            "GroupMemberPointer",
	ExtensionTokenGroupMember:              "TokenGroupMember",
	ExtensionConfidentialMintBurn:          "ConfidentialMintBurn",
	ExtensionScaledUiAmount:                "ScaledUiAmount",
	ExtensionPausable:                      "Pausable",
	ExtensionPausableAccount:               "PausableAccount",
}

func (t ExtensionType) String() string {
	if name, ok := extensionNames[t]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(t)) + ")"
}

// MarshalText renders the extension by name in JSON and YAML output.
func (t ExtensionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Extension is one TLV entry.
type Extension struct {
	Type  ExtensionType `json:"type"`
	Value []byte        `json:"-"`
}

const (
	tlvTypeSize   = 2
	tlvLengthSize = 2
)

// ParseExtensions walks a Token-2022 TLV region. An Uninitialized type tag,
// or too few bytes left for a type tag, ends the list. A header or value that
// runs past the end of the region is malformed. Tags this package does not
// name are kept as-is.
func ParseExtensions(tlv []byte) ([]Extension, error) {
	var out []Extension
	for start := 0; start < len(tlv); {
		lengthStart := start + tlvTypeSize
		if len(tlv) < lengthStart {
			break
		}
		t := ExtensionType(binary.LittleEndian.Uint16(tlv[start:lengthStart]))
		if t == ExtensionUninitialized {
			break
		}

		valueStart := lengthStart + tlvLengthSize
		if len(tlv) < valueStart {
			return nil, fmt.Errorf("%w: truncated extension header at %d", ErrMalformed, start)
		}
		length := int(binary.LittleEndian.Uint16(tlv[lengthStart:valueStart]))
		valueEnd := valueStart + length
		if valueEnd > len(tlv) {
			return nil, fmt.Errorf("%w: extension %s value overruns record", ErrMalformed, t)
		}

		out = append(out, Extension{Type: t, Value: tlv[valueStart:valueEnd]})
		start = valueEnd
	}
	return out, nil
}

func extensionTypes(exts []Extension) []ExtensionType {
	if len(exts) == 0 {
		return nil
	}
	types := make([]ExtensionType, len(exts))
	for i, e := range exts {
		types[i] = e.Type
	}
	return types
}

func findExtension(exts []Extension, t ExtensionType) ([]byte, bool) {
	for _, e := range exts {
		if e.Type == t {
			return e.Value, true
		}
	}
	return nil, false
}
