// Package transaction turns a fetched transaction envelope into a typed
// summary, expanding address lookup table references of version 0 messages.
package transaction

import (
	solanago "github.com/gagliardetto/solana-go"
)

// Message is either *LegacyMessage or *V0Message.
type Message interface {
	message()
	Header() solanago.MessageHeader
	StaticKeys() []solanago.PublicKey
	Blockhash() solanago.Hash
}

// LegacyMessage addresses only the accounts it lists.
type LegacyMessage struct {
	AccountKeys     []solanago.PublicKey
	MessageHeader   solanago.MessageHeader
	RecentBlockhash solanago.Hash
}

// V0Message may additionally address accounts through lookup tables.
type V0Message struct {
	AccountKeys     []solanago.PublicKey
	MessageHeader   solanago.MessageHeader
	RecentBlockhash solanago.Hash
	Lookups         []solanago.MessageAddressTableLookup
}

func (*LegacyMessage) message() {}
func (*V0Message) message()     {}

func (m *LegacyMessage) Header() solanago.MessageHeader   { return m.MessageHeader }
func (m *LegacyMessage) StaticKeys() []solanago.PublicKey { return m.AccountKeys }
func (m *LegacyMessage) Blockhash() solanago.Hash         { return m.RecentBlockhash }

func (m *V0Message) Header() solanago.MessageHeader   { return m.MessageHeader }
func (m *V0Message) StaticKeys() []solanago.PublicKey { return m.AccountKeys }
func (m *V0Message) Blockhash() solanago.Hash         { return m.RecentBlockhash }

// NewMessage wraps a decoded solana-go message in its variant.
func NewMessage(msg *solanago.Message) Message {
	if msg.IsVersioned() {
		return &V0Message{
			AccountKeys:     msg.AccountKeys,
			MessageHeader:   msg.Header,
			RecentBlockhash: msg.RecentBlockhash,
			Lookups:         msg.AddressTableLookups,
		}
	}
	return &LegacyMessage{
		AccountKeys:     msg.AccountKeys,
		MessageHeader:   msg.Header,
		RecentBlockhash: msg.RecentBlockhash,
	}
}

// IsSigner reports whether static account idx signs the message.
func IsSigner(h solanago.MessageHeader, idx int) bool {
	return idx < int(h.NumRequiredSignatures)
}

// IsWritable reports whether static account idx is writable according to
// the header's readonly ranges.
func IsWritable(h solanago.MessageHeader, numStatic, idx int) bool {
	signed := int(h.NumRequiredSignatures)
	if idx < signed {
		return idx < signed-int(h.NumReadonlySignedAccounts)
	}
	unsigned := numStatic - signed
	return idx-signed < unsigned-int(h.NumReadonlyUnsignedAccounts)
}
