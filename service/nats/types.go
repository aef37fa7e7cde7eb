package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/solscope/service/block"
)

// BlockEvent represents a block summary published to NATS.
// This is published to the subject "blocks.{slot}" in JetStream.
type BlockEvent struct {
	// Block identifiers
	Slot       uint64 `json:"slot"`
	ParentSlot uint64 `json:"parent_slot"`
	Blockhash  string `json:"blockhash"`

	// Leader and fee reward
	Leader         string `json:"leader"`
	RewardLamports int64  `json:"reward_lamports"`

	// Transaction tallies
	VoteTransactions    int    `json:"vote_transactions"`
	NonVoteTransactions int    `json:"non_vote_transactions"`
	ComputeUnits        uint64 `json:"compute_units"`

	// Per-program instruction counts, present for verbose scans only
	Programs map[string]int `json:"programs,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the JetStream subject the event is published to.
func (e *BlockEvent) Subject() string {
	return fmt.Sprintf("blocks.%d", e.Slot)
}

// FromParsedBlock converts a block summary to a BlockEvent for publishing.
func FromParsedBlock(b *block.ParsedBlock) *BlockEvent {
	event := &BlockEvent{
		Slot:                b.Slot,
		ParentSlot:          b.ParentSlot,
		Blockhash:           b.Blockhash.String(),
		Leader:              b.Leader.String(),
		RewardLamports:      b.RewardLamports,
		VoteTransactions:    b.Vote,
		NonVoteTransactions: b.NonVote,
		ComputeUnits:        b.ComputeUnits,
		PublishedAt:         time.Now().UTC(),
	}

	if len(b.Programs) > 0 {
		event.Programs = make(map[string]int, len(b.Programs))
		for _, pc := range b.Programs {
			event.Programs[pc.Program.String()] = pc.Count
		}
	}

	return event
}
