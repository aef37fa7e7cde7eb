// Package block summarizes fetched blocks and scans slot ranges.
package block

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/brojonat/solscope/service/balance"
	"github.com/brojonat/solscope/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrMissingMeta  = errors.New("block transaction has no status metadata")
	ErrNoFeeReward  = errors.New("block has no fee reward")
	ErrSlotSkipped  = errors.New("slot skipped after repeated fetch failures")
	errNoProgramKey = errors.New("instruction program index out of range")
)

// ProgramCount is the number of top-level instructions targeting Program.
type ProgramCount struct {
	Program solanago.PublicKey `json:"program"`
	Count   int                `json:"count"`
}

// ParsedBlock is the summary of one block.
type ParsedBlock struct {
	Slot           uint64             `json:"slot"`
	ParentSlot     uint64             `json:"parent_slot"`
	Blockhash      solanago.Hash      `json:"blockhash"`
	Leader         solanago.PublicKey `json:"leader"`
	RewardLamports int64              `json:"reward_lamports"`
	RewardWhole    int64              `json:"reward_whole"`
	RewardFrac     int64              `json:"reward_frac"`
	Vote           int                `json:"vote"`
	NonVote        int                `json:"non_vote"`
	Total          int                `json:"total"`
	ComputeUnits   uint64             `json:"compute_units"`
	Programs       []ProgramCount     `json:"programs,omitempty"`
}

// Aggregate tallies vote and non-vote transactions and compute units of b.
// With verbose, it also counts top-level instructions per target program.
// Every transaction must carry metadata with compute units, and the block
// must have a fee reward.
func Aggregate(b *rpc.GetBlockResult, slot uint64, programs solana.Programs, verbose bool) (*ParsedBlock, error) {
	out := &ParsedBlock{
		Slot:       slot,
		ParentSlot: b.ParentSlot,
		Blockhash:  b.Blockhash,
	}

	fee, ok := feeReward(b.Rewards)
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrNoFeeReward)
	}
	out.Leader = fee.Pubkey
	out.RewardLamports = fee.Lamports
	out.RewardWhole, out.RewardFrac = balance.SplitLamports(fee.Lamports)

	counts := map[solanago.PublicKey]int{}
	for i, twm := range b.Transactions {
		if twm.Meta == nil || twm.Meta.ComputeUnitsConsumed == nil {
			return nil, fmt.Errorf("slot %d transaction %d: %w", slot, i, ErrMissingMeta)
		}
		tx, err := twm.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("slot %d transaction %d: decode: %w", slot, i, err)
		}

		vote, err := isVote(&tx.Message, programs.Vote)
		if err != nil {
			return nil, fmt.Errorf("slot %d transaction %d: %w", slot, i, err)
		}
		if vote {
			out.Vote++
		} else {
			out.NonVote++
		}
		out.ComputeUnits += *twm.Meta.ComputeUnitsConsumed

		if verbose {
			for _, ix := range tx.Message.Instructions {
				id, err := programID(&tx.Message, ix)
				if err != nil {
					return nil, fmt.Errorf("slot %d transaction %d: %w", slot, i, err)
				}
				counts[id]++
			}
		}
	}
	out.Total = out.Vote + out.NonVote

	if verbose {
		out.Programs = sortCounts(counts)
	}
	return out, nil
}

func feeReward(rewards []rpc.BlockReward) (rpc.BlockReward, bool) {
	for _, r := range rewards {
		if r.RewardType == rpc.RewardTypeFee {
			return r, true
		}
	}
	return rpc.BlockReward{}, false
}

// isVote reports whether msg has exactly one instruction and it targets vote.
func isVote(msg *solanago.Message, vote solanago.PublicKey) (bool, error) {
	if len(msg.Instructions) != 1 {
		return false, nil
	}
	id, err := programID(msg, msg.Instructions[0])
	if err != nil {
		return false, err
	}
	return id.Equals(vote), nil
}

// programID resolves ix's target. Program ids are always static keys.
func programID(msg *solanago.Message, ix solanago.CompiledInstruction) (solanago.PublicKey, error) {
	idx := int(ix.ProgramIDIndex)
	if idx >= len(msg.AccountKeys) {
		return solanago.PublicKey{}, fmt.Errorf("%w: %d of %d", errNoProgramKey, idx, len(msg.AccountKeys))
	}
	return msg.AccountKeys[idx], nil
}

// sortCounts orders by count descending, ties by raw program id bytes.
func sortCounts(counts map[solanago.PublicKey]int) []ProgramCount {
	out := make([]ProgramCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, ProgramCount{Program: id, Count: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return bytes.Compare(out[a].Program[:], out[b].Program[:]) < 0
	})
	return out
}
