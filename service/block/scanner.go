package block

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solscope/service/metrics"
	"github.com/brojonat/solscope/service/solana"
	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = time.Duration(0)
)

// BlockFetcher is the node query the scanner needs.
type BlockFetcher interface {
	GetBlock(ctx context.Context, slot uint64) (*rpc.GetBlockResult, error)
}

// SlotFunc receives the outcome of one slot. A non-nil return stops the scan.
type SlotFunc func(slot uint64, b *ParsedBlock, err error) error

// Scanner walks a slot range, fetching and aggregating each block.
type Scanner struct {
	node     BlockFetcher
	programs solana.Programs
	verbose  bool
	attempts uint
	delay    time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithAttempts sets the number of fetches per slot before it is skipped.
func WithAttempts(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.attempts = uint(n)
		}
	}
}

// WithDelay sets the pause between fetch attempts.
func WithDelay(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithVerbose enables per-program instruction counts.
func WithVerbose(v bool) ScannerOption {
	return func(s *Scanner) { s.verbose = v }
}

// NewScanner creates a Scanner. If metrics is nil, no metrics will be recorded.
func NewScanner(node BlockFetcher, programs solana.Programs, m *metrics.Metrics, logger *slog.Logger, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		node:     node,
		programs: programs,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		metrics:  m,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan visits every slot in start..=end in order. A slot whose fetch keeps
// failing is passed to fn with ErrSlotSkipped; a fetched block that cannot be
// aggregated is passed with that error. Neither stops the scan.
func (s *Scanner) Scan(ctx context.Context, start, end uint64, fn SlotFunc) error {
	if end < start {
		return fmt.Errorf("invalid slot range %d..%d", start, end)
	}
	for slot := start; ; slot++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := s.scanSlot(ctx, slot)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(slot, b, err); err != nil {
			return err
		}
		if slot == end {
			return nil
		}
	}
}

func (s *Scanner) scanSlot(ctx context.Context, slot uint64) (*ParsedBlock, error) {
	attempt := 0
	operation := func() (*rpc.GetBlockResult, error) {
		attempt++
		return s.node.GetBlock(ctx, slot)
	}
	notify := func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "block fetch failed",
			"slot", slot,
			"attempt", fmt.Sprintf("%d/%d", attempt, s.attempts),
			"retry_in", wait,
			"error", err,
		)
		s.metrics.RecordRPCRetry("GetBlock", "fetch_failed")
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.delay)),
		backoff.WithMaxTries(s.attempts),
		backoff.WithNotify(notify),
	)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping slot", "slot", slot, "attempts", attempt, "error", err)
		s.metrics.RecordBlockScanned("skipped")
		return nil, fmt.Errorf("slot %d: %w: %v", slot, ErrSlotSkipped, err)
	}

	parsed, err := Aggregate(raw, slot, s.programs, s.verbose)
	if err != nil {
		s.metrics.RecordBlockScanned("malformed")
		return nil, err
	}
	s.metrics.RecordBlockScanned("ok")
	s.metrics.RecordBlockSummary(parsed.Vote, parsed.NonVote, parsed.ComputeUnits)
	return parsed, nil
}
