package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/brojonat/solscope/service/block"
	"github.com/brojonat/solscope/service/display"
	"github.com/brojonat/solscope/service/metrics"
	"github.com/brojonat/solscope/service/nats"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func accountCommand() *cli.Command {
	return &cli.Command{
		Name:      "account",
		Aliases:   []string{"a"},
		Usage:     "Inspect an account: wallet, token account, mint or anything else",
		ArgsUsage: "ADDRESS",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("account address is required")
			}
			key, err := solanago.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid account address: %w", err)
			}

			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			inspector, err := rt.inspector()
			if err != nil {
				return err
			}
			parsed, err := inspector.Inspect(c.Context, key)
			if err != nil {
				return fmt.Errorf("failed to inspect account: %w", err)
			}
			return rt.out.emit(parsed, func(r *display.Renderer) error {
				return r.Account(parsed)
			})
		},
	}
}

func transactionCommand() *cli.Command {
	return &cli.Command{
		Name:      "transaction",
		Aliases:   []string{"tx"},
		Usage:     "Inspect a transaction, expanding lookup table accounts",
		ArgsUsage: "SIGNATURE",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction signature is required")
			}
			sig, err := solanago.SignatureFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid signature: %w", err)
			}

			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			env, err := rt.client.GetTransaction(c.Context, sig)
			if err != nil {
				return fmt.Errorf("failed to fetch transaction: %w", err)
			}
			parsed, err := rt.resolver().Resolve(c.Context, env)
			if err != nil {
				return fmt.Errorf("failed to resolve transaction: %w", err)
			}
			return rt.out.emit(parsed, func(r *display.Renderer) error {
				r.Transaction(parsed)
				return nil
			})
		},
	}
}

// publisherFactory opens the sink that --publish sends block events to.
type publisherFactory func(url string, m *metrics.Metrics, logger *slog.Logger) (nats.Publisher, error)

// jetStreamPublisher connects to NATS JetStream.
func jetStreamPublisher(url string, m *metrics.Metrics, logger *slog.Logger) (nats.Publisher, error) {
	p, err := nats.NewPublisher(url, m, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func blockCommand(newPublisher publisherFactory) *cli.Command {
	return &cli.Command{
		Name:      "block",
		Aliases:   []string{"b"},
		Usage:     "Summarize one block or an inclusive slot range",
		ArgsUsage: "START [END]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Count instructions per program",
			},
			&cli.IntFlag{
				Name:    "attempts",
				Usage:   "Fetch attempts per slot before it is skipped",
				EnvVars: []string{"SOLSCOPE_BLOCK_ATTEMPTS"},
			},
			&cli.DurationFlag{
				Name:    "retry-delay",
				Usage:   "Pause between fetch attempts (e.g., 500ms)",
				EnvVars: []string{"SOLSCOPE_BLOCK_RETRY_DELAY"},
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "Publish each block summary to NATS JetStream",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			start, end, err := parseSlotRange(c.Args().Slice())
			if err != nil {
				return err
			}

			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if c.IsSet("attempts") {
				rt.cfg.BlockAttempts = c.Int("attempts")
			}
			if c.IsSet("retry-delay") {
				rt.cfg.BlockRetryDelay = c.Duration("retry-delay")
			}
			if c.IsSet("nats-url") {
				rt.cfg.NATSURL = c.String("nats-url")
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}

			var publisher nats.Publisher
			if c.Bool("publish") {
				p, err := newPublisher(rt.cfg.NATSURL, rt.metrics, rt.logger)
				if err != nil {
					return err
				}
				defer p.Close()
				publisher = p
			}

			scanner := block.NewScanner(rt.client, rt.programs, rt.metrics, rt.logger,
				block.WithAttempts(rt.cfg.BlockAttempts),
				block.WithDelay(rt.cfg.BlockRetryDelay),
				block.WithVerbose(c.Bool("verbose")),
			)
			return scanner.Scan(c.Context, start, end, func(slot uint64, b *block.ParsedBlock, err error) error {
				if err != nil {
					rt.logger.Warn("slot failed", "slot", slot, "error", err)
					return rt.out.slotFailed(slot, err)
				}
				if publisher != nil {
					if err := publisher.PublishBlock(c.Context, nats.FromParsedBlock(b)); err != nil {
						rt.logger.Warn("failed to publish block", "slot", slot, "error", err)
					}
				}
				return rt.out.emit(b, func(r *display.Renderer) error {
					r.Block(b)
					return nil
				})
			})
		},
	}
}

// parseSlotRange reads START [END]; END defaults to START.
func parseSlotRange(args []string) (uint64, uint64, error) {
	if len(args) < 1 {
		return 0, 0, errors.New("start slot is required")
	}
	if len(args) > 2 {
		return 0, 0, errors.New("expected at most two slots")
	}
	start, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start slot %q: %w", args[0], err)
	}
	end := start
	if len(args) == 2 {
		end, err = strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid end slot %q: %w", args[1], err)
		}
	}
	if end < start {
		return 0, 0, fmt.Errorf("end slot %d is before start slot %d", end, start)
	}
	return start, end, nil
}
