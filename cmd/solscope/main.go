package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return newAppWithPublisher(jetStreamPublisher)
}

func newAppWithPublisher(newPublisher publisherFactory) *cli.App {
	return &cli.App{
		Name:  "solscope",
		Usage: "Inspect Solana accounts, transactions and blocks",
		Description: `A read-only inspector for on-chain state.

Give it an account address, a transaction signature or a slot range and it
fetches the raw data from an RPC node and renders a readable summary.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			accountCommand(),
			transactionCommand(),
			blockCommand(newPublisher),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "RPC endpoint URL or alias (mainnet, devnet, testnet, localnet, m, d, t, l)",
				EnvVars: []string{"SOLSCOPE_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "commitment",
				Usage:   "Commitment level (processed, confirmed, finalized)",
				EnvVars: []string{"SOLSCOPE_COMMITMENT"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format (table, json, yaml)",
				Value:   "table",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to JSON output",
			},
			&cli.StringSliceFlag{
				Name:    "metadata-source",
				Usage:   "Symbol sources in lookup order (metaplex, token2022)",
				EnvVars: []string{"SOLSCOPE_METADATA_SOURCES"},
			},
			&cli.IntFlag{
				Name:    "metadata-concurrency",
				Usage:   "Maximum concurrent symbol lookups",
				EnvVars: []string{"SOLSCOPE_METADATA_CONCURRENCY"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address while the command runs",
				EnvVars: []string{"SOLSCOPE_METRICS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (json, text)",
				Value: "json",
			},
		},
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr, format string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
