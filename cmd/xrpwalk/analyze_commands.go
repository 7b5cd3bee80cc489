package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xrpwalk/xrpwalk/service/config"
	"github.com/xrpwalk/xrpwalk/service/ledger"
	"github.com/xrpwalk/xrpwalk/service/presenter"
	"github.com/xrpwalk/xrpwalk/service/xrpl"
)

// analyzeCommand analyzes a single ledger and prints the result.
func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze one ledger's transactions and print the stats",
		ArgsUsage: "[ledger_hash]",
		Description: `Fetch a single ledger from the XRPL websocket endpoint and run the
analyzer on its transactions. Without a ledger hash, the next ledger to close
is analyzed.

Example:
  xrpwalk analyze --wallet ra22VZUKQbznAAQooPYffPPXs4MUFwqVeH`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "xrpl-url",
				Usage:   "XRPL websocket URL",
				Value:   "wss://xrplcluster.com/",
				EnvVars: []string{"XRPL_WS_URL"},
			},
			&cli.StringFlag{
				Name:    "wallet",
				Aliases: []string{"w"},
				Usage:   "Special wallet address to track",
				EnvVars: []string{"SPECIAL_WALLET_ADDRESS"},
			},
			&cli.Int64Flag{
				Name:  "special-drops",
				Usage: "Exact-amount tier in drops",
				Value: config.DefaultSpecialAmountDrops,
			},
			&cli.Int64Flag{
				Name:  "cat-drops",
				Usage: "Cat-amount tier in drops",
				Value: config.DefaultCatAmountDrops,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   30 * time.Second,
				Usage:   "How long to wait for the ledger",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output stats as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			wallet := c.String("wallet")
			if wallet == "" {
				return fmt.Errorf("--wallet (or SPECIAL_WALLET_ADDRESS) is required")
			}
			ledgerHash := c.Args().First()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			feed := xrpl.NewClient(c.String("xrpl-url"), logger)

			// The feed delivers into this channel; without a hash argument
			// the first close notification picks the ledger.
			closes := make(chan xrpl.LedgerClosed, 1)
			runErr := make(chan error, 1)
			runCtx, stopFeed := context.WithCancel(ctx)
			defer stopFeed()

			go func() {
				runErr <- feed.Run(runCtx, func(lc xrpl.LedgerClosed) {
					select {
					case closes <- lc:
					default:
					}
				})
			}()

			var targetHash string
			var targetIndex int64
			if ledgerHash != "" {
				targetHash = ledgerHash
			} else {
				select {
				case lc := <-closes:
					targetHash = lc.LedgerHash
					targetIndex = lc.LedgerIndex
				case err := <-runErr:
					return fmt.Errorf("feed stopped before a ledger closed: %w", err)
				case <-ctx.Done():
					return fmt.Errorf("timed out waiting for a ledger close")
				}
			}

			rawTxs, err := feed.LedgerTransactions(ctx, targetHash)
			if err != nil {
				return fmt.Errorf("failed to fetch ledger %s: %w", targetHash, err)
			}

			txs := make([]ledger.RawTransaction, len(rawTxs))
			for i, raw := range rawTxs {
				txs[i] = ledger.RawTransaction(raw)
			}

			analyzer := ledger.NewAnalyzer(wallet, c.Int64("special-drops"), c.Int64("cat-drops"), logger)
			stats := analyzer.AnalyzeBlock(txs)

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			printStats(targetHash, targetIndex, stats)
			return nil
		},
	}
}

// printStats renders an analysis the way the info panel presents it.
func printStats(hash string, index int64, stats *ledger.BlockStats) {
	if index > 0 {
		fmt.Printf("Ledger %d (%s)\n", index, hash)
	} else {
		fmt.Printf("Ledger %s\n", hash)
	}
	fmt.Printf("  %d transactions\n", stats.TransactionCount)

	if len(stats.TransactionTypeCounts) > 0 {
		fmt.Println("\n  Transaction types:")
		names := make([]string, 0, len(stats.TransactionTypeCounts))
		for name := range stats.TransactionTypeCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("    %-28s %d\n", name, stats.TransactionTypeCounts[name])
		}
	}

	if stats.TotalXRPTransferred > 0 {
		fmt.Printf("\n  Total XRP transferred: %.6f\n", stats.TotalXRPTransferred)
		fmt.Printf("  Largest payment:       %.6f\n", stats.LargestPayment)
	}
	if stats.TotalFeesXRP > 0 {
		fmt.Printf("  Total fees:            %.6f\n", stats.TotalFeesXRP)
	}

	if len(stats.SignificantAccounts) > 0 {
		fmt.Println("\n  Most active accounts:")
		for _, acct := range stats.SignificantAccounts {
			fmt.Printf("    %s (%d txs)\n", acct.Address, acct.Frequency)
		}
	}

	cls := presenter.Classify(stats)
	fmt.Printf("\n  Classification: %s\n", cls.Variant)
	if stats.SpecialWalletReceivedXRP {
		fmt.Println("  Special wallet received XRP")
	}
	for _, memo := range cls.Memos {
		fmt.Printf("  Memo: %q\n", memo)
	}
}
