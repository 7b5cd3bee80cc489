package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/xrpwalk/xrpwalk/service/config"
	"github.com/xrpwalk/xrpwalk/service/ledger"
	"github.com/xrpwalk/xrpwalk/service/presenter"
	"github.com/xrpwalk/xrpwalk/service/watcher"
	"github.com/xrpwalk/xrpwalk/service/xrpl"
)

// watchCommand tails the XRPL feed directly, no server or NATS required.
// The presenter renders to the terminal instead of a browser stage.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the XRPL ledger feed directly and print classifications",
		Description: `Connect straight to an XRPL websocket endpoint and run the full
analysis pipeline locally, printing every ledger's classification to the
terminal. Useful for debugging the classifier without a running server.

Example:
  xrpwalk watch --wallet ra22VZUKQbznAAQooPYffPPXs4MUFwqVeH`,
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
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print the full panel for every ledger, not just walkers",
			},
		},
		Action: func(c *cli.Context) error {
			wallet := c.String("wallet")
			if wallet == "" {
				return fmt.Errorf("--wallet (or SPECIAL_WALLET_ADDRESS) is required")
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))

			surface := &consoleSurface{verbose: c.Bool("verbose")}
			renderer := presenter.NewRenderer(surface, presenter.NewPaymentTracker(), logger)
			analyzer := ledger.NewAnalyzer(wallet, c.Int64("special-drops"), c.Int64("cat-drops"), logger)

			feed := xrpl.NewClient(c.String("xrpl-url"), logger)
			feed.OnStatusChange(func(s xrpl.Status) {
				surface.SetStatus(string(s))
			})

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "Watching %s for wallet %s... (Ctrl+C to stop)\n\n",
				c.String("xrpl-url"), wallet)

			w := watcher.New(feed, analyzer, renderer, nil, logger)
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

// consoleSurface renders presenter directives as terminal lines.
type consoleSurface struct {
	verbose bool
}

func (s *consoleSurface) SpawnWalker(w presenter.WalkerSpec) {
	line := fmt.Sprintf("🚶 walker #%d variant=%s size=%dpx", w.ID, w.Variant, w.SizePx)
	if w.Memo != "" {
		line += fmt.Sprintf(" memo=%q", w.Memo)
	}
	if w.SpecialDetection != "" {
		line += fmt.Sprintf(" detection=%s", w.SpecialDetection)
	}
	fmt.Println(line)
}

func (s *consoleSurface) ExpireWalker(id int64) {
	if s.verbose {
		fmt.Printf("   walker #%d expired\n", id)
	}
}

func (s *consoleSurface) UpdatePanel(p presenter.PanelView) {
	fmt.Printf("ledger %d (%s): %d transactions\n", p.LedgerIndex, p.FormattedTime, p.TransactionCount)
	if !s.verbose {
		return
	}
	if p.TotalXRPTransferred > 0 {
		fmt.Printf("   total %.6f XRP, largest %.6f XRP, fees %.6f XRP\n",
			p.TotalXRPTransferred, p.LargestPayment, p.TotalFeesXRP)
	}
	if len(p.TypeCounts) > 0 {
		parts := make([]string, 0, len(p.TypeCounts))
		for name, n := range p.TypeCounts {
			parts = append(parts, fmt.Sprintf("%s×%d", name, n))
		}
		fmt.Printf("   types: %s\n", strings.Join(parts, ", "))
	}
	for _, acct := range p.TopAccounts {
		fmt.Printf("   account %s (%d txs)\n", acct.Address, acct.Frequency)
	}
	if p.ExactPaymentCount > 0 || p.AnyPaymentCount > 0 {
		fmt.Printf("   payments: %d exact / %d total\n", p.ExactPaymentCount, p.AnyPaymentCount)
	}
}

func (s *consoleSurface) SetStatus(status string) {
	fmt.Fprintf(os.Stderr, "-- feed %s --\n", status)
}
