package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/xrpwalk/xrpwalk/client"
	natspkg "github.com/xrpwalk/xrpwalk/service/nats"
)

// streamCommand tails the presenter directive stream from a running server.
func streamCommand() *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Stream presenter directives via SSE (HTTP)",
		Description: `Connect to a running xrpwalk server and print every presenter
directive it relays: panel updates, walker spawns, walker expiries, and feed
status transitions.

Example:
  xrpwalk stream --kind walker --jq '.walker.variant == "cat-amount"'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"XRPWALK_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Restrict to one directive kind (panel, walker, walker_expired, status)",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter that must evaluate to true against the directive (repeatable, all must match)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output directives as JSON (one per line)",
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server")
			kind := c.String("kind")
			jqFilters := c.StringSlice("must-jq")
			jsonOutput := c.Bool("json")

			compiledFilters, err := compileJQFilters(jqFilters)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
			cl := client.NewClient(serverURL, nil, logger)

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Streaming directives from %s... (Ctrl+C to stop)\n\n", serverURL)
			}

			err = cl.Stream(ctx, kind, func(ev client.Event) error {
				if ev.Type == "connected" {
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "✓ Connected\n\n")
					}
					return nil
				}

				if len(compiledFilters) > 0 {
					var doc any
					if err := json.Unmarshal(ev.Data, &doc); err != nil {
						return nil
					}
					if !allFiltersMatch(compiledFilters, doc) {
						return nil
					}
				}

				if jsonOutput {
					fmt.Println(string(ev.Data))
					return nil
				}
				return printDirective(ev)
			})
			if ctx.Err() != nil {
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "\nDisconnected\n")
				}
				return nil
			}
			return err
		},
	}
}

func compileJQFilters(filters []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return compiled, nil
}

// allFiltersMatch returns true when every compiled filter evaluates to a
// truthy value against the document.
func allFiltersMatch(filters []*gojq.Code, doc any) bool {
	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

// isTruthy follows jq semantics: false and null are falsy, everything else
// is truthy.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case nil:
		return false
	default:
		return true
	}
}

// printDirective renders a directive in human-readable form.
func printDirective(ev client.Event) error {
	d, err := ev.Directive()
	if err != nil {
		return nil
	}

	switch d.Kind {
	case natspkg.KindStatus:
		fmt.Printf("[status] feed %s\n", d.Status)
	case natspkg.KindWalker:
		if d.Walker == nil {
			return nil
		}
		line := fmt.Sprintf("[walker] #%d variant=%s size=%dpx", d.Walker.ID, d.Walker.Variant, d.Walker.SizePx)
		if d.Walker.Memo != "" {
			line += fmt.Sprintf(" memo=%q", d.Walker.Memo)
		}
		if d.Walker.SpecialDetection != "" {
			line += fmt.Sprintf(" detection=%s", d.Walker.SpecialDetection)
		}
		fmt.Println(line)
	case natspkg.KindWalkerExpired:
		fmt.Printf("[walker] #%d expired\n", d.WalkerID)
	case natspkg.KindPanel:
		if d.Panel == nil {
			return nil
		}
		fmt.Printf("[panel] ledger %d: %d transactions, %.6f XRP moved\n",
			d.Panel.LedgerIndex, d.Panel.TransactionCount, d.Panel.TotalXRPTransferred)
	}
	return nil
}

// healthCommand checks the server health endpoint.
func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"XRPWALK_SERVER_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			cl := client.NewClient(c.String("server"), nil, nil)
			if err := cl.Health(context.Background()); err != nil {
				return err
			}
			fmt.Println("✓ Server is healthy")
			return nil
		},
	}
}
