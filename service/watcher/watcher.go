package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/xrpwalk/xrpwalk/service/ledger"
	"github.com/xrpwalk/xrpwalk/service/metrics"
	"github.com/xrpwalk/xrpwalk/service/presenter"
	"github.com/xrpwalk/xrpwalk/service/xrpl"
)

// fetchTimeout bounds the per-ledger transaction fetch. Ledgers close every
// few seconds; a fetch slower than this is better skipped than queued.
const fetchTimeout = 20 * time.Second

// LedgerFeed is the slice of the XRPL client the watcher needs.
type LedgerFeed interface {
	Run(ctx context.Context, handler func(xrpl.LedgerClosed)) error
	LedgerTransactions(ctx context.Context, ledgerHash string) ([]map[string]any, error)
}

// Watcher glues the XRPL feed to the analyzer and the presenter: every
// ledger close is fetched, analyzed, classified, and rendered.
type Watcher struct {
	feed     LedgerFeed
	analyzer *ledger.Analyzer
	renderer *presenter.Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a watcher. Metrics may be nil.
func New(feed LedgerFeed, analyzer *ledger.Analyzer, renderer *presenter.Renderer, m *metrics.Metrics, logger *slog.Logger) *Watcher {
	return &Watcher{
		feed:     feed,
		analyzer: analyzer,
		renderer: renderer,
		metrics:  m,
		logger:   logger,
	}
}

// Run subscribes to the feed and processes ledger closes until the context
// is cancelled. Ledgers are handled strictly in delivery order, one at a
// time.
func (w *Watcher) Run(ctx context.Context) error {
	return w.feed.Run(ctx, func(lc xrpl.LedgerClosed) {
		w.HandleLedger(ctx, lc)
	})
}

// HandleLedger processes one closed ledger end to end. Analysis failures
// degrade to an event without details; the panel still updates.
func (w *Watcher) HandleLedger(ctx context.Context, lc xrpl.LedgerClosed) {
	if w.metrics != nil {
		w.metrics.RecordLedgerReceived()
	}
	w.logger.Info("new ledger",
		"ledger_index", lc.LedgerIndex,
		"txn_count", lc.TxnCount,
	)

	ev := &presenter.BlockEvent{
		LedgerHash:       lc.LedgerHash,
		LedgerIndex:      lc.LedgerIndex,
		FormattedTime:    lc.FormattedCloseTime(),
		TransactionCount: lc.TxnCount,
	}

	if lc.TxnCount > 0 {
		ev.Details = w.analyzeLedger(ctx, lc)
	}

	cls, spawned := w.renderer.HandleBlock(ev)

	if w.metrics != nil {
		if spawned {
			w.metrics.RecordWalkerSpawned(string(cls.Variant), cls.Memo() != "")
		} else {
			w.metrics.RecordWalkerThrottled()
		}
	}
	if ev.Details != nil {
		w.recordDetections(ev.Details)
	}
}

// analyzeLedger fetches and analyzes a ledger's transactions. Returns nil
// when the fetch or analysis cannot produce details; the caller renders the
// event without them.
func (w *Watcher) analyzeLedger(ctx context.Context, lc xrpl.LedgerClosed) *ledger.BlockStats {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	rawTxs, err := w.feed.LedgerTransactions(fetchCtx, lc.LedgerHash)
	if w.metrics != nil {
		w.metrics.RecordLedgerFetch(time.Since(start).Seconds())
	}
	if err != nil {
		w.logger.Error("failed to fetch ledger transactions",
			"ledger_index", lc.LedgerIndex,
			"error", err,
		)
		if w.metrics != nil {
			w.metrics.RecordLedgerAnalyzed("fetch_error", 0, 0)
		}
		return nil
	}

	if len(rawTxs) == 0 {
		w.logger.Warn("no transactions returned despite non-zero count",
			"ledger_index", lc.LedgerIndex,
			"txn_count", lc.TxnCount,
		)
		return nil
	}

	txs := make([]ledger.RawTransaction, len(rawTxs))
	for i, raw := range rawTxs {
		txs[i] = ledger.RawTransaction(raw)
	}

	analysisStart := time.Now()
	stats := w.analyzer.AnalyzeBlock(txs)
	if w.metrics != nil {
		w.metrics.RecordLedgerAnalyzed("ok", time.Since(analysisStart).Seconds(), len(txs))
	}

	w.logger.Info("ledger analyzed",
		"ledger_index", lc.LedgerIndex,
		"transactions", len(txs),
		"types", len(stats.TransactionTypeCounts),
		"total_xrp", stats.TotalXRPTransferred,
	)

	return stats
}

func (w *Watcher) recordDetections(d *ledger.BlockStats) {
	if w.metrics == nil {
		return
	}
	if d.SpecialWalletReceivedCatAmount {
		w.metrics.RecordSpecialDetection("cat_amount")
	}
	if d.SpecialWalletReceivedExactAmount {
		w.metrics.RecordSpecialDetection("exact_amount")
	}
	if d.SpecialWalletReceivedXRP {
		w.metrics.RecordSpecialDetection("any_payment")
	}
}
