package ledger

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
)

// amountTolerance allows for tiny rounding differences when an amount arrives
// as a decimal XRP value instead of integer drops.
const amountTolerance = 0.000001

// Analyzer computes BlockStats for the transactions of one closed ledger,
// including detection of payments to the tracked special wallet.
type Analyzer struct {
	// SpecialWallet is the address whose incoming payments get distinguished
	// treatment downstream.
	SpecialWallet string

	// SpecialAmountDrops and CatAmountDrops are the two exact payment sizes
	// bound to their own animation tiers.
	SpecialAmountDrops int64
	CatAmountDrops     int64

	Logger *slog.Logger
}

// NewAnalyzer creates an analyzer for the given special wallet and amount tiers.
func NewAnalyzer(specialWallet string, specialAmountDrops, catAmountDrops int64, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		SpecialWallet:      specialWallet,
		SpecialAmountDrops: specialAmountDrops,
		CatAmountDrops:     catAmountDrops,
		Logger:             logger,
	}
}

// AnalyzeBlock analyzes a list of raw transactions from one ledger.
func (a *Analyzer) AnalyzeBlock(transactions []RawTransaction) *BlockStats {
	stats := &BlockStats{
		TransactionCount:      len(transactions),
		TransactionTypeCounts: make(map[string]int),
		CurrencyCounts:        make(map[string]int),
	}

	accountCounts := make(map[string]int)
	var totalFeeDrops int64

	for _, tx := range transactions {
		info := Parse(tx)

		stats.TransactionTypeCounts[info.Type]++
		totalFeeDrops += tx.FeeDrops()

		if info.Sender != "" {
			accountCounts[info.Sender]++
		}
		if info.Receiver != "" {
			accountCounts[info.Receiver]++
		}

		if len(stats.DetailedTransactions) < maxSampleTransactions {
			stats.DetailedTransactions = append(stats.DetailedTransactions, info)
		}

		if info.Type == "Payment" {
			stats.CurrencyCounts[info.Currency]++
			if info.Currency == "XRP" {
				stats.TotalXRPTransferred += info.Amount
				if info.Amount > stats.LargestPayment {
					stats.LargestPayment = info.Amount
				}
			}
			a.checkSpecialWallet(tx, info, stats)
		}

		a.collectMemos(tx, info, stats)
	}

	stats.TotalFeesXRP = float64(totalFeeDrops) / DropsPerXRP
	stats.SignificantAccounts = rankAccounts(accountCounts)

	return stats
}

// checkSpecialWallet runs the redundant detection paths for a payment landing
// on the special wallet: the parsed receiver, the raw Destination/Amount
// fields, the metadata balance delta, and the delivered_amount field. Any one
// of them is sufficient; the exact/cat tiers additionally need an amount match.
func (a *Analyzer) checkSpecialWallet(tx RawTransaction, info TransactionSummary, stats *BlockStats) {
	if a.SpecialWallet == "" {
		return
	}

	// Path 1: parsed receiver and amount
	if info.Receiver == a.SpecialWallet && info.Currency == "XRP" {
		stats.SpecialWalletReceivedXRP = true
		a.matchAmountXRP(info.Amount, stats)
	}

	// Path 2: raw Destination plus the Amount field
	if tx.Destination() == a.SpecialWallet {
		stats.SpecialWalletReceivedXRP = true
		if drops, ok := tx.AmountDrops(); ok {
			a.matchAmountDrops(drops, stats)
		} else {
			amount := tx.Amount()
			if amount.Currency == "XRP" {
				a.matchAmountXRP(amount.Value, stats)
			}
		}
	}

	// Path 3: metadata balance delta on the wallet's AccountRoot
	if increase, ok := a.balanceIncrease(tx); ok {
		stats.SpecialWalletReceivedXRP = true
		a.matchAmountDrops(increase, stats)
	}

	// Path 4: delivered_amount in the metadata
	if tx.Destination() == a.SpecialWallet {
		a.checkDeliveredAmount(tx, stats)
	}

	if stats.SpecialWalletReceivedXRP && a.Logger != nil {
		a.Logger.Debug("special wallet payment detected",
			"hash", info.Hash,
			"exact", stats.SpecialWalletReceivedExactAmount,
			"cat", stats.SpecialWalletReceivedCatAmount,
		)
	}
}

// balanceIncrease scans meta.AffectedNodes for a ModifiedNode AccountRoot
// belonging to the special wallet whose balance grew, returning the increase
// in drops.
func (a *Analyzer) balanceIncrease(tx RawTransaction) (int64, bool) {
	meta, ok := tx["meta"].(map[string]any)
	if !ok {
		return 0, false
	}
	nodes, ok := meta["AffectedNodes"].([]any)
	if !ok {
		return 0, false
	}

	for _, node := range nodes {
		nodeObj, ok := node.(map[string]any)
		if !ok {
			continue
		}
		modified, ok := nodeObj["ModifiedNode"].(map[string]any)
		if !ok {
			continue
		}
		if modified["LedgerEntryType"] != "AccountRoot" {
			continue
		}
		final, _ := modified["FinalFields"].(map[string]any)
		if final == nil || final["Account"] != a.SpecialWallet {
			continue
		}
		prev, _ := modified["PreviousFields"].(map[string]any)

		finalBalance := dropsField(final, "Balance")
		prevBalance := dropsField(prev, "Balance")
		if finalBalance > prevBalance && prevBalance > 0 {
			return finalBalance - prevBalance, true
		}
	}
	return 0, false
}

func (a *Analyzer) checkDeliveredAmount(tx RawTransaction, stats *BlockStats) {
	meta, ok := tx["meta"].(map[string]any)
	if !ok {
		return
	}
	switch delivered := meta["delivered_amount"].(type) {
	case string:
		if drops, err := strconv.ParseInt(delivered, 10, 64); err == nil {
			a.matchAmountDrops(drops, stats)
		}
	case map[string]any:
		if delivered["currency"] != "XRP" {
			return
		}
		if val, ok := delivered["value"].(string); ok {
			if xrp, err := strconv.ParseFloat(val, 64); err == nil {
				a.matchAmountXRP(xrp, stats)
			}
		}
	}
}

// matchAmountDrops sets the exact/cat tier flags for an integer drops amount.
func (a *Analyzer) matchAmountDrops(drops int64, stats *BlockStats) {
	if drops == a.SpecialAmountDrops {
		stats.SpecialWalletReceivedExactAmount = true
	}
	if drops == a.CatAmountDrops {
		stats.SpecialWalletReceivedCatAmount = true
	}
}

// matchAmountXRP sets the exact/cat tier flags for a decimal XRP amount,
// tolerating tiny rounding differences.
func (a *Analyzer) matchAmountXRP(xrp float64, stats *BlockStats) {
	if math.Abs(xrp-float64(a.SpecialAmountDrops)/DropsPerXRP) < amountTolerance {
		stats.SpecialWalletReceivedExactAmount = true
	}
	if math.Abs(xrp-float64(a.CatAmountDrops)/DropsPerXRP) < amountTolerance {
		stats.SpecialWalletReceivedCatAmount = true
	}
}

// collectMemos routes a transaction's memos either to the special-wallet memo
// list (payments landing on the special wallet) or to the generic fallback
// list used when no special-wallet memo exists.
func (a *Analyzer) collectMemos(tx RawTransaction, info TransactionSummary, stats *BlockStats) {
	memos := tx.Memos()
	if len(memos) == 0 {
		return
	}
	if info.Type == "Payment" && a.SpecialWallet != "" && tx.Destination() == a.SpecialWallet {
		stats.SpecialWalletMemos = append(stats.SpecialWalletMemos, memos...)
		stats.HasSpecialWalletMemo = true
		return
	}
	stats.TransactionMemos = append(stats.TransactionMemos, memos...)
}

// rankAccounts orders accounts by descending activity. Ties resolve by
// address for a stable order.
func rankAccounts(counts map[string]int) []AccountActivity {
	ranked := make([]AccountActivity, 0, len(counts))
	for addr, freq := range counts {
		ranked = append(ranked, AccountActivity{Address: addr, Frequency: freq})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Frequency != ranked[j].Frequency {
			return ranked[i].Frequency > ranked[j].Frequency
		}
		return ranked[i].Address < ranked[j].Address
	})
	return ranked
}

// dropsField reads a drops balance out of a metadata field object.
func dropsField(fields map[string]any, key string) int64 {
	if fields == nil {
		return 0
	}
	switch v := fields[key].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int64(v)
	}
	return 0
}
