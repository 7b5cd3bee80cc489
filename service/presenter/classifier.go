package presenter

import (
	"strings"

	"github.com/xrpwalk/xrpwalk/service/ledger"
)

// variantRules is the priority-ordered decision list for sprite selection.
// The first matching rule wins; the default rule always matches.
var variantRules = []struct {
	variant Variant
	match   func(*ledger.BlockStats) bool
}{
	{VariantCatAmount, func(d *ledger.BlockStats) bool { return d.SpecialWalletReceivedCatAmount }},
	{VariantExactAmount, func(d *ledger.BlockStats) bool { return d.SpecialWalletReceivedExactAmount }},
	{VariantHappy, func(d *ledger.BlockStats) bool { return d.SpecialWalletReceivedXRP }},
	{VariantNFT, hasMintActivity},
	{VariantDefault, func(d *ledger.BlockStats) bool { return true }},
}

// Classify derives the sprite variant and memo selection for one block.
// It is a pure function of the event: calling it twice on an unmodified
// event yields the same result.
func Classify(details *ledger.BlockStats) Classification {
	if details == nil {
		return Classification{Variant: VariantDefault}
	}

	cls := Classification{Variant: VariantDefault}
	for _, rule := range variantRules {
		if rule.match(details) {
			cls.Variant = rule.variant
			break
		}
	}

	cls.AnyPayment = details.SpecialWalletReceivedXRP
	cls.ExactPayment = details.SpecialWalletReceivedExactAmount || details.SpecialWalletReceivedCatAmount
	cls.Memos = selectMemos(details)

	return cls
}

// hasMintActivity reports whether any transaction-type key looks like NFT or
// token mint activity.
func hasMintActivity(details *ledger.BlockStats) bool {
	for name := range details.TransactionTypeCounts {
		if strings.Contains(name, "NFT") || strings.Contains(name, "Token") || strings.Contains(name, "Mint") {
			return true
		}
	}
	return false
}

// selectMemos implements the memo gate: a special-wallet memo wins when the
// special-wallet payment flag holds and the first memo has content; the
// generic memo list is the fallback only when no special-wallet payment
// occurred. Malformed entries yield no memo rather than an error.
func selectMemos(details *ledger.BlockStats) []string {
	if details.SpecialWalletReceivedXRP {
		if !details.HasSpecialWalletMemo || len(details.SpecialWalletMemos) == 0 {
			return nil
		}
		first := strings.TrimSpace(details.SpecialWalletMemos[0].MemoData)
		if first == "" {
			return nil
		}
		return []string{first}
	}

	if len(details.TransactionMemos) == 0 {
		return nil
	}
	memos := make([]string, 0, len(details.TransactionMemos))
	for _, m := range details.TransactionMemos {
		memos = append(memos, m.MemoData)
	}
	if strings.TrimSpace(memos[0]) == "" {
		return nil
	}
	return memos
}
