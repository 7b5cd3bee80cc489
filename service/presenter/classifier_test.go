package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrpwalk/xrpwalk/service/ledger"
)

func TestClassify_NilDetails(t *testing.T) {
	cls := Classify(nil)
	assert.Equal(t, VariantDefault, cls.Variant)
	assert.False(t, cls.AnyPayment)
	assert.Empty(t, cls.Memos)
}

func TestClassify_Default(t *testing.T) {
	cls := Classify(&ledger.BlockStats{
		TransactionCount:      5,
		TransactionTypeCounts: map[string]int{"Payment": 3, "Offer Create (DEX)": 2},
	})
	assert.Equal(t, VariantDefault, cls.Variant)
}

func TestClassify_NFTActivity(t *testing.T) {
	for _, typeName := range []string{"NFT Mint", "NFT Burn", "TokenSwap", "SomethingMint"} {
		cls := Classify(&ledger.BlockStats{
			TransactionTypeCounts: map[string]int{typeName: 1},
		})
		assert.Equal(t, VariantNFT, cls.Variant, "type %s", typeName)
	}
}

func TestClassify_Priority(t *testing.T) {
	// Every tier flag plus NFT activity set at once: highest priority wins
	details := &ledger.BlockStats{
		TransactionTypeCounts:            map[string]int{"NFT Mint": 1},
		SpecialWalletReceivedXRP:         true,
		SpecialWalletReceivedExactAmount: true,
		SpecialWalletReceivedCatAmount:   true,
	}
	assert.Equal(t, VariantCatAmount, Classify(details).Variant)

	details.SpecialWalletReceivedCatAmount = false
	assert.Equal(t, VariantExactAmount, Classify(details).Variant)

	details.SpecialWalletReceivedExactAmount = false
	assert.Equal(t, VariantHappy, Classify(details).Variant)

	details.SpecialWalletReceivedXRP = false
	assert.Equal(t, VariantNFT, Classify(details).Variant)

	details.TransactionTypeCounts = nil
	assert.Equal(t, VariantDefault, Classify(details).Variant)
}

func TestClassify_Idempotent(t *testing.T) {
	details := &ledger.BlockStats{
		SpecialWalletReceivedXRP: true,
		HasSpecialWalletMemo:     true,
		SpecialWalletMemos:       []ledger.Memo{{MemoData: "hello"}},
	}
	first := Classify(details)
	second := Classify(details)
	assert.Equal(t, first, second)
}

func TestClassify_PaymentFlags(t *testing.T) {
	cls := Classify(&ledger.BlockStats{
		SpecialWalletReceivedXRP:       true,
		SpecialWalletReceivedCatAmount: true,
	})
	assert.True(t, cls.AnyPayment)
	assert.True(t, cls.ExactPayment, "the cat tier counts as an exact payment")

	cls = Classify(&ledger.BlockStats{SpecialWalletReceivedXRP: true})
	assert.True(t, cls.AnyPayment)
	assert.False(t, cls.ExactPayment)
}

func TestSelectMemos_SpecialWalletWins(t *testing.T) {
	cls := Classify(&ledger.BlockStats{
		SpecialWalletReceivedXRP: true,
		HasSpecialWalletMemo:     true,
		SpecialWalletMemos: []ledger.Memo{
			{MemoData: "first"},
			{MemoData: "second"},
		},
		TransactionMemos: []ledger.Memo{{MemoData: "fallback"}},
	})
	require.Len(t, cls.Memos, 1, "only the first special-wallet memo is shown")
	assert.Equal(t, "first", cls.Memos[0])
	assert.Equal(t, "first", cls.Memo())
}

func TestSelectMemos_SpecialPaymentWithoutMemo(t *testing.T) {
	// A special-wallet payment suppresses the generic fallback even when it
	// carries no memo of its own.
	cls := Classify(&ledger.BlockStats{
		SpecialWalletReceivedXRP: true,
		TransactionMemos:         []ledger.Memo{{MemoData: "fallback"}},
	})
	assert.Empty(t, cls.Memos)
	assert.Equal(t, "", cls.Memo())
}

func TestSelectMemos_BlankSpecialMemo(t *testing.T) {
	cls := Classify(&ledger.BlockStats{
		SpecialWalletReceivedXRP: true,
		HasSpecialWalletMemo:     true,
		SpecialWalletMemos:       []ledger.Memo{{MemoData: "   "}},
	})
	assert.Empty(t, cls.Memos)
}

func TestSelectMemos_Fallback(t *testing.T) {
	cls := Classify(&ledger.BlockStats{
		TransactionMemos: []ledger.Memo{
			{MemoData: "note one"},
			{MemoData: "note two"},
		},
	})
	assert.Equal(t, []string{"note one", "note two"}, cls.Memos)
	assert.Equal(t, "note one", cls.Memo())
}

func TestSelectMemos_BlankFallback(t *testing.T) {
	cls := Classify(&ledger.BlockStats{
		TransactionMemos: []ledger.Memo{{MemoData: ""}},
	})
	assert.Empty(t, cls.Memos)
}
