package presenter

import (
	"github.com/xrpwalk/xrpwalk/service/ledger"
)

// Variant identifies which sprite a walker is rendered with. Variants are
// mutually exclusive; the classifier picks exactly one per block.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantNFT         Variant = "nft"
	VariantHappy       Variant = "happy"
	VariantExactAmount Variant = "exact-amount"
	VariantCatAmount   Variant = "cat-amount"
)

// BlockEvent is one closed-ledger event as delivered to the presenter.
// Details is nil when the ledger closed empty or analysis failed.
type BlockEvent struct {
	LedgerHash       string             `json:"ledger_hash"`
	LedgerIndex      int64              `json:"ledger_index"`
	FormattedTime    string             `json:"formatted_time"`
	TransactionCount int                `json:"transaction_count"`
	Details          *ledger.BlockStats `json:"details,omitempty"`
}

// Classification is the classifier's verdict for one block.
type Classification struct {
	Variant Variant

	// Memos holds the selected memo list; only the first element is ever
	// displayed. Empty when no memo qualified.
	Memos []string

	// AnyPayment and ExactPayment drive the payment tracker. A cat-amount
	// payment counts as an exact-tier payment.
	AnyPayment   bool
	ExactPayment bool
}

// Memo returns the single memo to display, or "" when none qualified.
func (c Classification) Memo() string {
	if len(c.Memos) == 0 {
		return ""
	}
	return c.Memos[0]
}

// WalkerSpec describes one transient animated sprite. The receiving surface
// mounts it immediately and must expect an expiry exactly TTLMillis later,
// independent of animation progress.
type WalkerSpec struct {
	ID             int64   `json:"id"`
	Variant        Variant `json:"variant"`
	SizePx         int     `json:"size_px"`
	TopPx          int     `json:"top_px"`
	Memo           string  `json:"memo,omitempty"`
	BubbleOffsetPx int     `json:"bubble_offset_px,omitempty"`
	TTLMillis      int64   `json:"ttl_ms"`

	// SpecialDetection carries the diagnostic signal when a special-wallet
	// condition fired ("exact_amount", "cat_amount", or "any_payment").
	SpecialDetection string `json:"special_detection,omitempty"`
}

// AccountLine is one masked entry of the panel's notable-accounts list.
type AccountLine struct {
	Address   string `json:"address"`
	Frequency int    `json:"frequency"`
}

// SampleTransaction is one masked entry of the panel's sample list.
type SampleTransaction struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Hash        string  `json:"hash"`
	Success     bool    `json:"success"`
}

// PaymentRecord is one entry of the rolling payment history.
type PaymentRecord struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	IsExact bool   `json:"is_exact"`
}

// PanelView is the full textual info panel for one block. It is rebuilt on
// every event, throttled or not.
type PanelView struct {
	LedgerIndex      int64  `json:"ledger_index"`
	FormattedTime    string `json:"formatted_time"`
	TransactionCount int    `json:"transaction_count"`

	TypeCounts map[string]int `json:"type_counts,omitempty"`

	// XRP aggregates are shown only when present in the analysis.
	TotalXRPTransferred float64 `json:"total_xrp_transferred,omitempty"`
	LargestPayment      float64 `json:"largest_payment,omitempty"`
	TotalFeesXRP        float64 `json:"total_fees_xrp,omitempty"`

	TopAccounts        []AccountLine       `json:"top_accounts,omitempty"`
	SampleTransactions []SampleTransaction `json:"sample_transactions,omitempty"`

	ExactPaymentCount int             `json:"exact_payment_count"`
	AnyPaymentCount   int             `json:"any_payment_count"`
	RecentPayments    []PaymentRecord `json:"recent_payments,omitempty"`
}

// Surface is where render output lands. The production implementation
// publishes directives to NATS for browsers to apply; tests use an in-memory
// one.
type Surface interface {
	// SpawnWalker mounts one sprite (with optional memo bubble).
	SpawnWalker(w WalkerSpec)

	// ExpireWalker removes a previously spawned sprite. Called exactly once
	// per walker when its TTL elapses.
	ExpireWalker(id int64)

	// UpdatePanel replaces the textual info panel.
	UpdatePanel(p PanelView)

	// SetStatus reflects feed connectivity (connecting, connected,
	// disconnected, error).
	SetStatus(status string)
}
