package ledger

// txTypeNames maps XRPL TransactionType identifiers to more readable names.
var txTypeNames = map[string]string{
	"Payment":              "Payment",
	"OfferCreate":          "Offer Create (DEX)",
	"OfferCancel":          "Offer Cancel (DEX)",
	"TrustSet":             "Trust Line Set",
	"EscrowCreate":         "Escrow Create",
	"EscrowFinish":         "Escrow Finish",
	"EscrowCancel":         "Escrow Cancel",
	"PaymentChannelCreate": "Payment Channel Create",
	"PaymentChannelFund":   "Payment Channel Fund",
	"PaymentChannelClaim":  "Payment Channel Claim",
	"AccountSet":           "Account Settings",
	"AccountDelete":        "Account Delete",
	"SetRegularKey":        "Set Regular Key",
	"SignerListSet":        "Signer List Set",
	"TicketCreate":         "Ticket Create",
	"NFTokenMint":          "NFT Mint",
	"NFTokenBurn":          "NFT Burn",
	"NFTokenCreateOffer":   "NFT Create Offer",
	"NFTokenCancelOffer":   "NFT Cancel Offer",
	"NFTokenAcceptOffer":   "NFT Accept Offer",
}

// DropsPerXRP is the number of drops in one XRP.
const DropsPerXRP = 1_000_000

// rippleEpochOffset is the number of seconds between the Unix epoch and the
// Ripple epoch (2000-01-01T00:00:00Z). XRPL timestamps count from the latter.
const rippleEpochOffset = 946684800

// TransactionSummary is our domain model for one parsed transaction,
// independent of the raw XRPL JSON shape.
type TransactionSummary struct {
	Hash      string  `json:"hash"`
	Type      string  `json:"type"`
	Result    string  `json:"result"`
	Success   bool    `json:"success"`
	FeeXRP    float64 `json:"fee_xrp"`
	Timestamp string  `json:"timestamp,omitempty"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver,omitempty"`

	// Payment-specific fields, zero-valued for other transaction types.
	Currency string  `json:"currency,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Issuer   string  `json:"issuer,omitempty"`
}

// Memo is one decoded transaction memo. MemoData has already been hex-decoded
// to UTF-8; records that fail to decode are never produced.
type Memo struct {
	MemoData string `json:"memo_data"`
}

// AccountActivity records how often an address appeared in a block.
type AccountActivity struct {
	Address   string `json:"address"`
	Frequency int    `json:"frequency"`
}

// BlockStats is the full analysis of one closed ledger's transactions.
type BlockStats struct {
	TransactionCount      int            `json:"transaction_count"`
	TransactionTypeCounts map[string]int `json:"transaction_type_counts"`
	CurrencyCounts        map[string]int `json:"currency_counts,omitempty"`

	TotalXRPTransferred float64 `json:"total_xrp_transferred,omitempty"`
	LargestPayment      float64 `json:"largest_payment,omitempty"`
	TotalFeesXRP        float64 `json:"total_fees_xrp,omitempty"`

	SignificantAccounts  []AccountActivity    `json:"significant_accounts,omitempty"`
	DetailedTransactions []TransactionSummary `json:"detailed_transactions,omitempty"`

	SpecialWalletReceivedXRP         bool `json:"special_wallet_received_xrp"`
	SpecialWalletReceivedExactAmount bool `json:"special_wallet_received_exact_amount"`
	SpecialWalletReceivedCatAmount   bool `json:"special_wallet_received_cat_amount"`
	HasSpecialWalletMemo             bool `json:"has_special_wallet_memo"`

	SpecialWalletMemos []Memo `json:"special_wallet_memos,omitempty"`
	TransactionMemos   []Memo `json:"transaction_memos,omitempty"`
}

// maxSampleTransactions caps how many parsed transactions are carried in full.
const maxSampleTransactions = 10
