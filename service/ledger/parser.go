package ledger

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// RawTransaction is one transaction as returned by the XRPL `ledger` request
// with expand=true. The wire shape varies between server versions (fields may
// live at the top level, under tx_json, tx, or transaction), so it stays a map
// and the accessors below probe the known locations.
type RawTransaction map[string]any

// txData returns the object holding the actual transaction fields. Newer
// rippled versions nest them under tx_json.
func (tx RawTransaction) txData() map[string]any {
	if inner, ok := tx["tx_json"].(map[string]any); ok {
		return inner
	}
	return tx
}

// TransactionType returns the human-readable transaction type, probing the
// top level and the known nested locations.
func (tx RawTransaction) TransactionType() string {
	if t, ok := tx["TransactionType"].(string); ok {
		return displayTypeName(t)
	}
	for _, loc := range []string{"tx_json", "tx", "transaction", "meta"} {
		if inner, ok := tx[loc].(map[string]any); ok {
			if t, ok := inner["TransactionType"].(string); ok {
				return displayTypeName(t)
			}
		}
	}
	return "Unknown"
}

func displayTypeName(txType string) string {
	if name, ok := txTypeNames[txType]; ok {
		return name
	}
	return txType
}

// Result returns the engine result code (e.g. tesSUCCESS) from the metadata.
func (tx RawTransaction) Result() string {
	for _, loc := range []string{"meta", "metadata"} {
		if meta, ok := tx[loc].(map[string]any); ok {
			if r, ok := meta["TransactionResult"].(string); ok {
				return r
			}
		}
	}
	if r, ok := tx["TransactionResult"].(string); ok {
		return r
	}
	return "Unknown"
}

// Hash returns the transaction hash from the outer object or the tx data.
func (tx RawTransaction) Hash() string {
	if h, ok := tx["hash"].(string); ok {
		return h
	}
	if h, ok := tx.txData()["hash"].(string); ok {
		return h
	}
	return ""
}

// FeeDrops returns the transaction fee in drops.
func (tx RawTransaction) FeeDrops() int64 {
	fee, ok := tx.txData()["Fee"]
	if !ok {
		return 0
	}
	switch v := fee.(type) {
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

// CloseTimestamp returns the formatted transaction timestamp, or "" if the
// transaction carries no date field. XRPL dates count seconds from the
// Ripple epoch.
func (tx RawTransaction) CloseTimestamp() string {
	date, ok := tx["date"]
	if !ok {
		date, ok = tx.txData()["date"]
	}
	if !ok {
		return ""
	}
	seconds, ok := date.(float64)
	if !ok {
		return ""
	}
	return time.Unix(rippleEpochOffset+int64(seconds), 0).UTC().Format("2006-01-02 15:04:05")
}

// Account returns the sending account.
func (tx RawTransaction) Account() string {
	if a, ok := tx.txData()["Account"].(string); ok {
		return a
	}
	return ""
}

// Destination returns the payment destination, or "" for non-payments.
func (tx RawTransaction) Destination() string {
	if d, ok := tx.txData()["Destination"].(string); ok {
		return d
	}
	return ""
}

// AmountInfo is the normalized amount of a payment.
type AmountInfo struct {
	Currency string
	Value    float64
	Issuer   string
}

// Amount normalizes the Amount field of a payment. A string is an XRP amount
// in drops; an object is an issued currency.
func (tx RawTransaction) Amount() AmountInfo {
	info := AmountInfo{Currency: "XRP"}
	amount, ok := tx.txData()["Amount"]
	if !ok {
		return info
	}
	switch v := amount.(type) {
	case string:
		if drops, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.Value = float64(drops) / DropsPerXRP
		}
	case map[string]any:
		if c, ok := v["currency"].(string); ok {
			info.Currency = c
		}
		if val, ok := v["value"].(string); ok {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				info.Value = f
			}
		}
		if iss, ok := v["issuer"].(string); ok {
			info.Issuer = iss
		}
	}
	return info
}

// AmountDrops returns the payment amount in drops when the Amount field is a
// native XRP amount, and false otherwise.
func (tx RawTransaction) AmountDrops() (int64, bool) {
	s, ok := tx.txData()["Amount"].(string)
	if !ok {
		return 0, false
	}
	drops, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return drops, true
}

// Memos returns the decoded memos attached to the transaction. Memo data on
// the wire is hex-encoded; entries that do not decode to non-empty UTF-8 are
// skipped.
func (tx RawTransaction) Memos() []Memo {
	raw, ok := tx.txData()["Memos"].([]any)
	if !ok {
		return nil
	}
	var memos []Memo
	for _, entry := range raw {
		wrapper, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		memoObj, ok := wrapper["Memo"].(map[string]any)
		if !ok {
			continue
		}
		data, ok := memoObj["MemoData"].(string)
		if !ok {
			continue
		}
		decoded := decodeMemoData(data)
		if decoded == "" {
			continue
		}
		memos = append(memos, Memo{MemoData: decoded})
	}
	return memos
}

// decodeMemoData hex-decodes memo data to UTF-8 text. Returns "" for
// undecodable or non-text payloads so malformed memos are silently dropped.
func decodeMemoData(data string) string {
	decoded, err := hex.DecodeString(data)
	if err != nil {
		// Some tools write memos as plain text already
		if utf8.ValidString(data) && strings.TrimSpace(data) != "" {
			return data
		}
		return ""
	}
	s := string(decoded)
	if !utf8.ValidString(s) || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// Parse converts a raw transaction into a TransactionSummary.
func Parse(tx RawTransaction) TransactionSummary {
	txType := tx.TransactionType()
	result := tx.Result()

	info := TransactionSummary{
		Hash:      tx.Hash(),
		Type:      txType,
		Result:    result,
		Success:   result == "tesSUCCESS",
		FeeXRP:    float64(tx.FeeDrops()) / DropsPerXRP,
		Timestamp: tx.CloseTimestamp(),
		Sender:    tx.Account(),
	}

	if txType == "Payment" {
		info.Receiver = tx.Destination()
		amount := tx.Amount()
		info.Currency = amount.Currency
		info.Amount = amount.Value
		info.Issuer = amount.Issuer
	}

	return info
}
