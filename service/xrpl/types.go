package xrpl

import (
	"time"
)

// Status is the feed connectivity state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// rippleEpochOffset converts XRPL close times (seconds since 2000-01-01) to
// Unix time.
const rippleEpochOffset = 946684800

// LedgerClosed is one ledger-close notification from the XRPL `ledger`
// stream.
type LedgerClosed struct {
	LedgerHash  string `json:"ledger_hash"`
	LedgerIndex int64  `json:"ledger_index"`
	LedgerTime  int64  `json:"ledger_time"`
	TxnCount    int    `json:"txn_count"`
	ReserveBase int64  `json:"reserve_base"`
	ReserveInc  int64  `json:"reserve_inc"`
	FeeBase     int64  `json:"fee_base"`
}

// CloseTime returns the ledger close time as wall-clock time.
func (l LedgerClosed) CloseTime() time.Time {
	return time.Unix(rippleEpochOffset+l.LedgerTime, 0).UTC()
}

// FormattedCloseTime renders the close time the way the info panel shows it.
func (l LedgerClosed) FormattedCloseTime() string {
	return l.CloseTime().Format("2006-01-02 15:04:05")
}
