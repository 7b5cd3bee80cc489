package presenter

import (
	"sync"
	"time"
)

// maxRecentPayments bounds the rolling payment history.
const maxRecentPayments = 10

// PaymentTracker counts special-wallet payments for the lifetime of the
// process and keeps a bounded, newest-first history. It is reset only by a
// restart.
type PaymentTracker struct {
	mu         sync.Mutex
	exactCount int
	anyCount   int
	recent     []PaymentRecord
}

// NewPaymentTracker creates an empty tracker.
func NewPaymentTracker() *PaymentTracker {
	return &PaymentTracker{}
}

// Record registers a detected payment. An exact-tier payment is also an
// any-tier payment, so both counters move for it. The history keeps the
// newest entry first and evicts the oldest past the cap.
func (t *PaymentTracker) Record(at time.Time, anyPayment, exactPayment bool) {
	if !anyPayment && !exactPayment {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if exactPayment {
		t.exactCount++
	}
	if anyPayment {
		t.anyCount++
	}

	rec := PaymentRecord{
		Date:    at.Format("2006-01-02"),
		Time:    at.Format("15:04:05"),
		IsExact: exactPayment,
	}
	t.recent = append([]PaymentRecord{rec}, t.recent...)
	if len(t.recent) > maxRecentPayments {
		t.recent = t.recent[:maxRecentPayments]
	}
}

// Snapshot returns the counters and a copy of the history.
func (t *PaymentTracker) Snapshot() (exact, any int, recent []PaymentRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	recent = make([]PaymentRecord, len(t.recent))
	copy(recent, t.recent)
	return t.exactCount, t.anyCount, recent
}
