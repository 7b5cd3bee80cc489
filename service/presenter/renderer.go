package presenter

import (
	"log/slog"
	"time"
)

// Presentation timing and geometry. The original page hard-codes these, so
// they are constants rather than configuration.
const (
	// WalkerTTL is how long a walker (and its bubble) lives. Removal is a
	// fixed timer, not an animation-end callback, so a slow frontend can
	// truncate the animation but never leaks sprites.
	WalkerTTL = 12 * time.Second

	// SpawnThrottle is the minimum interval between walker spawns. Throttled
	// events still update the panel.
	SpawnThrottle = 2 * time.Second

	// Sprite sizing: base + scaled share of the transaction count, capped.
	baseSizePx   = 100
	sizeRangePx  = 300
	sizeCountCap = 200

	// floorClearancePx is how far above the container floor the sprite's
	// bottom edge sits.
	floorClearancePx = 20

	// DefaultContainerHeight is the assumed stage height when none is given.
	DefaultContainerHeight = 600
)

// WalkerSize maps a transaction count to a square sprite dimension in pixels.
// Monotonic non-decreasing and clamped: size(0)=100, size(200)=size(500)=400.
func WalkerSize(txCount int) int {
	if txCount < 0 {
		txCount = 0
	}
	if txCount > sizeCountCap {
		txCount = sizeCountCap
	}
	return baseSizePx + txCount*sizeRangePx/sizeCountCap
}

// Renderer turns classified block events into surface mutations: walker
// spawns with scheduled expiry, panel updates, and payment tracking. All
// calls are expected from a single goroutine (the feed handler), matching
// the one-event-at-a-time delivery order of the channel.
type Renderer struct {
	surface         Surface
	tracker         *PaymentTracker
	containerHeight int
	logger          *slog.Logger

	lastWalkerAt time.Time
	nextWalkerID int64

	// injected for tests
	now   func() time.Time
	after func(time.Duration, func())
}

// NewRenderer creates a renderer bound to a surface. A nil tracker gets a
// fresh one.
func NewRenderer(surface Surface, tracker *PaymentTracker, logger *slog.Logger) *Renderer {
	if tracker == nil {
		tracker = NewPaymentTracker()
	}
	return &Renderer{
		surface:         surface,
		tracker:         tracker,
		containerHeight: DefaultContainerHeight,
		logger:          logger,
		now:             time.Now,
		after:           func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// SetContainerHeight overrides the assumed stage height used for vertical
// placement.
func (r *Renderer) SetContainerHeight(h int) {
	if h > 0 {
		r.containerHeight = h
	}
}

// Tracker exposes the renderer's payment tracker.
func (r *Renderer) Tracker() *PaymentTracker {
	return r.tracker
}

// HandleBlock processes one block event end to end: classify, track
// payments, update the panel, and spawn a walker unless throttled.
// Returns the classification and whether a walker was spawned.
func (r *Renderer) HandleBlock(ev *BlockEvent) (Classification, bool) {
	cls := Classify(ev.Details)

	now := r.now()
	r.tracker.Record(now, cls.AnyPayment, cls.ExactPayment)

	// The panel always reflects the latest event, throttled or not.
	r.surface.UpdatePanel(r.buildPanel(ev))

	if !r.lastWalkerAt.IsZero() && now.Sub(r.lastWalkerAt) < SpawnThrottle {
		if r.logger != nil {
			r.logger.Debug("walker spawn throttled", "ledger_index", ev.LedgerIndex)
		}
		return cls, false
	}
	r.lastWalkerAt = now

	r.spawnWalker(ev, cls)
	return cls, true
}

// HandleStatus forwards a feed connectivity transition to the surface.
func (r *Renderer) HandleStatus(status string) {
	r.surface.SetStatus(status)
}

func (r *Renderer) spawnWalker(ev *BlockEvent, cls Classification) {
	size := WalkerSize(ev.TransactionCount)

	r.nextWalkerID++
	spec := WalkerSpec{
		ID:        r.nextWalkerID,
		Variant:   cls.Variant,
		SizePx:    size,
		TopPx:     r.containerHeight - floorClearancePx - size,
		TTLMillis: WalkerTTL.Milliseconds(),
	}

	if memo := cls.Memo(); memo != "" {
		spec.Memo = memo
		spec.BubbleOffsetPx = size / 4
	}

	switch {
	case cls.Variant == VariantCatAmount:
		spec.SpecialDetection = "cat_amount"
	case cls.Variant == VariantExactAmount:
		spec.SpecialDetection = "exact_amount"
	case cls.AnyPayment:
		spec.SpecialDetection = "any_payment"
	}

	r.surface.SpawnWalker(spec)

	id := spec.ID
	r.after(WalkerTTL, func() {
		r.surface.ExpireWalker(id)
	})

	if r.logger != nil {
		r.logger.Debug("walker spawned",
			"id", spec.ID,
			"variant", spec.Variant,
			"size_px", spec.SizePx,
			"memo", spec.Memo != "",
		)
	}
}

// Panel display limits.
const (
	maxTopAccounts   = 3
	maxSampleTxs     = 3
	maskedAddressLen = 6
	hashDisplayLen   = 12
)

func (r *Renderer) buildPanel(ev *BlockEvent) PanelView {
	exact, any, recent := r.tracker.Snapshot()

	view := PanelView{
		LedgerIndex:       ev.LedgerIndex,
		FormattedTime:     ev.FormattedTime,
		TransactionCount:  ev.TransactionCount,
		ExactPaymentCount: exact,
		AnyPaymentCount:   any,
		RecentPayments:    recent,
	}

	d := ev.Details
	if d == nil {
		return view
	}

	view.TypeCounts = d.TransactionTypeCounts
	view.TotalXRPTransferred = d.TotalXRPTransferred
	view.LargestPayment = d.LargestPayment
	view.TotalFeesXRP = d.TotalFeesXRP

	for i, acct := range d.SignificantAccounts {
		if i >= maxTopAccounts {
			break
		}
		view.TopAccounts = append(view.TopAccounts, AccountLine{
			Address:   maskAddress(acct.Address),
			Frequency: acct.Frequency,
		})
	}

	for i, tx := range d.DetailedTransactions {
		if i >= maxSampleTxs {
			break
		}
		view.SampleTransactions = append(view.SampleTransactions, SampleTransaction{
			Type:        tx.Type,
			Amount:      tx.Amount,
			Currency:    tx.Currency,
			Destination: maskAddress(tx.Receiver),
			Hash:        truncateHash(tx.Hash),
			Success:     tx.Success,
		})
	}

	return view
}

// maskAddress hides an address down to its last characters.
func maskAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if len(addr) <= maskedAddressLen {
		return addr
	}
	return "…" + addr[len(addr)-maskedAddressLen:]
}

// truncateHash shortens a transaction hash for display.
func truncateHash(hash string) string {
	if len(hash) <= hashDisplayLen {
		return hash
	}
	return hash[:hashDisplayLen] + "…"
}
