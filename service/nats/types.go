package nats

import (
	"time"

	"github.com/xrpwalk/xrpwalk/service/presenter"
)

// Directive kinds. Each surface mutation maps to one directive on the wire.
const (
	KindPanel         = "panel"
	KindWalker        = "walker"
	KindWalkerExpired = "walker_expired"
	KindStatus        = "status"
)

// Directive is one presenter instruction published to JetStream and relayed
// to browsers over SSE. Exactly one of the payload fields is set, selected
// by Kind.
type Directive struct {
	Kind string `json:"kind"`

	Panel    *presenter.PanelView  `json:"panel,omitempty"`
	Walker   *presenter.WalkerSpec `json:"walker,omitempty"`
	WalkerID int64                 `json:"walker_id,omitempty"`
	Status   string                `json:"status,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}

// NewPanelDirective wraps a panel update.
func NewPanelDirective(p presenter.PanelView) *Directive {
	return &Directive{Kind: KindPanel, Panel: &p, PublishedAt: time.Now().UTC()}
}

// NewWalkerDirective wraps a walker spawn.
func NewWalkerDirective(w presenter.WalkerSpec) *Directive {
	return &Directive{Kind: KindWalker, Walker: &w, PublishedAt: time.Now().UTC()}
}

// NewWalkerExpiredDirective wraps a walker expiry.
func NewWalkerExpiredDirective(id int64) *Directive {
	return &Directive{Kind: KindWalkerExpired, WalkerID: id, PublishedAt: time.Now().UTC()}
}

// NewStatusDirective wraps a feed status transition.
func NewStatusDirective(status string) *Directive {
	return &Directive{Kind: KindStatus, Status: status, PublishedAt: time.Now().UTC()}
}
