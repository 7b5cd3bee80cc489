package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/xrpwalk/xrpwalk/service/presenter"
)

// publishTimeout bounds each directive publish so a stalled broker cannot
// back up the feed handler.
const publishTimeout = 5 * time.Second

// PublishingSurface adapts a Publisher to the presenter.Surface interface.
// Publish failures are logged and dropped: a lost directive degrades the
// display by omission, it never stops the feed.
type PublishingSurface struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewPublishingSurface wraps a publisher as a presenter surface.
func NewPublishingSurface(publisher Publisher, logger *slog.Logger) *PublishingSurface {
	return &PublishingSurface{publisher: publisher, logger: logger}
}

// SpawnWalker publishes a walker spawn directive.
func (s *PublishingSurface) SpawnWalker(w presenter.WalkerSpec) {
	s.publish(NewWalkerDirective(w))
}

// ExpireWalker publishes a walker expiry directive.
func (s *PublishingSurface) ExpireWalker(id int64) {
	s.publish(NewWalkerExpiredDirective(id))
}

// UpdatePanel publishes a panel update directive.
func (s *PublishingSurface) UpdatePanel(p presenter.PanelView) {
	s.publish(NewPanelDirective(p))
}

// SetStatus publishes a feed status directive.
func (s *PublishingSurface) SetStatus(status string) {
	s.publish(NewStatusDirective(status))
}

func (s *PublishingSurface) publish(d *Directive) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishDirective(ctx, d); err != nil {
		s.logger.Error("failed to publish directive", "kind", d.Kind, "error", err)
	}
}
