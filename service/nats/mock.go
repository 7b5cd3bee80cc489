package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu                  sync.RWMutex
	publishedDirectives []*Directive
	publishError        error
	closed              bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedDirectives: make([]*Directive, 0),
	}
}

// PublishDirective records the directive and returns any configured error.
func (m *MockPublisher) PublishDirective(ctx context.Context, d *Directive) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedDirectives = append(m.publishedDirectives, d)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// PublishedDirectives returns all published directives (for testing).
func (m *MockPublisher) PublishedDirectives() []*Directive {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	directives := make([]*Directive, len(m.publishedDirectives))
	copy(directives, m.publishedDirectives)
	return directives
}

// PublishedDirectivesOfKind returns published directives of one kind.
func (m *MockPublisher) PublishedDirectivesOfKind(kind string) []*Directive {
	m.mu.RLock()
	defer m.mu.RUnlock()

	directives := make([]*Directive, 0)
	for _, d := range m.publishedDirectives {
		if d.Kind == kind {
			directives = append(directives, d)
		}
	}
	return directives
}

// SetPublishError configures the mock to return an error on PublishDirective.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published directives and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedDirectives = make([]*Directive, 0)
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
