package messaging

import (
	"context"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// Publisher defines the interface for publishing download events to the message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishDownloadEvent publishes a download lifecycle event
	PublishDownloadEvent(ctx context.Context, event *domain.DownloadEvent) error
	// Close closes the connection
	Close()
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event.
// It is used when no broker is configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishDownloadEvent(ctx context.Context, event *domain.DownloadEvent) error {
	return nil
}

func (noopPublisher) Close() {}
