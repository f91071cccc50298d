package listing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/listing-marketplace/internal/core/events"
)

// EventHandler records lifecycle transitions. It is the hook where seller
// notifications attach; each handler runs once per applied transition.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{logger: logger}
}

func (h *EventHandler) HandleListingPublished(ctx context.Context, event events.Event) error {
	published, ok := event.(*events.ListingPublishedEvent)
	if !ok {
		h.logger.Error("invalid event type for listing published handler", "event_type", event.EventType())
		return fmt.Errorf("expected ListingPublishedEvent, got %T", event)
	}

	h.logger.Info("lifecycle audit: listing published",
		"listing_id", published.ListingID,
		"reason", published.Reason,
		"published_at", published.PublishedAt,
		"expires_at", published.ExpiresAt,
		"event_id", published.EventID())
	return nil
}

func (h *EventHandler) HandleListingExpired(ctx context.Context, event events.Event) error {
	expired, ok := event.(*events.ListingExpiredEvent)
	if !ok {
		h.logger.Error("invalid event type for listing expired handler", "event_type", event.EventType())
		return fmt.Errorf("expected ListingExpiredEvent, got %T", event)
	}

	h.logger.Info("lifecycle audit: listing expired",
		"listing_id", expired.ListingID,
		"expired_at", expired.ExpiredAt,
		"event_id", expired.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeListingPublished, h.HandleListingPublished)
	eventBus.Subscribe(events.EventTypeListingExpired, h.HandleListingExpired)

	h.logger.Info("listing event handlers registered",
		"handlers", []string{events.EventTypeListingPublished, events.EventTypeListingExpired})
}
